package main

import (
	"fmt"

	"github.com/spf13/viper"

	savedata "github.com/hnb-rabear/RCore-sub006"
)

// loadSchema reads a save tree declaration (YAML, JSON or TOML) and builds
// it with the built-in node kinds.
func loadSchema(path string) (savedata.Node, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading schema: %w", err)
	}
	var spec savedata.NodeSpec
	if err := v.Unmarshal(&spec); err != nil {
		return nil, fmt.Errorf("decoding schema: %w", err)
	}
	if spec.Kind == "" {
		spec.Kind = "group"
	}
	return savedata.NewRegistry().Build(spec)
}
