package config

import (
	"path/filepath"
	"reflect"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	savedata "github.com/hnb-rabear/RCore-sub006"
	"github.com/hnb-rabear/RCore-sub006/cloudsave"
	"github.com/hnb-rabear/RCore-sub006/journal"
	"github.com/hnb-rabear/RCore-sub006/logging"
	"github.com/hnb-rabear/RCore-sub006/sqlstore"
)

// Config holds all configuration for savectl.
type Config struct {
	// Store configures the local bolt save file.
	Store StoreConfig `mapstructure:"store"`
	// Log holds configuration for the logger.
	Log logging.Config `mapstructure:"log"`
	// Database configures the MySQL save slots.
	Database sqlstore.Config `mapstructure:"database"`
	// Cloud configures backup object storage.
	Cloud cloudsave.Config `mapstructure:"cloud"`
}

// StoreConfig configures the local save file.
type StoreConfig struct {
	// Path is the bolt file.
	Path string `mapstructure:"path" default:"save.db"`
	// Bucket is the bolt bucket holding entries.
	Bucket string `mapstructure:"bucket" default:"prefs"`
	// Encoding is the blob encoding: msgpack, json or msgpack+snappy.
	Encoding string `mapstructure:"encoding" default:"msgpack"`
	// SaveOnPause saves loaded trees when the application pauses.
	SaveOnPause bool `mapstructure:"save_on_pause" default:"true"`
	// Verbose enables debug logging of index resolution and compaction.
	Verbose bool `mapstructure:"verbose" default:"false"`
	// Journal is the directory of the commit journal; empty disables it.
	Journal string `mapstructure:"journal" default:""`
	// JournalMaxFileSize is the journal segment rotation size in bytes.
	JournalMaxFileSize int64 `mapstructure:"journal_max_file_size" default:"4194304"`
}

// Options converts the store configuration into savedata.Options.
func (c StoreConfig) Options(log *zap.Logger) (savedata.Options, error) {
	enc, err := savedata.ParseEncoding(c.Encoding)
	if err != nil {
		return savedata.Options{}, err
	}
	return savedata.Options{
		Logger:      log,
		Verbose:     c.Verbose,
		Encoding:    enc,
		SaveOnPause: c.SaveOnPause,
	}, nil
}

// BoltOptions converts the store configuration into savedata.BoltOptions.
func (c StoreConfig) BoltOptions(readOnly bool) savedata.BoltOptions {
	return savedata.BoltOptions{Bucket: c.Bucket, ReadOnly: readOnly}
}

// JournalOptions converts the store configuration into journal.Options.
func (c StoreConfig) JournalOptions(log *zap.Logger) journal.Options {
	return journal.Options{
		FileName:    "save-*.wal",
		MaxFileSize: c.JournalMaxFileSize,
		Logger:      log,
		Verbose:     c.Verbose,
	}
}

// LoadConfig loads configuration from environment variables and the .env
// file in dir, if any. Variables from .env override the environment.
func LoadConfig(dir string) (*Config, error) {
	// Ignore error if file doesn't exist (e.g. production)
	_ = godotenv.Overload(filepath.Join(dir, ".env"))

	v := viper.New()
	bindValues(v, Config{}, "")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// bindValues registers every mapstructure key of iface with its `default`
// tag value, so that AutomaticEnv can see the key.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")
		if tag == "" {
			continue
		}

		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		v.SetDefault(key, field.Tag.Get("default"))
	}
}
