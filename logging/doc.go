// Package logging builds the zap loggers used by savedata and savectl.
//
// Two presets are supported: development (Level "debug", ISO8601 timestamps,
// caller info) and production (any other level, sampled JSON). Format
// "console" switches either preset to human-readable output.
//
//	log, _ := logging.New(&logging.Config{Level: "info", Format: "console"})
//	db := savedata.New(store, savedata.Options{Logger: log})
package logging
