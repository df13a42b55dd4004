// Package config loads savectl configuration from the environment and an
// optional .env file.
//
// Keys are nested by subsystem and mapped to environment variables by
// replacing dots with underscores, e.g. store.path is STORE_PATH and
// cloud.bucket is CLOUD_BUCKET. Defaults come from the `default` struct tags
// of the subsystem configs.
package config
