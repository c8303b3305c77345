// Package config provides configuration management for regen.
//
// It utilizes Viper for loading configuration from environment variables and
// an optional .env file. Defaults come from `default` struct tags.
//
// # Configuration Structure
//
// The Config struct is divided into subsections:
//   - Server: HTTP port, API key and shutdown budget
//   - Database: run history connection (mysql or sqlite)
//   - Storage: S3/MinIO credentials, bucket and prefix for publishing
//   - Log: logging level and format
//   - Rebuild: input/output directories and render settings
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	req := cfg.Rebuild.Request()
package config
