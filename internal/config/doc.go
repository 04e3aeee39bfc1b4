// Package config provides configuration management for sra-downloader.
//
// This package handles:
//   - Loading and saving settings from YAML files
//   - Default configuration values
//   - Validation of user-supplied values
//   - Conversion to a model.Layout for other packages
//
// # Default Settings
//
// Use DefaultSettings() to get sensible defaults:
//
//	settings := config.DefaultSettings()
//	// Downloads into the current directory
//	// 10 concurrent jobs, 2 download attempts per run
//	// prefetch + fasterq-dump, gzip level 6
//
// # Loading from File
//
//	settings, err := config.Load("/path/to/sra-dl.yaml")
//	if err != nil {
//	    // Uses defaults if file doesn't exist
//	}
//
// A configuration file only needs the keys it changes:
//
//	parallelism: 4
//	fetcher: http
//	download_max_attempts: 3
//
// # Configuration Options
//
// Settings includes options for:
//   - Target directory and parallelism
//   - Retry behavior
//   - Metadata endpoint
//   - External tool paths
//   - Read file naming and compression
package config
