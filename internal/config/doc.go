// Package config provides centralized configuration management for the
// TankYou data fetcher.
//
// # Configuration Sources
//
// Configuration is assembled in order of increasing precedence:
//
//	1. Default() values
//	2. An optional YAML file (TANKYOU_CONFIG, ./tankyou.yaml or ./configs/tankyou.yaml)
//	3. Environment variables, including those loaded from a .env file
//
// # Environment Variables
//
// All environment variables follow the pattern TANKYOU_<SECTION>_<FIELD>:
//
//	TANKYOU_PIPELINE_BRANDS="Agip Eni,Api-Ip,Esso"
//	TANKYOU_PIPELINE_STATION_TYPES="Stradale:1,Autostradale:2"
//	TANKYOU_PATHS_BASE_DIR=/var/lib/tankyou
//	TANKYOU_STORAGE_DRIVER=postgres
//	TANKYOU_STORAGE_DSN=postgres://...
//	TANKYOU_LOGGING_LEVEL=debug
//
// # Pipeline Configuration
//
// PipelineConfig carries the ordered brand and fuel whitelists. The position
// of an entry is its code in the cleaned outputs, so reordering the list
// renumbers every flag or fuel type.
//
// # Path Management
//
// Paths resolves the data/downloads, data/output and logs directories under
// a single base directory:
//
//	paths, err := config.GetPaths(cfg.Paths)
//	_ = paths.EnsureDirectories()
package config
