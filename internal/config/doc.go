// Package config defines the configuration of the fabricctl command.
//
// Values are resolved in this order, later sources winning: struct defaults
// (creasty/defaults tags), an optional config file, FABRIC_* environment
// variables, then command-line flags.
//
// # Configuration Structure
//
//	Configuration
//	├── Fabric      - worker pool settings
//	├── Metrics     - Prometheus endpoint
//	├── LogFormat   - "console" or "json"
//	└── LogLevel    - zap level name
//
// # Fabric Configuration
//
//	┌──────────────┬─────────────┬───────────────────────────────────────┐
//	│ Field        │ Default     │ Description                           │
//	├──────────────┼─────────────┼───────────────────────────────────────┤
//	│ Name         │ "fabricctl" │ Label for logs and metrics            │
//	│ Workers      │ 0           │ Worker count, 0 means GOMAXPROCS      │
//	│ StackSize    │ 65536       │ Per-task stack budget in bytes        │
//	│ CarrierCache │ 64          │ Idle carriers kept per worker         │
//	└──────────────┴─────────────┴───────────────────────────────────────┘
//
// # Metrics Configuration
//
//	┌─────────┬────────────┬──────────────────────────────────┐
//	│ Field   │ Default    │ Description                      │
//	├─────────┼────────────┼──────────────────────────────────┤
//	│ Enabled │ true       │ Record Prometheus metrics        │
//	│ Address │ ":9090"    │ Listen address for serve         │
//	│ Path    │ "/metrics" │ HTTP path of the scrape endpoint │
//	└─────────┴────────────┴──────────────────────────────────┘
//
// Environment variables use the key path upper-cased with dots and dashes
// replaced by underscores, e.g. FABRIC_FABRIC_WORKERS or FABRIC_LOG_LEVEL.
package config
