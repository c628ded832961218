package config

import (
	"os"
	"strconv"
)

// Environment variable names for overrides. These sit between the config
// file and CLI flags in the override chain: present but empty means
// "not set", letting a lower layer's value stand.
const (
	EnvConfigPath           = "PRUNE_CONFIG"
	EnvCatalogDatabasePath  = "PRUNE_CATALOG_DB"
	EnvLogLevel             = "PRUNE_LOG_LEVEL"
	EnvLogFormat            = "PRUNE_LOG_FORMAT"
	EnvCopyToolLocal        = "PRUNE_COPYTOOL_LOCAL"
	EnvCopyToolRemote       = "PRUNE_COPYTOOL_REMOTE"
	EnvSpaceHeadroomPercent = "PRUNE_SPACE_HEADROOM_PERCENT"
)

// ApplyEnvOverrides layers environment variable overrides onto cfg in
// place, skipping any variable that is unset or empty.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvCatalogDatabasePath); v != "" {
		cfg.Catalog.DatabasePath = v
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.LogLevel = v
	}

	if v := os.Getenv(EnvLogFormat); v != "" {
		cfg.Logging.LogFormat = v
	}

	if v := os.Getenv(EnvCopyToolLocal); v != "" {
		cfg.CopyTool.LocalExecutable = v
	}

	if v := os.Getenv(EnvCopyToolRemote); v != "" {
		cfg.CopyTool.RemoteExecutable = v
	}

	if v := os.Getenv(EnvSpaceHeadroomPercent); v != "" {
		if pct, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Safety.SpaceHeadroomPercent = pct
		}
	}
}
