package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/prune-dev/prune/internal/prerr"
	"github.com/prune-dev/prune/internal/space"
)

// Load reads and validates the TOML config file at path, decoding it on top
// of DefaultConfig so that any key the file omits keeps its default value.
// A missing file is not an error: Load returns the defaults, with
// environment overrides applied.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if _, decodeErr := toml.Decode(string(data), cfg); decodeErr != nil {
				return nil, &prerr.ConfigError{Msg: fmt.Sprintf("parse config file %s: %v", path, decodeErr)}
			}
		case os.IsNotExist(err):
			// No config file: defaults stand.
		default:
			return nil, &prerr.IoErr{Op: "read config file", Err: err}
		}
	}

	ApplyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	if cfg.Safety.SpaceHeadroomPercent > 0 {
		space.SetHeadroomPercent(cfg.Safety.SpaceHeadroomPercent)
	}

	return cfg, nil
}

// LoadOrDefault resolves the config path (explicit path, PRUNE_CONFIG env
// var, or the platform default) and loads it.
func LoadOrDefault(explicitPath string) (*Config, error) {
	return Load(ResolveConfigPath(explicitPath))
}

// ResolveConfigPath picks the config file path in override order: an
// explicit path (e.g. --config), PRUNE_CONFIG, then the platform default.
// An empty return means no candidate path exists (e.g. os.UserHomeDir
// failed) and callers should proceed with pure defaults.
func ResolveConfigPath(explicitPath string) string {
	if explicitPath != "" {
		return explicitPath
	}

	if env := os.Getenv(EnvConfigPath); env != "" {
		return env
	}

	return DefaultConfigPath()
}
