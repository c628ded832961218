// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for prune.
package config

// Config is the top-level configuration structure, covering the handful of
// ambient settings the engine and CLI need before a catalog or policy file
// is even opened: where the catalog database lives, how verbose to log,
// which external copy tools to invoke, and whether to override the
// space package's write-safety headroom.
type Config struct {
	Catalog  CatalogConfig  `toml:"catalog"`
	Logging  LoggingConfig  `toml:"logging"`
	CopyTool CopyToolConfig `toml:"copytool"`
	Safety   SafetyConfig   `toml:"safety"`
}

// CatalogConfig locates the SQLite catalog database.
type CatalogConfig struct {
	DatabasePath string `toml:"database_path"`
}

// LoggingConfig controls slog output.
type LoggingConfig struct {
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// CopyToolConfig names the external executables the engine shells out to
// for local and remote-backend copies, and the remote tool's default
// parallelism hints.
type CopyToolConfig struct {
	LocalExecutable  string `toml:"local_executable"`
	RemoteExecutable string `toml:"remote_executable"`
	RemoteTransfers  int    `toml:"remote_transfers"`
	RemoteCheckers   int    `toml:"remote_checkers"`
}

// SafetyConfig holds operator overrides of built-in safety defaults.
type SafetyConfig struct {
	// SpaceHeadroomPercent overrides space.defaultHeadroomPercent when
	// nonzero. Values must fall in (0, 0.5]; see Validate.
	SpaceHeadroomPercent float64 `toml:"space_headroom_percent"`
}
