package config

// Default values for configuration options. These represent layer zero of
// the defaults → config file → environment → CLI flag override chain, and
// are chosen to be safe, reasonable starting points that work without any
// config file at all.
const (
	defaultLogLevel         = "info"
	defaultLogFormat        = "auto"
	defaultLocalExecutable  = "rsync"
	defaultRemoteExecutable = "rclone"
	defaultRemoteTransfers  = 4
	defaultRemoteCheckers   = 8
)

// DefaultConfig returns a Config populated with all default values. This is
// used both as the starting point for TOML decoding (so unset keys retain
// defaults) and as the fallback when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		Catalog: CatalogConfig{
			DatabasePath: DefaultCatalogPath(),
		},
		Logging: LoggingConfig{
			LogLevel:  defaultLogLevel,
			LogFormat: defaultLogFormat,
		},
		CopyTool: CopyToolConfig{
			LocalExecutable:  defaultLocalExecutable,
			RemoteExecutable: defaultRemoteExecutable,
			RemoteTransfers:  defaultRemoteTransfers,
			RemoteCheckers:   defaultRemoteCheckers,
		},
		Safety: SafetyConfig{
			SpaceHeadroomPercent: 0,
		},
	}
}
