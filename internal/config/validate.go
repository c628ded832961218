package config

import (
	"fmt"

	"github.com/prune-dev/prune/internal/prerr"
)

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"auto": true,
	"json": true,
	"text": true,
}

// Validate checks cfg for internally-consistent, actionable values. It
// never touches the filesystem — executable paths are resolved and
// checked lazily by copytool at call time.
func Validate(cfg *Config) error {
	if err := validateLogging(cfg.Logging); err != nil {
		return err
	}

	if err := validateCopyTool(cfg.CopyTool); err != nil {
		return err
	}

	return validateSafety(cfg.Safety)
}

func validateLogging(l LoggingConfig) error {
	if !validLogLevels[l.LogLevel] {
		return &prerr.ConfigError{Msg: fmt.Sprintf("invalid log_level %q", l.LogLevel)}
	}

	if !validLogFormats[l.LogFormat] {
		return &prerr.ConfigError{Msg: fmt.Sprintf("invalid log_format %q", l.LogFormat)}
	}

	return nil
}

func validateCopyTool(c CopyToolConfig) error {
	if c.LocalExecutable == "" {
		return &prerr.ConfigError{Msg: "copytool.local_executable must not be empty"}
	}

	if c.RemoteExecutable == "" {
		return &prerr.ConfigError{Msg: "copytool.remote_executable must not be empty"}
	}

	if c.RemoteTransfers < 0 {
		return &prerr.ConfigError{Msg: "copytool.remote_transfers must not be negative"}
	}

	if c.RemoteCheckers < 0 {
		return &prerr.ConfigError{Msg: "copytool.remote_checkers must not be negative"}
	}

	return nil
}

func validateSafety(s SafetyConfig) error {
	// Zero means "leave space's built-in default alone".
	if s.SpaceHeadroomPercent == 0 {
		return nil
	}

	if s.SpaceHeadroomPercent < 0 || s.SpaceHeadroomPercent > 0.5 {
		return &prerr.ConfigError{
			Msg: fmt.Sprintf("safety.space_headroom_percent %v must be in (0, 0.5]", s.SpaceHeadroomPercent),
		}
	}

	return nil
}
