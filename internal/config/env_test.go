package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyEnvOverrides_AllSet(t *testing.T) {
	t.Setenv(EnvCatalogDatabasePath, "/custom/catalog.db")
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvLogFormat, "json")
	t.Setenv(EnvCopyToolLocal, "/usr/bin/rsync")
	t.Setenv(EnvCopyToolRemote, "/usr/bin/rclone")
	t.Setenv(EnvSpaceHeadroomPercent, "0.25")

	cfg := DefaultConfig()
	ApplyEnvOverrides(cfg)

	assert.Equal(t, "/custom/catalog.db", cfg.Catalog.DatabasePath)
	assert.Equal(t, "debug", cfg.Logging.LogLevel)
	assert.Equal(t, "json", cfg.Logging.LogFormat)
	assert.Equal(t, "/usr/bin/rsync", cfg.CopyTool.LocalExecutable)
	assert.Equal(t, "/usr/bin/rclone", cfg.CopyTool.RemoteExecutable)
	assert.Equal(t, 0.25, cfg.Safety.SpaceHeadroomPercent)
}

func TestApplyEnvOverrides_NoneSetLeavesDefaults(t *testing.T) {
	for _, name := range []string{
		EnvCatalogDatabasePath, EnvLogLevel, EnvLogFormat,
		EnvCopyToolLocal, EnvCopyToolRemote, EnvSpaceHeadroomPercent,
	} {
		t.Setenv(name, "")
	}

	cfg := DefaultConfig()
	want := DefaultConfig()
	ApplyEnvOverrides(cfg)

	assert.Equal(t, want, cfg)
}

func TestApplyEnvOverrides_InvalidHeadroomIgnored(t *testing.T) {
	t.Setenv(EnvSpaceHeadroomPercent, "not-a-number")

	cfg := DefaultConfig()
	ApplyEnvOverrides(cfg)

	assert.Equal(t, float64(0), cfg.Safety.SpaceHeadroomPercent)
}
