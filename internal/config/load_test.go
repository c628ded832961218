package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Logging, cfg.Logging)
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Logging, cfg.Logging)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[logging]
log_level = "debug"

[copytool]
local_executable = "/opt/bin/rsync"
remote_transfers = 16
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.LogLevel)
	assert.Equal(t, "auto", cfg.Logging.LogFormat) // untouched key keeps its default
	assert.Equal(t, "/opt/bin/rsync", cfg.CopyTool.LocalExecutable)
	assert.Equal(t, 16, cfg.CopyTool.RemoteTransfers)
	assert.Equal(t, "rclone", cfg.CopyTool.RemoteExecutable) // untouched key keeps its default
}

func TestLoad_InvalidTOMLErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("not = [valid toml"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_InvalidValueFailsValidation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[logging]
log_level = "verbose"
`), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EnvOverridesFileValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[logging]
log_level = "debug"
`), 0o644))

	t.Setenv(EnvLogLevel, "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Logging.LogLevel)
}

func TestResolveConfigPath_PrefersExplicit(t *testing.T) {
	t.Setenv(EnvConfigPath, "/from/env.toml")
	assert.Equal(t, "/explicit.toml", ResolveConfigPath("/explicit.toml"))
}

func TestResolveConfigPath_FallsBackToEnv(t *testing.T) {
	t.Setenv(EnvConfigPath, "/from/env.toml")
	assert.Equal(t, "/from/env.toml", ResolveConfigPath(""))
}

func TestResolveConfigPath_FallsBackToDefault(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	assert.Equal(t, DefaultConfigPath(), ResolveConfigPath(""))
}
