package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_AllFieldsPopulated(t *testing.T) {
	cfg := DefaultConfig()
	require.NotNil(t, cfg)

	assert.Equal(t, "info", cfg.Logging.LogLevel)
	assert.Equal(t, "auto", cfg.Logging.LogFormat)

	assert.Equal(t, "rsync", cfg.CopyTool.LocalExecutable)
	assert.Equal(t, "rclone", cfg.CopyTool.RemoteExecutable)
	assert.Equal(t, 4, cfg.CopyTool.RemoteTransfers)
	assert.Equal(t, 8, cfg.CopyTool.RemoteCheckers)

	assert.Equal(t, float64(0), cfg.Safety.SpaceHeadroomPercent)
}

func TestDefaultConfig_PassesValidation(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, Validate(cfg))
}
