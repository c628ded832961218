package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prune-dev/prune/internal/catalog"
)

func TestScan_IndexesFilesUnderDriveMount(t *testing.T) {
	cc, ctx := testCLIContext(t)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0o644))

	_, err := cc.Store.RegisterDrive(ctx, catalog.Drive{Label: "archive", MountPath: &dir})
	require.NoError(t, err)

	cmd := newScanCmd()
	cmd.SetContext(ctx)
	require.NoError(t, cmd.Flags().Set("drive", "archive"))
	require.NoError(t, cmd.RunE(cmd, nil))

	files, err := cc.Store.ListFilesByStatus(ctx, catalog.FileStatusIndexed)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "a.txt", files[0].Filename)
}

func TestScan_RequiresDriveOrAllOnline(t *testing.T) {
	_, ctx := testCLIContext(t)

	cmd := newScanCmd()
	cmd.SetContext(ctx)
	assert.Error(t, cmd.RunE(cmd, nil))
}

func TestScan_RejectsInvalidHashFlag(t *testing.T) {
	cc, ctx := testCLIContext(t)

	dir := t.TempDir()
	_, err := cc.Store.RegisterDrive(ctx, catalog.Drive{Label: "archive", MountPath: &dir})
	require.NoError(t, err)

	cmd := newScanCmd()
	cmd.SetContext(ctx)
	require.NoError(t, cmd.Flags().Set("drive", "archive"))
	require.NoError(t, cmd.Flags().Set("hash", "sha256"))
	assert.Error(t, cmd.RunE(cmd, nil))
}
