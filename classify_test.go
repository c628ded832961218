package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prune-dev/prune/internal/catalog"
)

const testRulesTOML = `
[rules.archives]
type = "extension"
category = "archive"
priority = "low"
extensions = [".zip", ".tar"]
`

func TestClassify_AppliesRulesToIndexedFiles(t *testing.T) {
	cc, ctx := testCLIContext(t)

	driveID, err := cc.Store.RegisterDrive(ctx, catalog.Drive{Label: "archive"})
	require.NoError(t, err)

	ext := ".zip"
	_, err = cc.Store.UpsertFile(ctx, catalog.File{
		DriveID:   driveID,
		Path:      "backups/data.zip",
		AbsPath:   "/mnt/archive/backups/data.zip",
		Filename:  "data.zip",
		Extension: &ext,
		Priority:  catalog.PriorityNormal,
	})
	require.NoError(t, err)

	rulesPath := filepath.Join(t.TempDir(), "rules.toml")
	require.NoError(t, os.WriteFile(rulesPath, []byte(testRulesTOML), 0o644))

	cmd := newClassifyCmd()
	cmd.SetContext(ctx)
	require.NoError(t, cmd.Flags().Set("policy", rulesPath))
	require.NoError(t, cmd.RunE(cmd, nil))

	files, err := cc.Store.ListFilesByStatus(ctx, catalog.FileStatusClassified)
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.NotNil(t, files[0].Category)
	assert.Equal(t, "archive", *files[0].Category)
}

func TestClassify_RequiresPolicyFlag(t *testing.T) {
	_, ctx := testCLIContext(t)

	cmd := newClassifyCmd()
	cmd.SetContext(ctx)
	assert.Error(t, cmd.RunE(cmd, nil))
}
