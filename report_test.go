package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/prune-dev/prune/internal/catalog"
)

func TestReport_RunsAgainstEmptyCatalog(t *testing.T) {
	_, ctx := testCLIContext(t)

	cmd := newReportCmd()
	cmd.SetContext(ctx)
	require.NoError(t, cmd.RunE(cmd, nil))
}

func TestReport_RunsWithFiles(t *testing.T) {
	cc, ctx := testCLIContext(t)

	driveID, err := cc.Store.RegisterDrive(ctx, catalog.Drive{Label: "archive"})
	require.NoError(t, err)

	_, err = cc.Store.UpsertFile(ctx, catalog.File{
		DriveID:  driveID,
		Path:     "a.txt",
		AbsPath:  "/mnt/archive/a.txt",
		Filename: "a.txt",
		Priority: catalog.PriorityNormal,
	})
	require.NoError(t, err)

	cmd := newReportCmd()
	cmd.SetContext(ctx)
	require.NoError(t, cmd.RunE(cmd, nil))
}
