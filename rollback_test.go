package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prune-dev/prune/internal/catalog"
	"github.com/prune-dev/prune/internal/planner"
)

func TestRollback_RejectsPlanWithCompletedDelete(t *testing.T) {
	cc, ctx := testCLIContext(t)

	driveID, err := cc.Store.RegisterDrive(ctx, catalog.Drive{Label: "archive"})
	require.NoError(t, err)

	fileID, err := cc.Store.UpsertFile(ctx, catalog.File{
		DriveID:  driveID,
		Path:     "tmp/cache.bin",
		AbsPath:  "/mnt/archive/tmp/cache.bin",
		Filename: "cache.bin",
		Priority: catalog.PriorityTrash,
	})
	require.NoError(t, err)

	files, err := cc.Store.ListFilesByDrive(ctx, driveID)
	require.NoError(t, err)

	pl := planner.New(cc.Store, planner.DefaultOptions(), cc.Logger)
	planID, err := pl.CreateDeleteTrash(ctx, files)
	require.NoError(t, err)

	steps, err := cc.Store.ListStepsForPlan(ctx, planID)
	require.NoError(t, err)
	require.Len(t, steps, 1)
	require.Equal(t, fileID, steps[0].FileID)

	require.NoError(t, cc.Store.SetStepStatus(ctx, steps[0].ID, catalog.StepStatusCompleted, nil, nil, nil))

	cmd := newRollbackCmd()
	cmd.SetContext(ctx)
	assert.Error(t, cmd.RunE(cmd, []string{"1"}))
}

func TestRollback_InvalidPlanID(t *testing.T) {
	_, ctx := testCLIContext(t)

	cmd := newRollbackCmd()
	cmd.SetContext(ctx)
	assert.Error(t, cmd.RunE(cmd, []string{"not-a-number"}))
}
