package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prune-dev/prune/internal/catalog"
)

func TestPlanCreateDeleteTrash_CreatesPlanForTrashFiles(t *testing.T) {
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
	require.NoError(t, cc.Store.SetFileClassification(ctx, fileID, nil, nil, catalog.PriorityTrash))

	cmd := newPlanCreateDeleteTrashCmd()
	cmd.SetContext(ctx)
	require.NoError(t, cmd.Flags().Set("drive", "archive"))
	require.NoError(t, cmd.RunE(cmd, nil))

	plans, err := cc.Store.ListPlans(ctx, "")
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, catalog.PlanStatusDraft, plans[0].Status)
	assert.Equal(t, int64(1), plans[0].TotalFiles)
}

func TestPlanCreateDeleteTrash_FailsWithNoTrashFiles(t *testing.T) {
	cc, ctx := testCLIContext(t)

	_, err := cc.Store.RegisterDrive(ctx, catalog.Drive{Label: "archive"})
	require.NoError(t, err)

	cmd := newPlanCreateDeleteTrashCmd()
	cmd.SetContext(ctx)
	require.NoError(t, cmd.Flags().Set("drive", "archive"))
	assert.Error(t, cmd.RunE(cmd, nil))
}

func TestPlanApprove_TransitionsDraftToApproved(t *testing.T) {
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
	require.NoError(t, cc.Store.SetFileClassification(ctx, fileID, nil, nil, catalog.PriorityTrash))

	createCmd := newPlanCreateDeleteTrashCmd()
	createCmd.SetContext(ctx)
	require.NoError(t, createCmd.Flags().Set("drive", "archive"))
	require.NoError(t, createCmd.RunE(createCmd, nil))

	plans, err := cc.Store.ListPlans(ctx, "")
	require.NoError(t, err)
	require.Len(t, plans, 1)

	approveCmd := newPlanApproveCmd()
	approveCmd.SetContext(ctx)
	require.NoError(t, approveCmd.RunE(approveCmd, []string{"1"}))

	plan, err := cc.Store.GetPlan(ctx, plans[0].ID)
	require.NoError(t, err)
	assert.Equal(t, catalog.PlanStatusApproved, plan.Status)
}
