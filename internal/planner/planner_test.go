package planner

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/prune-dev/prune/internal/catalog"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openTestStore(t *testing.T) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(context.Background(), ":memory:", testLogger())
	require.NoError(t, err)

	t.Cleanup(func() { _ = store.Close() })

	return store
}

func seedDrive(t *testing.T, store *catalog.Store, label, mount string) int64 {
	t.Helper()

	id, err := store.RegisterDrive(context.Background(), catalog.Drive{
		Label:     label,
		MountPath: &mount,
		Role:      catalog.RoleSource,
		IsOnline:  true,
		Backend:   catalog.BackendLocal,
	})
	require.NoError(t, err)

	return id
}

func seedFile(t *testing.T, store *catalog.Store, driveID int64, path string, size int64) catalog.File {
	t.Helper()

	id, err := store.UpsertFile(context.Background(), catalog.File{
		DriveID:   driveID,
		Path:      path,
		AbsPath:   path,
		Filename:  path,
		SizeBytes: size,
	})
	require.NoError(t, err)

	got, err := store.GetFile(context.Background(), id)
	require.NoError(t, err)

	return got
}

func TestCreateDeleteTrash(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	driveID := seedDrive(t, store, "d1", "/mnt/d1")

	f1 := seedFile(t, store, driveID, "a.txt", 10)
	f2 := seedFile(t, store, driveID, "b.txt", 20)

	p := New(store, DefaultOptions(), testLogger())
	planID, err := p.CreateDeleteTrash(ctx, []catalog.File{f1, f2})
	require.NoError(t, err)

	plan, err := store.GetPlan(ctx, planID)
	require.NoError(t, err)
	require.Equal(t, catalog.PlanStatusDraft, plan.Status)
	require.Equal(t, int64(2), plan.TotalFiles)
	require.Equal(t, int64(30), plan.TotalBytes)

	steps, err := store.ListStepsForPlan(ctx, planID)
	require.NoError(t, err)
	require.Len(t, steps, 2)

	for _, s := range steps {
		require.Equal(t, catalog.ActionDelete, s.Action)
		require.Equal(t, catalog.StepStatusPending, s.Status)
	}
}

func TestCreateDeleteTrashRejectsEmpty(t *testing.T) {
	store := openTestStore(t)
	p := New(store, DefaultOptions(), testLogger())

	_, err := p.CreateDeleteTrash(context.Background(), nil)
	require.Error(t, err)
}

func TestCreateDedupExcludesOriginal(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	driveID := seedDrive(t, store, "d1", "/mnt/d1")

	original := seedFile(t, store, driveID, "orig.txt", 100)
	dup := seedFile(t, store, driveID, "dup.txt", 100)

	p := New(store, DefaultOptions(), testLogger())

	_, err := p.CreateDedup(ctx, []catalog.File{original}, original)
	require.Error(t, err)

	planID, err := p.CreateDedup(ctx, []catalog.File{dup}, original)
	require.NoError(t, err)

	steps, err := store.ListStepsForPlan(ctx, planID)
	require.NoError(t, err)
	require.Len(t, steps, 1)
	require.Equal(t, dup.ID, steps[0].FileID)
	require.Equal(t, catalog.ActionDelete, steps[0].Action)
}

func TestCreateMigrateBuildsCopySteps(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	srcDrive := seedDrive(t, store, "src", "/mnt/src")
	dstDrive := seedDrive(t, store, "dst", "/mnt/dst")

	f := seedFile(t, store, srcDrive, "photos/a.jpg", 500)

	opts := DefaultOptions()
	opts.EnforceSpaceLimits = false
	p := New(store, opts, testLogger())

	planID, err := p.CreateMigrate(ctx, []catalog.File{f}, dstDrive, "/mnt/dst")
	require.NoError(t, err)

	steps, err := store.ListStepsForPlan(ctx, planID)
	require.NoError(t, err)
	require.Len(t, steps, 1)
	require.Equal(t, catalog.ActionCopy, steps[0].Action)
	require.NotNil(t, steps[0].DestPath)
	require.Equal(t, "/mnt/dst/photos/a.jpg", *steps[0].DestPath)
}

func TestCreateOffloadBuildsCopyThenDeletePairs(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	srcDrive := seedDrive(t, store, "src", "/mnt/src")
	offDrive := seedDrive(t, store, "off", "/mnt/off")

	f1 := seedFile(t, store, srcDrive, "a.txt", 10)
	f2 := seedFile(t, store, srcDrive, "b.txt", 20)

	opts := DefaultOptions()
	opts.EnforceSpaceLimits = false
	p := New(store, opts, testLogger())

	planID, err := p.CreateOffload(ctx, []catalog.File{f1, f2}, offDrive, "/mnt/off")
	require.NoError(t, err)

	steps, err := store.ListStepsForPlan(ctx, planID)
	require.NoError(t, err)
	require.Len(t, steps, 4)

	require.Equal(t, catalog.ActionCopy, steps[0].Action)
	require.Equal(t, int64(0), steps[0].StepOrder)
	require.Equal(t, catalog.ActionDelete, steps[1].Action)
	require.Equal(t, int64(1), steps[1].StepOrder)
	require.Equal(t, catalog.ActionCopy, steps[2].Action)
	require.Equal(t, int64(2), steps[2].StepOrder)
	require.Equal(t, catalog.ActionDelete, steps[3].Action)
	require.Equal(t, int64(3), steps[3].StepOrder)
}

func TestApprovePlanTransitionsStatus(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	driveID := seedDrive(t, store, "d1", "/mnt/d1")
	f := seedFile(t, store, driveID, "a.txt", 10)

	p := New(store, DefaultOptions(), testLogger())
	planID, err := p.CreateDeleteTrash(ctx, []catalog.File{f})
	require.NoError(t, err)

	require.NoError(t, p.Approve(ctx, planID))

	plan, err := store.GetPlan(ctx, planID)
	require.NoError(t, err)
	require.Equal(t, catalog.PlanStatusApproved, plan.Status)
}
