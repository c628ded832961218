package engine

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/prune-dev/prune/internal/catalog"
	"github.com/prune-dev/prune/internal/hashutil"
	"github.com/prune-dev/prune/internal/planner"
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

func rsyncAvailable() bool {
	_, err := exec.LookPath("rsync")
	return err == nil
}

func TestExecuteDeletePlan(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	dir := t.TempDir()
	driveID := seedDrive(t, store, "d1", dir)

	srcPath := filepath.Join(dir, "trash.txt")
	require.NoError(t, os.WriteFile(srcPath, []byte("junk"), 0o644))

	f, err := store.GetFile(ctx, mustUpsert(t, store, driveID, "trash.txt", srcPath, 4))
	require.NoError(t, err)

	pl := planner.New(store, planner.DefaultOptions(), testLogger())
	planID, err := pl.CreateDeleteTrash(ctx, []catalog.File{f})
	require.NoError(t, err)
	require.NoError(t, pl.Approve(ctx, planID))

	steps, err := store.ListStepsForPlan(ctx, planID)
	require.NoError(t, err)
	require.Len(t, steps, 1)

	preHash, err := hashutil.Compute(srcPath)
	require.NoError(t, err)
	require.NoError(t, store.SetStepHashes(ctx, steps[0].ID, &preHash, nil))

	opts := DefaultOptions()
	opts.DryRun = false
	eng := New(store, opts, testLogger())

	require.NoError(t, eng.Execute(ctx, planID))

	_, statErr := os.Stat(srcPath)
	require.True(t, os.IsNotExist(statErr))

	plan, err := store.GetPlan(ctx, planID)
	require.NoError(t, err)
	require.Equal(t, catalog.PlanStatusCompleted, plan.Status)

	completed, err := store.ListCompletedStepsOrdered(ctx, planID)
	require.NoError(t, err)
	require.Len(t, completed, 1)
}

func TestExecuteDeleteAlreadyGoneWarnsNotFails(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	dir := t.TempDir()
	driveID := seedDrive(t, store, "d1", dir)

	srcPath := filepath.Join(dir, "gone.txt")
	require.NoError(t, os.WriteFile(srcPath, []byte("x"), 0o644))

	f, err := store.GetFile(ctx, mustUpsert(t, store, driveID, "gone.txt", srcPath, 1))
	require.NoError(t, err)

	pl := planner.New(store, planner.DefaultOptions(), testLogger())
	planID, err := pl.CreateDeleteTrash(ctx, []catalog.File{f})
	require.NoError(t, err)
	require.NoError(t, pl.Approve(ctx, planID))

	// Remove the file out from under the plan before execution.
	require.NoError(t, os.Remove(srcPath))

	opts := DefaultOptions()
	opts.DryRun = false
	eng := New(store, opts, testLogger())

	require.NoError(t, eng.Execute(ctx, planID))

	plan, err := store.GetPlan(ctx, planID)
	require.NoError(t, err)
	require.Equal(t, catalog.PlanStatusCompleted, plan.Status)
}

func TestExecuteDeleteSourceChangedAborts(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	dir := t.TempDir()
	driveID := seedDrive(t, store, "d1", dir)

	srcPath := filepath.Join(dir, "changed.txt")
	require.NoError(t, os.WriteFile(srcPath, []byte("original"), 0o644))

	f, err := store.GetFile(ctx, mustUpsert(t, store, driveID, "changed.txt", srcPath, 8))
	require.NoError(t, err)

	pl := planner.New(store, planner.DefaultOptions(), testLogger())
	planID, err := pl.CreateDeleteTrash(ctx, []catalog.File{f})
	require.NoError(t, err)
	require.NoError(t, pl.Approve(ctx, planID))

	steps, err := store.ListStepsForPlan(ctx, planID)
	require.NoError(t, err)

	staleHash, err := hashutil.Compute(srcPath)
	require.NoError(t, err)
	require.NoError(t, store.SetStepHashes(ctx, steps[0].ID, &staleHash, nil))

	// Mutate the file after the pre_hash was captured.
	require.NoError(t, os.WriteFile(srcPath, []byte("mutated content"), 0o644))

	opts := DefaultOptions()
	opts.DryRun = false
	eng := New(store, opts, testLogger())

	err = eng.Execute(ctx, planID)
	require.Error(t, err)

	plan, err := store.GetPlan(ctx, planID)
	require.NoError(t, err)
	require.Equal(t, catalog.PlanStatusAborted, plan.Status)

	_, statErr := os.Stat(srcPath)
	require.NoError(t, statErr, "file must survive a failed safety check")
}

func TestExecuteHardlinkAndSymlink(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	dir := t.TempDir()
	driveID := seedDrive(t, store, "d1", dir)

	srcPath := filepath.Join(dir, "orig.txt")
	require.NoError(t, os.WriteFile(srcPath, []byte("data"), 0o644))

	fileID := mustUpsert(t, store, driveID, "orig.txt", srcPath, 4)

	hardDest := filepath.Join(dir, "hard.txt")
	symDest := filepath.Join(dir, "sym.txt")

	plan := catalog.Plan{TotalFiles: 2, TotalBytes: 8}
	steps := []catalog.NewStep{
		{FileID: fileID, Action: catalog.ActionHardlink, SourcePath: srcPath, DestPath: &hardDest, StepOrder: 0},
		{FileID: fileID, Action: catalog.ActionSymlink, SourcePath: srcPath, DestPath: &symDest, StepOrder: 1},
	}

	planID, err := store.CreatePlanWithSteps(ctx, plan, steps, "link test")
	require.NoError(t, err)
	require.NoError(t, store.ApprovePlan(ctx, planID))

	opts := DefaultOptions()
	opts.DryRun = false
	opts.EnforceSafety = false
	eng := New(store, opts, testLogger())

	require.NoError(t, eng.Execute(ctx, planID))

	_, err = os.Stat(hardDest)
	require.NoError(t, err)

	target, err := os.Readlink(symDest)
	require.NoError(t, err)
	require.Equal(t, srcPath, target)
}

func TestExecuteRejectsNonApprovedPlan(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	dir := t.TempDir()
	driveID := seedDrive(t, store, "d1", dir)

	srcPath := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(srcPath, []byte("a"), 0o644))

	f, err := store.GetFile(ctx, mustUpsert(t, store, driveID, "a.txt", srcPath, 1))
	require.NoError(t, err)

	pl := planner.New(store, planner.DefaultOptions(), testLogger())
	planID, err := pl.CreateDeleteTrash(ctx, []catalog.File{f})
	require.NoError(t, err)

	opts := DefaultOptions()
	opts.DryRun = false
	eng := New(store, opts, testLogger())

	err = eng.Execute(ctx, planID)
	require.Error(t, err)
}

func TestDryRunPerformsNoIO(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	dir := t.TempDir()
	driveID := seedDrive(t, store, "d1", dir)

	srcPath := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(srcPath, []byte("a"), 0o644))

	f, err := store.GetFile(ctx, mustUpsert(t, store, driveID, "a.txt", srcPath, 1))
	require.NoError(t, err)

	pl := planner.New(store, planner.DefaultOptions(), testLogger())
	planID, err := pl.CreateDeleteTrash(ctx, []catalog.File{f})
	require.NoError(t, err)
	require.NoError(t, pl.Approve(ctx, planID))

	eng := New(store, DefaultOptions(), testLogger())
	require.NoError(t, eng.Execute(ctx, planID))

	_, statErr := os.Stat(srcPath)
	require.NoError(t, statErr)

	plan, err := store.GetPlan(ctx, planID)
	require.NoError(t, err)
	require.Equal(t, catalog.PlanStatusApproved, plan.Status, "dry run must not advance plan status")
}

func TestExecuteMigrateCopiesFile(t *testing.T) {
	if !rsyncAvailable() {
		t.Skip("rsync not available, skipping")
	}

	ctx := context.Background()
	store := openTestStore(t)
	srcDir := t.TempDir()
	dstDir := t.TempDir()

	srcDriveID := seedDrive(t, store, "src", srcDir)
	dstDriveID := seedDrive(t, store, "dst", dstDir)

	srcPath := filepath.Join(srcDir, "photo.jpg")
	require.NoError(t, os.WriteFile(srcPath, []byte("binary-data"), 0o644))

	f, err := store.GetFile(ctx, mustUpsert(t, store, srcDriveID, "photo.jpg", srcPath, 11))
	require.NoError(t, err)

	pl := planner.New(store, planner.Options{EnforceSpaceLimits: false}, testLogger())
	planID, err := pl.CreateMigrate(ctx, []catalog.File{f}, dstDriveID, dstDir)
	require.NoError(t, err)
	require.NoError(t, pl.Approve(ctx, planID))

	opts := DefaultOptions()
	opts.DryRun = false
	eng := New(store, opts, testLogger())

	require.NoError(t, eng.Execute(ctx, planID))

	data, err := os.ReadFile(filepath.Join(dstDir, "photo.jpg"))
	require.NoError(t, err)
	require.Equal(t, "binary-data", string(data))

	_, err = os.Stat(srcPath)
	require.NoError(t, err, "migrate must not delete the source")
}

func TestExecuteMigrateCreatesMissingDestinationAncestors(t *testing.T) {
	if !rsyncAvailable() {
		t.Skip("rsync not available, skipping")
	}

	ctx := context.Background()
	store := openTestStore(t)
	srcDir := t.TempDir()
	dstDir := t.TempDir()

	srcDriveID := seedDrive(t, store, "src", srcDir)
	dstDriveID := seedDrive(t, store, "dst", dstDir)

	require.NoError(t, os.MkdirAll(filepath.Join(srcDir, "2024", "vacation"), 0o755))
	srcPath := filepath.Join(srcDir, "2024", "vacation", "photo.jpg")
	require.NoError(t, os.WriteFile(srcPath, []byte("binary-data"), 0o644))

	f, err := store.GetFile(ctx, mustUpsert(t, store, srcDriveID, "2024/vacation/photo.jpg", srcPath, 11))
	require.NoError(t, err)

	pl := planner.New(store, planner.Options{EnforceSpaceLimits: false}, testLogger())
	planID, err := pl.CreateMigrate(ctx, []catalog.File{f}, dstDriveID, dstDir)
	require.NoError(t, err)
	require.NoError(t, pl.Approve(ctx, planID))

	opts := DefaultOptions()
	opts.DryRun = false
	eng := New(store, opts, testLogger())

	require.NoError(t, eng.Execute(ctx, planID))

	data, err := os.ReadFile(filepath.Join(dstDir, "2024", "vacation", "photo.jpg"))
	require.NoError(t, err)
	require.Equal(t, "binary-data", string(data))
}

func mustUpsert(t *testing.T, store *catalog.Store, driveID int64, relPath, absPath string, size int64) int64 {
	t.Helper()

	id, err := store.UpsertFile(context.Background(), catalog.File{
		DriveID:   driveID,
		Path:      relPath,
		AbsPath:   absPath,
		Filename:  relPath,
		SizeBytes: size,
	})
	require.NoError(t, err)

	return id
}
