package classify

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

func seedDrive(t *testing.T, store *catalog.Store, label string) int64 {
	t.Helper()

	id, err := store.RegisterDrive(context.Background(), catalog.Drive{
		Label:    label,
		Role:     catalog.RoleSource,
		IsOnline: true,
		Backend:  catalog.BackendLocal,
	})
	require.NoError(t, err)

	return id
}

func TestApplierClassifiesMatchedFiles(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	driveID := seedDrive(t, store, "d1")

	id, err := store.UpsertFile(ctx, catalog.File{
		DriveID:   driveID,
		Path:      "photo.jpg",
		AbsPath:   "/mnt/d1/photo.jpg",
		Filename:  "photo.jpg",
		Extension: strPtr("jpg"),
		SizeBytes: 2048,
	})
	require.NoError(t, err)

	rules, err := Parse(`
[rules.images]
type = "extension"
extensions = ["jpg"]
category = "images"
priority = "low"
`)
	require.NoError(t, err)

	applier, err := NewApplier(store, rules, testLogger())
	require.NoError(t, err)

	result, err := applier.ClassifyStatus(ctx, catalog.FileStatusIndexed)
	require.NoError(t, err)
	require.Equal(t, 1, result.FilesClassified)
	require.Equal(t, 0, result.FilesUnmatched)

	f, err := store.GetFile(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, f.Category)
	require.Equal(t, "images", *f.Category)
	require.Equal(t, catalog.PriorityLow, f.Priority)
	require.Equal(t, catalog.FileStatusClassified, f.Status)
}

func TestApplierLeavesUnmatchedFilesUntouched(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	driveID := seedDrive(t, store, "d1")

	id, err := store.UpsertFile(ctx, catalog.File{
		DriveID:   driveID,
		Path:      "data.bin",
		AbsPath:   "/mnt/d1/data.bin",
		Filename:  "data.bin",
		Extension: strPtr("bin"),
		SizeBytes: 512,
	})
	require.NoError(t, err)

	rules, err := Parse(`
[rules.images]
type = "extension"
extensions = ["jpg"]
category = "images"
`)
	require.NoError(t, err)

	applier, err := NewApplier(store, rules, testLogger())
	require.NoError(t, err)

	result, err := applier.ClassifyStatus(ctx, catalog.FileStatusIndexed)
	require.NoError(t, err)
	require.Equal(t, 0, result.FilesClassified)
	require.Equal(t, 1, result.FilesUnmatched)

	f, err := store.GetFile(ctx, id)
	require.NoError(t, err)
	require.Nil(t, f.Category)
	require.Equal(t, catalog.FileStatusIndexed, f.Status)
}

func TestNewApplierRejectsInvalidRules(t *testing.T) {
	store := openTestStore(t)

	rules, err := Parse(`
[rules.bad]
type = "nonsense"
category = "x"
`)
	require.NoError(t, err)

	_, err = NewApplier(store, rules, testLogger())
	require.Error(t, err)
}
