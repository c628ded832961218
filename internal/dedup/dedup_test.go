package dedup

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
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

	mount := "/mnt/" + label
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

func seedFileWithContent(t *testing.T, store *catalog.Store, driveID int64, dir, name string, content []byte) catalog.File {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	id, err := store.UpsertFile(context.Background(), catalog.File{
		DriveID:   driveID,
		Path:      name,
		AbsPath:   path,
		Filename:  name,
		SizeBytes: int64(len(content)),
	})
	require.NoError(t, err)

	got, err := store.GetFile(context.Background(), id)
	require.NoError(t, err)

	return got
}

func TestRefresh_GroupsIdenticalContent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	dir := t.TempDir()

	driveID := seedDrive(t, store, "drive-a")
	a := seedFileWithContent(t, store, driveID, dir, "a.bin", []byte("duplicate"))
	b := seedFileWithContent(t, store, driveID, dir, "b.bin", []byte("duplicate"))
	seedFileWithContent(t, store, driveID, dir, "c.bin", []byte("unique"))

	r := New(store, testLogger())

	result, err := r.Refresh(ctx, Options{Algorithm: MD5})
	require.NoError(t, err)

	assert.Equal(t, 1, result.GroupsCreated)
	assert.Equal(t, 2, result.DuplicateFilesCreated)
	assert.Equal(t, 3, result.FilesHashed)

	groups, err := store.ListDuplicateGroups(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 1)

	members, err := store.ListFilesByDuplicateGroup(ctx, groups[0].GroupID)
	require.NoError(t, err)
	assert.Len(t, members, 2)

	lowerID := a.ID
	if b.ID < lowerID {
		lowerID = b.ID
	}

	assert.Equal(t, &lowerID, groups[0].OriginalID)
}

func TestRefresh_SkipsAlreadyHashedUnlessRehash(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	dir := t.TempDir()

	driveID := seedDrive(t, store, "drive-a")
	seedFileWithContent(t, store, driveID, dir, "a.bin", []byte("same"))
	seedFileWithContent(t, store, driveID, dir, "b.bin", []byte("same"))

	r := New(store, testLogger())

	first, err := r.Refresh(ctx, Options{Algorithm: MD5})
	require.NoError(t, err)
	assert.Equal(t, 2, first.FilesHashed)

	second, err := r.Refresh(ctx, Options{Algorithm: MD5})
	require.NoError(t, err)
	assert.Equal(t, 0, second.FilesHashed)

	third, err := r.Refresh(ctx, Options{Algorithm: MD5, Rehash: true})
	require.NoError(t, err)
	assert.Equal(t, 2, third.FilesHashed)
}

func TestRefresh_SkipsSymlinks(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	dir := t.TempDir()

	driveID := seedDrive(t, store, "drive-a")

	target := filepath.Join(dir, "real.bin")
	require.NoError(t, os.WriteFile(target, []byte("data"), 0o644))

	linkPath := filepath.Join(dir, "link.bin")
	require.NoError(t, os.Symlink(target, linkPath))

	_, err := store.UpsertFile(ctx, catalog.File{
		DriveID:   driveID,
		Path:      "link.bin",
		AbsPath:   linkPath,
		Filename:  "link.bin",
		SizeBytes: 4,
		IsSymlink: true,
	})
	require.NoError(t, err)

	r := New(store, testLogger())

	result, err := r.Refresh(ctx, Options{Algorithm: MD5})
	require.NoError(t, err)
	assert.Equal(t, 1, result.FilesSkipped)
	assert.Equal(t, 0, result.GroupsCreated)
}

func TestParseAlgorithm(t *testing.T) {
	a, err := ParseAlgorithm("md5")
	require.NoError(t, err)
	assert.Equal(t, MD5, a)

	b, err := ParseAlgorithm("blake3")
	require.NoError(t, err)
	assert.Equal(t, Blake3, b)

	_, err = ParseAlgorithm("sha1")
	assert.Error(t, err)
}
