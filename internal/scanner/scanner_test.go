package scanner

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prune-dev/prune/internal/catalog"
)

// fakeStore records every UpsertFile call for assertions, guarded by a mutex
// since the scanner's writer goroutine is the only caller but tests may
// inspect state concurrently with teardown.
type fakeStore struct {
	mu    sync.Mutex
	files []catalog.File
}

func (f *fakeStore) UpsertFile(_ context.Context, file catalog.File) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.files = append(f.files, file)

	return int64(len(f.files)), nil
}

func (f *fakeStore) byPath(path string) (catalog.File, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, rec := range f.files {
		if rec.Path == path {
			return rec, true
		}
	}

	return catalog.File{}, false
}

func TestScan_IndexesRegularFilesOnly(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b.txt"), []byte("world"), 0o644))

	store := &fakeStore{}
	s := New(1, store, Options{}, nil)

	result, err := s.Scan(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 2, result.FilesIndexed)
	assert.Equal(t, int64(10), result.BytesIndexed)
	assert.GreaterOrEqual(t, result.DirectoriesSeen, 1)

	rec, ok := store.byPath("a.txt")
	require.True(t, ok)
	assert.Equal(t, int64(5), rec.SizeBytes)
	assert.Equal(t, catalog.FileStatusIndexed, rec.Status)
	assert.Nil(t, rec.MD5Hash)
	assert.Nil(t, rec.Blake3Hash)
}

func TestScan_RecordsSymlinkTarget(t *testing.T) {
	dir := t.TempDir()

	target := filepath.Join(dir, "real.txt")
	require.NoError(t, os.WriteFile(target, []byte("data"), 0o644))

	link := filepath.Join(dir, "link.txt")
	require.NoError(t, os.Symlink(target, link))

	store := &fakeStore{}
	s := New(1, store, Options{}, nil)

	_, err := s.Scan(context.Background(), dir)
	require.NoError(t, err)

	rec, ok := store.byPath("link.txt")
	require.True(t, ok)
	assert.True(t, rec.IsSymlink)
	require.NotNil(t, rec.SymlinkTarget)
	assert.Equal(t, target, *rec.SymlinkTarget)
	assert.Nil(t, rec.MD5Hash)
}

func TestScan_ComputesHashWhenRequested(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0o644))

	store := &fakeStore{}
	s := New(1, store, Options{Hash: HashMD5}, nil)

	_, err := s.Scan(context.Background(), dir)
	require.NoError(t, err)

	rec, ok := store.byPath("a.txt")
	require.True(t, ok)
	require.NotNil(t, rec.MD5Hash)
	assert.Len(t, *rec.MD5Hash, 32)
}

func TestScan_SkipsHashingWhenNotRequested(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0o644))

	store := &fakeStore{}
	s := New(1, store, Options{Hash: HashNone}, nil)

	_, err := s.Scan(context.Background(), dir)
	require.NoError(t, err)

	rec, ok := store.byPath("a.txt")
	require.True(t, ok)
	assert.Nil(t, rec.MD5Hash)
	assert.Nil(t, rec.Blake3Hash)
}

func TestScan_EmptyDirectoryProducesNoFiles(t *testing.T) {
	dir := t.TempDir()

	store := &fakeStore{}
	s := New(1, store, Options{}, nil)

	result, err := s.Scan(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 0, result.FilesIndexed)
	assert.Empty(t, store.files)
}

func TestOptionsWorkers_DefaultsToFour(t *testing.T) {
	assert.Equal(t, 4, Options{}.workers())
	assert.Equal(t, 2, Options{Workers: 2}.workers())
}
