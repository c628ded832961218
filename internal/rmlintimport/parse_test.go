package rmlintimport

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStringDuplicateFile(t *testing.T) {
	p := New()
	err := p.ParseString(`{"type":"duplicate_file","path":"/tmp/file1.txt","size":1024,"checksum":"abc123","is_original":true,"depth":1,"inode":12345,"disk_id":1}`)
	require.NoError(t, err)

	require.Len(t, p.Lints(), 1)
	lint := p.Lints()[0]
	assert.Equal(t, LintDuplicateFile, lint.Type)
	assert.Equal(t, int64(1024), lint.Size)
	require.NotNil(t, lint.Checksum)
	assert.Equal(t, "abc123", *lint.Checksum)
	assert.True(t, lint.IsOriginal)
}

func TestParseStringMultipleLints(t *testing.T) {
	p := New()
	input := `{"type":"duplicate_file","path":"/tmp/file1.txt","size":1024,"checksum":"abc123","is_original":true}
{"type":"duplicate_file","path":"/tmp/file2.txt","size":1024,"checksum":"abc123","is_original":false}
{"type":"emptyfile","path":"/tmp/empty.txt","size":0}
`
	require.NoError(t, p.ParseString(input))
	assert.Len(t, p.Lints(), 3)
}

func TestParseStringSkipsCommentsAndMalformed(t *testing.T) {
	p := New()
	input := `// a comment
{"type":"duplicate_file","path":"/tmp/file1.txt","size":1024,"checksum":"abc123"}
not json at all
`
	require.NoError(t, p.ParseString(input))
	assert.Len(t, p.Lints(), 1)
}

func TestExtractGroups(t *testing.T) {
	p := New()
	input := `{"type":"duplicate_file","path":"/tmp/file1.txt","size":1024,"checksum":"abc123","is_original":true}
{"type":"duplicate_file","path":"/tmp/file2.txt","size":1024,"checksum":"abc123","is_original":false}
{"type":"duplicate_file","path":"/tmp/file3.txt","size":2048,"checksum":"def456","is_original":true}
{"type":"duplicate_file","path":"/tmp/file4.txt","size":2048,"checksum":"def456","is_original":false}
`
	require.NoError(t, p.ParseString(input))

	groups := p.ExtractGroups()
	require.Len(t, groups, 2)

	byHash := make(map[string]Group)
	for _, g := range groups {
		byHash[g.Hash] = g
	}

	g1 := byHash["abc123"]
	assert.Len(t, g1.Files, 2)
	assert.Equal(t, int64(1024), g1.TotalSize)
	assert.GreaterOrEqual(t, g1.OriginalIdx, 0)

	g2 := byHash["def456"]
	assert.Len(t, g2.Files, 2)
	assert.Equal(t, int64(2048), g2.TotalSize)
}

func TestExtractGroupsDiscardsSingletons(t *testing.T) {
	p := New()
	require.NoError(t, p.ParseString(`{"type":"duplicate_file","path":"/tmp/a.txt","size":1,"checksum":"onlyone"}`))
	assert.Empty(t, p.ExtractGroups())
}

func TestHasCrossDriveDuplicates(t *testing.T) {
	p := New()
	input := `{"type":"duplicate_file","path":"/tmp/file1.txt","size":1024,"checksum":"abc123","is_original":true,"disk_id":1}
{"type":"duplicate_file","path":"/mnt/file2.txt","size":1024,"checksum":"abc123","is_original":false,"disk_id":2}
`
	require.NoError(t, p.ParseString(input))
	assert.True(t, p.HasCrossDriveDuplicates())
}

func TestHasCrossDriveDuplicatesFalseWhenSameDisk(t *testing.T) {
	p := New()
	input := `{"type":"duplicate_file","path":"/tmp/file1.txt","size":1024,"checksum":"abc123","disk_id":1}
{"type":"duplicate_file","path":"/tmp/file2.txt","size":1024,"checksum":"abc123","disk_id":1}
`
	require.NoError(t, p.ParseString(input))
	assert.False(t, p.HasCrossDriveDuplicates())
}

func TestStatistics(t *testing.T) {
	p := New()
	input := `{"type":"duplicate_file","path":"/tmp/file1.txt","size":1024,"checksum":"abc123","is_original":true}
{"type":"duplicate_file","path":"/tmp/file2.txt","size":1024,"checksum":"abc123","is_original":false}
{"type":"emptyfile","path":"/tmp/empty.txt","size":0}
{"type":"emptydir","path":"/tmp/emptydir","size":0}
`
	require.NoError(t, p.ParseString(input))

	stats := p.Statistics()
	assert.Equal(t, 2, stats.DuplicateFiles)
	assert.Equal(t, 1, stats.DuplicateGroups)
	assert.Equal(t, int64(1024), stats.DuplicateSize)
	assert.Equal(t, 1, stats.EmptyFiles)
	assert.Equal(t, 1, stats.EmptyDirs)
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/lints.ndjson"
	content := `{"type":"duplicate_file","path":"/tmp/file1.txt","size":1024,"checksum":"abc123"}
{"type":"duplicate_file","path":"/tmp/file2.txt","size":1024,"checksum":"abc123"}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	p, err := ParseOutput(path)
	require.NoError(t, err)
	assert.Len(t, p.Lints(), 2)
}
