package symbolcache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isaacphi/codegraph-lsp/internal/protocol"
)

func TestLoad_AbsentFileYieldsEmptyCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.bin")
	c, err := Load(path)
	require.NoError(t, err)
	assert.False(t, c.Dirty())
	_, ok := c.Get("foo.go", "deadbeef")
	assert.False(t, ok)
}

func TestLoad_CorruptFileYieldsEmptyCacheNotError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.bin")
	require.NoError(t, os.WriteFile(path, []byte("not a valid cache file at all"), 0o644))
	c, err := Load(path)
	require.NoError(t, err)
	assert.False(t, c.Dirty())
	_, ok := c.Get("foo.go", "somehash")
	assert.False(t, ok)
}

func TestLoad_EmptyFileYieldsEmptyCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.bin")
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	c, err := Load(path)
	require.NoError(t, err)
	_, ok := c.Get("foo.go", "x")
	assert.False(t, ok)
}

func TestPutGet_HitRequiresMatchingContentHash(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "cache.bin"))
	require.NoError(t, err)

	entry := Entry{
		ContentHash: "abc123",
		Symbols:     []protocol.SymbolInformation{{Name: "Foo", Kind: protocol.Function}},
	}
	c.Put("pkg/file.go", entry)
	assert.True(t, c.Dirty())

	got, ok := c.Get("pkg/file.go", "abc123")
	require.True(t, ok)
	assert.Equal(t, "Foo", got.Symbols[0].Name)

	_, ok = c.Get("pkg/file.go", "changed-hash")
	assert.False(t, ok, "a stale hash must never be returned as a hit")
}

func TestFlushThenLoad_RoundTripsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cache.bin")
	c, err := Load(path)
	require.NoError(t, err)

	c.Put("pkg/file.go", Entry{
		ContentHash: "h1",
		Tree: []protocol.DocumentSymbol{
			{Name: "Thing", Kind: protocol.Class},
		},
	})
	require.NoError(t, c.Flush())
	assert.False(t, c.Dirty(), "flush must clear the dirty flag")

	reloaded, err := Load(path)
	require.NoError(t, err)
	entry, ok := reloaded.Get("pkg/file.go", "h1")
	require.True(t, ok)
	assert.Equal(t, "Thing", entry.Tree[0].Name)
}

func TestFlush_NoopWhenNotDirty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.bin")
	c, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, c.Flush())
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "flush of a never-dirtied cache must not create a file")
}

func TestDefaultPath(t *testing.T) {
	assert.Equal(t, filepath.Join("/repo", ".multilspy", "cache", "document_symbols_cache.bin"), DefaultPath("/repo"))
}
