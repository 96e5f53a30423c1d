// Package symbolcache implements the content-addressed persistent document
// symbol cache of spec.md §4.5/§9: a versioned, self-describing binary
// format (magic header + version byte) tolerant of absent/corrupt files.
// Grounded on the teacher's persistence-free design — the teacher never
// caches document symbols at all — generalized from the teacher's general
// "never fail construction on a missing optional file" posture (seen in
// its config/workspace-root probing) and from the Python original's
// document_symbols_cache, whose load/save pair is walked in
// original_source/src/multilspy/language_server.py.
package symbolcache

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	pkgerrors "github.com/pkg/errors"

	"github.com/isaacphi/codegraph-lsp/internal/protocol"
)

// magic identifies this cache's binary format; version gates forward
// compatibility. Loading a file with a different magic or version starts
// empty rather than failing (spec.md §9).
const (
	magic   = "CGLC"
	version = byte(1)
)

// Entry is one cached document's symbols, keyed by content hash.
type Entry struct {
	ContentHash string
	Symbols     []protocol.SymbolInformation
	Tree        []protocol.DocumentSymbol
}

// Cache is the in-memory, disk-backed symbol cache. Keyed by repo-relative
// path; spec.md §4.5 requires identical files at different paths to be
// stored independently.
type Cache struct {
	mu    sync.RWMutex
	path  string
	dirty bool
	data  map[string]Entry
}

// Load reads cacheFile if present; an absent, empty, or unreadable file
// yields an empty cache rather than an error, per spec.md §6.
func Load(cacheFile string) (*Cache, error) {
	c := &Cache{path: cacheFile, data: make(map[string]Entry)}

	raw, err := os.ReadFile(cacheFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return c, nil
		}
		return c, nil // unreadable: start empty, not fatal
	}
	if len(raw) == 0 {
		return c, nil
	}

	decoded, err := decode(raw)
	if err != nil {
		// Corrupt or version-mismatched: start empty, matching §9's
		// "refuse to load mismatched versions (start empty, not fatal)".
		return c, nil
	}
	c.data = decoded
	return c, nil
}

func decode(raw []byte) (map[string]Entry, error) {
	if len(raw) < len(magic)+1 {
		return nil, fmt.Errorf("symbolcache: truncated header")
	}
	if string(raw[:len(magic)]) != magic {
		return nil, fmt.Errorf("symbolcache: bad magic")
	}
	if raw[len(magic)] != version {
		return nil, fmt.Errorf("symbolcache: unsupported version %d", raw[len(magic)])
	}
	body := raw[len(magic)+1:]

	var data map[string]Entry
	dec := gob.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(&data); err != nil {
		return nil, pkgerrors.Wrap(err, "symbolcache: decode body")
	}
	return data, nil
}

// Get returns the cached entry for relPath iff its stored content hash
// matches currentHash; otherwise the entry is stale and (Entry{}, false)
// is returned — it must never be returned to a caller (spec.md §3).
func (c *Cache) Get(relPath, currentHash string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.data[relPath]
	if !ok || e.ContentHash != currentHash {
		return Entry{}, false
	}
	return e, true
}

// Put stores (or replaces) the entry for relPath and marks the cache
// dirty, per spec.md §9's "initialized to false, set to true on any
// mutation" fix to the source's bug.
func (c *Cache) Put(relPath string, e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[relPath] = e
	c.dirty = true
}

// Dirty reports whether the cache has unsaved mutations.
func (c *Cache) Dirty() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dirty
}

// Flush persists the cache to disk iff dirty (spec.md §4.5: "Persistence
// happens on session stop iff dirty").
func (c *Cache) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dirty {
		return nil
	}

	var body bytes.Buffer
	enc := gob.NewEncoder(&body)
	if err := enc.Encode(c.data); err != nil {
		return pkgerrors.Wrap(err, "symbolcache: encode")
	}

	var out bytes.Buffer
	out.WriteString(magic)
	out.WriteByte(version)
	out.Write(body.Bytes())

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("symbolcache: mkdir: %w", err)
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, out.Bytes(), 0o644); err != nil {
		return fmt.Errorf("symbolcache: write: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("symbolcache: rename: %w", err)
	}
	c.dirty = false
	return nil
}

// DefaultPath returns the conventional cache location for a repository
// root, per spec.md §6: "<repo>/.multilspy/cache/document_symbols_cache.<bin>".
func DefaultPath(repoRoot string) string {
	return filepath.Join(repoRoot, ".multilspy", "cache", "document_symbols_cache.bin")
}
