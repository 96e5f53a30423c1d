package buffer

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isaacphi/codegraph-lsp/internal/protocol"
)

// fakeSender is a minimal sender that records every notification sent, so
// tests can assert didOpen/didClose/didChange fire exactly when spec.md
// §4.4 says they should without spawning a real language server.
type fakeSender struct {
	mu    sync.Mutex
	root  string
	calls []string
}

func newFakeSender(root string) *fakeSender { return &fakeSender{root: root} }

func (f *fakeSender) Notify(ctx context.Context, method string, params any) error {
	f.mu.Lock()
	f.calls = append(f.calls, method)
	f.mu.Unlock()
	return nil
}

func (f *fakeSender) ToURI(absPath string) protocol.DocumentUri {
	return protocol.DocumentUri("file://" + absPath)
}

func (f *fakeSender) RelativePath(absPath string) string {
	rel, err := filepath.Rel(f.root, absPath)
	if err != nil {
		return absPath
	}
	return rel
}

func (f *fakeSender) AbsPath(relOrAbs string) (string, protocol.DocumentUri) {
	abs := relOrAbs
	if !filepath.IsAbs(relOrAbs) {
		abs = filepath.Join(f.root, relOrAbs)
	}
	return abs, f.ToURI(abs)
}

func (f *fakeSender) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == method {
			n++
		}
	}
	return n
}

func writeTempFile(t *testing.T, contents string) (dir, rel string) {
	t.Helper()
	dir = t.TempDir()
	rel = "file.go"
	require.NoError(t, os.WriteFile(filepath.Join(dir, rel), []byte(contents), 0o644))
	return dir, rel
}

func TestOpenScope_EmitsDidOpenOnceAcrossMultipleOpens(t *testing.T) {
	dir, rel := writeTempFile(t, "package main\n")
	s := newFakeSender(dir)
	m := New(nil)

	h1, err := m.OpenScope(rel, "go", s, context.Background())
	require.NoError(t, err)
	h2, err := m.OpenScope(rel, "go", s, context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, s.count("textDocument/didOpen"))
	fb, ok := m.Get(filepath.Join(dir, rel))
	require.True(t, ok)
	assert.Equal(t, 2, fb.RefCount)

	require.NoError(t, h1.Release())
	assert.Equal(t, 0, s.count("textDocument/didClose"), "refcount still 1, didClose must not fire yet")

	require.NoError(t, h2.Release())
	assert.Equal(t, 1, s.count("textDocument/didClose"), "last release must emit exactly one didClose")
	assert.Equal(t, 0, m.Len())
}

func TestInsertThenDelete_RoundTripsToOriginalContent(t *testing.T) {
	dir, rel := writeTempFile(t, "line one\nline two\n")
	s := newFakeSender(dir)
	m := New(nil)

	h, err := m.OpenScope(rel, "go", s, context.Background())
	require.NoError(t, err)
	defer h.Release()

	endPos, err := m.Insert(context.Background(), s, rel, 0, 4, "XYZ")
	require.NoError(t, err)
	assert.Equal(t, 0, endPos.Line)
	assert.Equal(t, 7, endPos.Character)

	text, err := m.TextOf(s, rel)
	require.NoError(t, err)
	assert.Equal(t, "lineXYZ one\nline two\n", text)

	deleted, err := m.Delete(context.Background(), s, rel, protocol.Position{Line: 0, Character: 4}, protocol.Position{Line: 0, Character: 7})
	require.NoError(t, err)
	assert.Equal(t, "XYZ", deleted)

	text, err = m.TextOf(s, rel)
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two\n", text)
	assert.Equal(t, 2, s.count("textDocument/didChange"))
}

func TestOperationsOnUnopenedBuffer_ReturnErrNotOpen(t *testing.T) {
	dir, rel := writeTempFile(t, "x\n")
	s := newFakeSender(dir)
	m := New(nil)

	_, err := m.Insert(context.Background(), s, rel, 0, 0, "a")
	assert.ErrorIs(t, err, ErrNotOpen)

	_, err = m.TextOf(s, rel)
	assert.ErrorIs(t, err, ErrNotOpen)
}

func TestDetectLanguageID(t *testing.T) {
	assert.Equal(t, "python", DetectLanguageID("foo/bar.py"))
	assert.Equal(t, "go", DetectLanguageID("foo/bar.go"))
	assert.Equal(t, "plaintext", DetectLanguageID("foo/bar.unknownext"))
}
