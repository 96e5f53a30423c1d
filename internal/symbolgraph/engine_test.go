package symbolgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isaacphi/codegraph-lsp/internal/buffer"
	"github.com/isaacphi/codegraph-lsp/internal/logging"
	"github.com/isaacphi/codegraph-lsp/internal/protocol"
	"github.com/isaacphi/codegraph-lsp/internal/symbolcache"
)

// fakeRPCSession scripts textDocument/* responses by method name so the
// engine's algorithms can be exercised without spawning a real server,
// mirroring how the buffer package tests fake out Notify.
type fakeRPCSession struct {
	mu        sync.Mutex
	root      string
	responses map[string][]json.RawMessage
	calls     map[string]int
}

func newFakeRPCSession(root string) *fakeRPCSession {
	return &fakeRPCSession{root: root, responses: make(map[string][]json.RawMessage), calls: make(map[string]int)}
}

func (f *fakeRPCSession) script(method string, raws ...json.RawMessage) {
	f.responses[method] = raws
}

func (f *fakeRPCSession) callCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeRPCSession) CallUncancellable(ctx context.Context, method string, params, result any) error {
	f.mu.Lock()
	seq := f.responses[method]
	idx := f.calls[method]
	if idx < len(seq) {
		f.calls[method] = idx + 1
	} else if len(seq) > 0 {
		idx = len(seq) - 1
	}
	f.mu.Unlock()

	if idx >= len(seq) {
		return fmt.Errorf("fakeRPCSession: no scripted response for %s", method)
	}
	if result == nil {
		return nil
	}
	return json.Unmarshal(seq[idx], result)
}

func (f *fakeRPCSession) Notify(ctx context.Context, method string, params any) error { return nil }

func (f *fakeRPCSession) ToURI(absPath string) protocol.DocumentUri {
	return protocol.DocumentUri("file://" + absPath)
}

func (f *fakeRPCSession) AbsPathFromURI(uri protocol.DocumentUri) (string, error) {
	s := string(uri)
	return s[len("file://"):], nil
}

func (f *fakeRPCSession) RelativePath(absPath string) string {
	rel, err := filepath.Rel(f.root, absPath)
	if err != nil {
		return absPath
	}
	return rel
}

func (f *fakeRPCSession) AbsPath(relOrAbs string) (string, protocol.DocumentUri) {
	abs := relOrAbs
	if !filepath.IsAbs(relOrAbs) {
		abs = filepath.Join(f.root, relOrAbs)
	}
	return abs, f.ToURI(abs)
}

func (f *fakeRPCSession) Logger() logging.Sink { return logging.Nop }

func newTestEngine(t *testing.T, root string) (*Engine, *fakeRPCSession) {
	t.Helper()
	sess := newFakeRPCSession(root)
	bufs := buffer.New(nil)
	cache, err := symbolcache.Load(filepath.Join(root, "cache.bin"))
	require.NoError(t, err)
	return New(sess, bufs, cache, "go"), sess
}

const sampleSource = "package main\n\nfunc Outer() {\n\tx := 1\n\treturn\n}\n"

var documentSymbolResponse = json.RawMessage(`[
	{
		"name":"Outer","kind":12,
		"range":{"start":{"line":2,"character":0},"end":{"line":5,"character":1}},
		"selectionRange":{"start":{"line":2,"character":5},"end":{"line":2,"character":10}}
	}
]`)

func TestEngine_ContainingSymbol_FindsInnermostContainer(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.go"), []byte(sampleSource), 0o644))
	e, sess := newTestEngine(t, root)
	sess.script("textDocument/documentSymbol", documentSymbolResponse)

	got, err := e.ContainingSymbol(context.Background(), "a.go", 3, intPtr(2), false)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Outer", got.Name)
}

func TestEngine_ContainingSymbol_BlankLineShortCircuits(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.go"), []byte(sampleSource), 0o644))
	e, sess := newTestEngine(t, root)
	sess.script("textDocument/documentSymbol", documentSymbolResponse)

	got, err := e.ContainingSymbol(context.Background(), "a.go", 1, nil, false)
	require.NoError(t, err)
	assert.Nil(t, got, "a blank line must short-circuit to nil without an RPC round trip")
	assert.Equal(t, 0, sess.callCount("textDocument/documentSymbol"))
}

func TestEngine_DocumentSymbols_CacheHitAvoidsSecondRPC(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.go"), []byte(sampleSource), 0o644))
	e, sess := newTestEngine(t, root)
	sess.script("textDocument/documentSymbol", documentSymbolResponse)

	_, _, err := e.DocumentSymbols(context.Background(), "a.go")
	require.NoError(t, err)
	_, _, err = e.DocumentSymbols(context.Background(), "a.go")
	require.NoError(t, err)

	assert.Equal(t, 1, sess.callCount("textDocument/documentSymbol"), "second call with unchanged content hash must hit the cache")
}

func TestEngine_Completions_RetriesUntilComplete(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.go"), []byte(sampleSource), 0o644))
	e, sess := newTestEngine(t, root)
	sess.script("textDocument/completion",
		json.RawMessage(`{"isIncomplete":true,"items":[]}`),
		json.RawMessage(`{"isIncomplete":true,"items":[]}`),
		json.RawMessage(`{"isIncomplete":false,"items":[{"insertText":"Foo()"}]}`),
	)

	out, err := e.Completions(context.Background(), "a.go", 3, 2, false)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Foo()", out[0].CompletionText)
	assert.Equal(t, 3, sess.callCount("textDocument/completion"))
}

func TestEngine_Completions_AllowIncompleteStopsImmediately(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.go"), []byte(sampleSource), 0o644))
	e, sess := newTestEngine(t, root)
	sess.script("textDocument/completion", json.RawMessage(`{"isIncomplete":true,"items":[{"label":"Partial"}]}`))

	out, err := e.Completions(context.Background(), "a.go", 3, 2, true)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Partial", out[0].CompletionText)
	assert.Equal(t, 1, sess.callCount("textDocument/completion"))
}

func TestEngine_Completions_FiltersKeywordsFallsBackToTextEditAndDedupes(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.go"), []byte(sampleSource), 0o644))
	e, sess := newTestEngine(t, root)
	sess.script("textDocument/completion", json.RawMessage(`{"isIncomplete":false,"items":[
		{"label":"return","kind":14},
		{"kind":6,"textEdit":{"range":{"start":{"line":3,"character":2},"end":{"line":3,"character":2}},"newText":"x"}},
		{"kind":6,"textEdit":{"range":{"start":{"line":3,"character":2},"end":{"line":3,"character":2}},"newText":"x"}}
	]}`))

	out, err := e.Completions(context.Background(), "a.go", 3, 2, false)
	require.NoError(t, err)
	require.Len(t, out, 1, "the keyword item must be dropped and the two identical textEdit items deduplicated")
	assert.Equal(t, "x", out[0].CompletionText)
}

func intPtr(i int) *int { return &i }
