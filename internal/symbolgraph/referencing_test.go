package symbolgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const referencingSource = "package main\n\nfunc Outer() {\n}\n\nfunc Caller() {\n\tOuter()\n}\n"

var referencingDocumentSymbols = json.RawMessage(`[
	{
		"name":"Outer","kind":12,
		"range":{"start":{"line":2,"character":0},"end":{"line":3,"character":1}},
		"selectionRange":{"start":{"line":2,"character":5},"end":{"line":2,"character":10}}
	},
	{
		"name":"Caller","kind":12,
		"range":{"start":{"line":5,"character":0},"end":{"line":7,"character":1}},
		"selectionRange":{"start":{"line":5,"character":5},"end":{"line":5,"character":11}}
	}
]`)

func referencesResponse(t *testing.T, root string) json.RawMessage {
	t.Helper()
	raw := fmt.Sprintf(`[
		{"uri":"file://%s/a.go","range":{"start":{"line":2,"character":5},"end":{"line":2,"character":10}}},
		{"uri":"file://%s/a.go","range":{"start":{"line":6,"character":1},"end":{"line":6,"character":6}}}
	]`, root, root)
	return json.RawMessage(raw)
}

func TestReferencingSymbols_DefaultExcludesSelfAndImports(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.go"), []byte(referencingSource), 0o644))
	e, sess := newTestEngine(t, root)
	sess.script("textDocument/documentSymbol", referencingDocumentSymbols)
	sess.script("textDocument/references", referencesResponse(t, root))

	got, err := e.ReferencingSymbols(context.Background(), "a.go", 2, 5, false, false)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Caller", got[0].Name)
}

func TestReferencingSymbols_IncludeSelfKeepsSelfReference(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.go"), []byte(referencingSource), 0o644))
	e, sess := newTestEngine(t, root)
	sess.script("textDocument/documentSymbol", referencingDocumentSymbols)
	sess.script("textDocument/references", referencesResponse(t, root))

	got, err := e.ReferencingSymbols(context.Background(), "a.go", 2, 5, false, true)
	require.NoError(t, err)
	require.Len(t, got, 2)
	names := []string{got[0].Name, got[1].Name}
	assert.Contains(t, names, "Outer")
	assert.Contains(t, names, "Caller")
}

func TestReferencingSymbols_NoReferencesReturnsEmptySlice(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.go"), []byte(referencingSource), 0o644))
	e, sess := newTestEngine(t, root)
	sess.script("textDocument/references", json.RawMessage(`[]`))

	got, err := e.ReferencingSymbols(context.Background(), "a.go", 2, 5, false, false)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
