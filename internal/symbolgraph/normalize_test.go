package symbolgraph

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isaacphi/codegraph-lsp/internal/protocol"
)

func TestNormalizeDocumentSymbols_FlatSymbolInformation(t *testing.T) {
	raw := json.RawMessage(`[
		{"name":"Foo","kind":12,"location":{"uri":"file:///repo/a.go","range":{"start":{"line":1,"character":0},"end":{"line":1,"character":3}}}}
	]`)

	flat, tree, err := normalizeDocumentSymbols(raw, "file:///repo/a.go", "/repo/a.go", "a.go")
	require.NoError(t, err)
	assert.Nil(t, tree, "flat SymbolInformation[] never produces a tree")
	require.Len(t, flat, 1)
	assert.Equal(t, "Foo", flat[0].Name)
	assert.Equal(t, protocol.Function, flat[0].Kind)
	assert.Equal(t, "/repo/a.go", flat[0].Location.AbsolutePath)
	assert.Equal(t, "a.go", flat[0].Location.RelativePath)
	assert.Equal(t, flat[0].Location.Range, flat[0].SelectionRange)
}

func TestNormalizeDocumentSymbols_HierarchicalDocumentSymbol(t *testing.T) {
	raw := json.RawMessage(`[
		{
			"name":"Outer","kind":5,
			"range":{"start":{"line":0,"character":0},"end":{"line":10,"character":0}},
			"selectionRange":{"start":{"line":0,"character":6},"end":{"line":0,"character":11}},
			"children":[
				{
					"name":"Inner","kind":6,
					"range":{"start":{"line":1,"character":1},"end":{"line":2,"character":1}},
					"selectionRange":{"start":{"line":1,"character":5},"end":{"line":1,"character":10}}
				}
			]
		}
	]`)

	flat, tree, err := normalizeDocumentSymbols(raw, "file:///repo/a.go", "/repo/a.go", "a.go")
	require.NoError(t, err)
	require.Len(t, tree, 1)
	assert.Equal(t, "Outer", tree[0].Name)
	require.Len(t, tree[0].Children, 1)
	assert.Equal(t, "Inner", tree[0].Children[0].Name)

	require.Len(t, flat, 2, "the flat list must include every node, including nested children")
	assert.Equal(t, "Outer", flat[0].Name)
	assert.Equal(t, "Inner", flat[1].Name)
	assert.Equal(t, "/repo/a.go", flat[1].Location.AbsolutePath)
}

func TestNormalizeDocumentSymbols_EmptyResult(t *testing.T) {
	flat, tree, err := normalizeDocumentSymbols(json.RawMessage(`[]`), "file:///repo/a.go", "/repo/a.go", "a.go")
	require.NoError(t, err)
	assert.Nil(t, flat)
	assert.Nil(t, tree)
}

func TestNormalizeDocumentSymbols_NotAList_IsProtocolViolation(t *testing.T) {
	_, _, err := normalizeDocumentSymbols(json.RawMessage(`{"oops":true}`), "file:///repo/a.go", "/repo/a.go", "a.go")
	assert.ErrorIs(t, err, ErrProtocolViolation)
}
