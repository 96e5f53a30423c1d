// Package symbolgraph layers the symbol-graph derivations of spec.md §4.6
// on top of raw LSP operations: documentSymbols normalization, containing/
// container-of/defining symbol resolution, and referencing-symbol
// enumeration with self/import filtering. Grounded on
// original_source/src/multilspy/language_server.py's request_document_symbols,
// request_containing_symbol, request_container_of_symbol,
// request_defining_symbol, and request_referencing_symbols — the teacher
// itself never implements any of this, so the control flow is carried over
// from the Python original and re-expressed in the teacher's Go idiom
// (explicit structs, %w-wrapped errors, no exceptions).
package symbolgraph

import "github.com/isaacphi/codegraph-lsp/internal/protocol"

// UnifiedSymbolInformation is the structural superset of spec.md §3,
// normalizing both SymbolInformation and DocumentSymbol into one shape.
type UnifiedSymbolInformation struct {
	Name           string
	Kind           protocol.SymbolKind
	Location       protocol.Location
	SelectionRange protocol.Range
	ContainerName  string
	Children       []UnifiedSymbolInformation
}

// Tree is the optional hierarchical representation documentSymbols can
// return alongside the flat list.
type Tree = []UnifiedSymbolInformation

// NormalizedHover is the {kind,value} hover projection of spec.md §3.
type NormalizedHover struct {
	Value string
	Kind  string
	Range *protocol.Range
}

// NormalizedCompletion is a completions() result entry per spec.md §3:
// {completionText, kind, detail?}.
type NormalizedCompletion struct {
	CompletionText string
	Kind           protocol.CompletionItemKind
	Detail         string
}
