package symbolgraph

import (
	"encoding/json"
	"fmt"

	"github.com/isaacphi/codegraph-lsp/internal/protocol"
)

// ErrProtocolViolation is spec.md §7's ProtocolViolation: a server response
// did not match the expected shape.
var ErrProtocolViolation = fmt.Errorf("symbolgraph: protocol violation")

// normalizeDocumentSymbols implements spec.md §4.6's documentSymbols
// normalization. raw is the undecoded textDocument/documentSymbol result,
// which is either a SymbolInformation[] or a DocumentSymbol[] depending on
// server capabilities; Go's encoding/json can't discriminate a union by
// shape alone, so this first probes the first element: a "location" key
// without a "range" key marks SymbolInformation[], and anything else is
// decoded as DocumentSymbol[], in the spirit of the Python original's
// visit_tree_nodes.
func normalizeDocumentSymbols(raw json.RawMessage, uri protocol.DocumentUri, absPath, relPath string) ([]UnifiedSymbolInformation, Tree, error) {
	var probe []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, nil, fmt.Errorf("%w: documentSymbol result is not a list: %v", ErrProtocolViolation, err)
	}
	if len(probe) == 0 {
		return nil, nil, nil
	}
	_, hasLocation := probe[0]["location"]
	_, hasRange := probe[0]["range"]

	if hasLocation && !hasRange {
		var flat []protocol.SymbolInformation
		if err := json.Unmarshal(raw, &flat); err != nil {
			return nil, nil, fmt.Errorf("%w: decode SymbolInformation[]: %v", ErrProtocolViolation, err)
		}
		out := make([]UnifiedSymbolInformation, 0, len(flat))
		for _, s := range flat {
			loc := s.Location
			loc.AbsolutePath = absPath
			loc.RelativePath = relPath
			out = append(out, UnifiedSymbolInformation{
				Name:           s.Name,
				Kind:           s.Kind,
				Location:       loc,
				SelectionRange: loc.Range,
				ContainerName:  s.ContainerName,
			})
		}
		return out, nil, nil
	}

	var hier []protocol.DocumentSymbol
	if err := json.Unmarshal(raw, &hier); err != nil {
		return nil, nil, fmt.Errorf("%w: decode DocumentSymbol[]: %v", ErrProtocolViolation, err)
	}

	tree := make(Tree, 0, len(hier))
	var flat []UnifiedSymbolInformation
	for _, node := range hier {
		u := visitDocumentSymbol(node, uri, absPath, relPath, &flat)
		tree = append(tree, u)
	}
	return flat, tree, nil
}

// visitDocumentSymbol is a depth-first preorder walk (spec.md §4.6):
// each node becomes one flat entry with a synthesized location, children
// are detached from the flat copy but retained in the returned tree node.
func visitDocumentSymbol(node protocol.DocumentSymbol, uri protocol.DocumentUri, absPath, relPath string, flat *[]UnifiedSymbolInformation) UnifiedSymbolInformation {
	u := UnifiedSymbolInformation{
		Name: node.Name,
		Kind: node.Kind,
		Location: protocol.Location{
			URI:          uri,
			Range:        node.Range,
			AbsolutePath: absPath,
			RelativePath: relPath,
		},
		SelectionRange: node.SelectionRange,
	}
	*flat = append(*flat, UnifiedSymbolInformation{
		Name:           u.Name,
		Kind:           u.Kind,
		Location:       u.Location,
		SelectionRange: u.SelectionRange,
	})
	for _, child := range node.Children {
		childU := visitDocumentSymbol(child, uri, absPath, relPath, flat)
		u.Children = append(u.Children, childU)
	}
	return u
}
