package symbolgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/isaacphi/codegraph-lsp/internal/buffer"
	"github.com/isaacphi/codegraph-lsp/internal/logging"
	"github.com/isaacphi/codegraph-lsp/internal/protocol"
	"github.com/isaacphi/codegraph-lsp/internal/symbolcache"
)

// rpcSession is the subset of *session.Session the engine needs, narrowed
// the way buffer.sender narrows Session for the buffer manager.
type rpcSession interface {
	CallUncancellable(ctx context.Context, method string, params, result any) error
	Notify(ctx context.Context, method string, params any) error
	ToURI(absPath string) protocol.DocumentUri
	AbsPathFromURI(uri protocol.DocumentUri) (string, error)
	RelativePath(absPath string) string
	AbsPath(relOrAbs string) (string, protocol.DocumentUri)
	Logger() logging.Sink
}

// Engine implements spec.md §4.6 on top of a session, a buffer manager, and
// a symbol cache.
type Engine struct {
	sess   rpcSession
	bufs   *buffer.Manager
	cache  *symbolcache.Cache
	logger logging.Sink

	languageID string

	// AttributeAssignmentFallback gates the heuristic of spec.md §4.6/§9.
	AttributeAssignmentFallback bool
}

// New constructs an Engine. languageID is used when the engine itself must
// open a file not already open by a caller (e.g. to inspect a reference's
// source line).
func New(sess rpcSession, bufs *buffer.Manager, cache *symbolcache.Cache, languageID string) *Engine {
	return &Engine{sess: sess, bufs: bufs, cache: cache, logger: sess.Logger(), languageID: languageID}
}

func (e *Engine) open(ctx context.Context, relOrAbsPath string) (*buffer.Handle, error) {
	return e.bufs.OpenScope(relOrAbsPath, e.languageID, e.sess, ctx)
}

// DocumentSymbols implements spec.md §4.5+4.6: cache lookup keyed by
// content hash, falling through to textDocument/documentSymbol and
// normalization on miss.
func (e *Engine) DocumentSymbols(ctx context.Context, relOrAbsPath string) ([]UnifiedSymbolInformation, Tree, error) {
	h, err := e.open(ctx, relOrAbsPath)
	if err != nil {
		return nil, nil, err
	}
	defer h.Release()
	fb := h.Buffer()

	if entry, ok := e.cache.Get(fb.RelPath, fb.ContentHash); ok {
		flat := make([]UnifiedSymbolInformation, 0, len(entry.Symbols))
		for _, s := range entry.Symbols {
			flat = append(flat, UnifiedSymbolInformation{
				Name: s.Name, Kind: s.Kind, Location: s.Location,
				SelectionRange: s.Location.Range, ContainerName: s.ContainerName,
			})
		}
		var tree Tree
		if entry.Tree != nil {
			for _, n := range entry.Tree {
				tree = append(tree, unifyTreeNode(n, fb.URI, fb.AbsPath, fb.RelPath))
			}
		}
		if tree != nil {
			// Rebuild the flat list from the tree so each entry keeps its
			// SelectionRange, which SymbolInformation does not carry.
			flat = flat[:0]
			var walk func(Tree)
			walk = func(nodes Tree) {
				for _, n := range nodes {
					leaf := n
					leaf.Children = nil
					flat = append(flat, leaf)
					walk(n.Children)
				}
			}
			walk(tree)
		}
		return flat, tree, nil
	}

	var raw json.RawMessage
	err = e.sess.CallUncancellable(ctx, "textDocument/documentSymbol", protocol.DocumentSymbolParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: fb.URI},
	}, &raw)
	if err != nil {
		return nil, nil, err
	}

	flat, tree, err := normalizeDocumentSymbols(raw, fb.URI, fb.AbsPath, fb.RelPath)
	if err != nil {
		return nil, nil, err
	}

	flatWire := make([]protocol.SymbolInformation, 0, len(flat))
	for _, u := range flat {
		flatWire = append(flatWire, protocol.SymbolInformation{
			Name: u.Name, Kind: u.Kind, Location: u.Location, ContainerName: u.ContainerName,
		})
	}
	var treeWire []protocol.DocumentSymbol
	for _, u := range tree {
		treeWire = append(treeWire, dewifyTreeNode(u))
	}
	e.cache.Put(fb.RelPath, symbolcache.Entry{ContentHash: fb.ContentHash, Symbols: flatWire, Tree: treeWire})

	return flat, tree, nil
}

func unifyTreeNode(n protocol.DocumentSymbol, uri protocol.DocumentUri, absPath, relPath string) UnifiedSymbolInformation {
	u := UnifiedSymbolInformation{
		Name: n.Name, Kind: n.Kind,
		Location:       protocol.Location{URI: uri, Range: n.Range, AbsolutePath: absPath, RelativePath: relPath},
		SelectionRange: n.SelectionRange,
	}
	for _, c := range n.Children {
		u.Children = append(u.Children, unifyTreeNode(c, uri, absPath, relPath))
	}
	return u
}

func dewifyTreeNode(u UnifiedSymbolInformation) protocol.DocumentSymbol {
	d := protocol.DocumentSymbol{Name: u.Name, Kind: u.Kind, Range: u.Location.Range, SelectionRange: u.SelectionRange}
	for _, c := range u.Children {
		d.Children = append(d.Children, dewifyTreeNode(c))
	}
	return d
}

// containerKinds are the kinds containingSymbol considers (spec.md §4.6).
var containerKinds = map[protocol.SymbolKind]bool{
	protocol.Class:    true,
	protocol.Function: true,
	protocol.Method:   true,
	protocol.Variable: true,
}

// isWhitespaceOnly reports whether line (0-indexed) of contents is blank.
func isWhitespaceOnly(contents string, line int) bool {
	lines := strings.Split(contents, "\n")
	if line < 0 || line >= len(lines) {
		return true
	}
	return strings.TrimSpace(lines[line]) == ""
}

// ContainingSymbol implements spec.md §4.6's containingSymbol algorithm.
// col is nil when the caller does not supply a column.
func (e *Engine) ContainingSymbol(ctx context.Context, relOrAbsPath string, line int, col *int, strict bool) (*UnifiedSymbolInformation, error) {
	h, err := e.open(ctx, relOrAbsPath)
	if err != nil {
		return nil, err
	}
	fb := h.Buffer()
	blank := isWhitespaceOnly(fb.Contents, line)
	h.Release()
	if blank {
		return nil, nil
	}

	symbols, _, err := e.DocumentSymbols(ctx, relOrAbsPath)
	if err != nil {
		return nil, err
	}

	var candidates []UnifiedSymbolInformation
	for _, s := range symbols {
		if !containerKinds[s.Kind] {
			continue
		}
		oneLiner := s.Location.Range.Start.Line == s.Location.Range.End.Line
		if (s.Kind == protocol.Class || s.Kind == protocol.Function || s.Kind == protocol.Method) && oneLiner {
			continue
		}
		candidates = append(candidates, s)
	}

	var best *UnifiedSymbolInformation
	for i := range candidates {
		c := &candidates[i]
		if !rangeContains(c.Location.Range, line, col, strict) {
			continue
		}
		if best == nil ||
			c.Location.Range.Start.Line > best.Location.Range.Start.Line ||
			(c.Location.Range.Start.Line == best.Location.Range.Start.Line && c.Location.Range.Start.Character > best.Location.Range.Start.Character) {
			best = c
		}
	}
	return best, nil
}

func rangeContains(r protocol.Range, line int, col *int, strict bool) bool {
	if !r.ContainsLine(line, strict) {
		return false
	}
	if col == nil {
		return true
	}
	if strict {
		return *col > r.Start.Character
	}
	return *col >= r.Start.Character
}

// ContainerOfSymbol implements spec.md §4.6's containerOfSymbol: delegates
// to ContainingSymbol at the symbol's own start, strict=true.
func (e *Engine) ContainerOfSymbol(ctx context.Context, sym UnifiedSymbolInformation) (*UnifiedSymbolInformation, error) {
	col := sym.Location.Range.Start.Character
	return e.ContainingSymbol(ctx, sym.Location.RelativePath, sym.Location.Range.Start.Line, &col, true)
}

// Definition issues textDocument/definition and resolves derived paths.
func (e *Engine) Definition(ctx context.Context, relOrAbsPath string, line, col int) ([]protocol.Location, error) {
	h, err := e.open(ctx, relOrAbsPath)
	if err != nil {
		return nil, err
	}
	defer h.Release()
	fb := h.Buffer()

	var raw json.RawMessage
	err = e.sess.CallUncancellable(ctx, "textDocument/definition", protocol.TextDocumentPositionParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: fb.URI},
		Position:     protocol.Position{Line: line, Character: col},
	}, &raw)
	if err != nil {
		return nil, err
	}
	return decodeLocations(raw, e.sess)
}

// decodeLocations accepts the several shapes textDocument/definition and
// textDocument/references may return (Location, Location[], or
// LocationLink[]) and normalizes to []protocol.Location with derived
// paths resolved.
func decodeLocations(raw json.RawMessage, sess rpcSession) ([]protocol.Location, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}

	var list []protocol.Location
	if trimmed[0] == '[' {
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("%w: decode Location[]: %v", ErrProtocolViolation, err)
		}
	} else {
		var single protocol.Location
		if err := json.Unmarshal(raw, &single); err != nil {
			return nil, fmt.Errorf("%w: decode Location: %v", ErrProtocolViolation, err)
		}
		list = []protocol.Location{single}
	}

	for i := range list {
		abs, err := sess.AbsPathFromURI(list[i].URI)
		if err == nil {
			list[i].AbsolutePath = abs
			list[i].RelativePath = sess.RelativePath(abs)
		}
	}
	return list, nil
}

// References issues textDocument/references excluding the declaration.
func (e *Engine) References(ctx context.Context, relOrAbsPath string, line, col int) ([]protocol.Location, error) {
	h, err := e.open(ctx, relOrAbsPath)
	if err != nil {
		return nil, err
	}
	defer h.Release()
	fb := h.Buffer()

	params := struct {
		protocol.TextDocumentPositionParams
		Context struct {
			IncludeDeclaration bool `json:"includeDeclaration"`
		} `json:"context"`
	}{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: fb.URI},
			Position:     protocol.Position{Line: line, Character: col},
		},
	}
	params.Context.IncludeDeclaration = false

	var raw json.RawMessage
	if err := e.sess.CallUncancellable(ctx, "textDocument/references", params, &raw); err != nil {
		return nil, err
	}
	locs, err := decodeLocations(raw, e.sess)
	if err != nil {
		return nil, err
	}
	if locs == nil {
		return []protocol.Location{}, nil
	}
	return locs, nil
}

// DefiningSymbol implements spec.md §4.6: resolves the first definition
// location, then finds its containing symbol (non-strict).
func (e *Engine) DefiningSymbol(ctx context.Context, relOrAbsPath string, line, col int) (*UnifiedSymbolInformation, error) {
	defs, err := e.Definition(ctx, relOrAbsPath, line, col)
	if err != nil {
		return nil, err
	}
	if len(defs) == 0 {
		e.logger.Warn("definition returned none", "path", relOrAbsPath, "line", line, "col", col)
		return nil, nil
	}
	d := defs[0]
	startCol := d.Range.Start.Character
	return e.ContainingSymbol(ctx, d.RelativePath, d.Range.Start.Line, &startCol, false)
}

// Hover issues textDocument/hover and normalizes the result.
func (e *Engine) Hover(ctx context.Context, relOrAbsPath string, line, col int) (*NormalizedHover, error) {
	h, err := e.open(ctx, relOrAbsPath)
	if err != nil {
		return nil, err
	}
	defer h.Release()
	fb := h.Buffer()

	var raw json.RawMessage
	err = e.sess.CallUncancellable(ctx, "textDocument/hover", protocol.TextDocumentPositionParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: fb.URI},
		Position:     protocol.Position{Line: line, Character: col},
	}, &raw)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(string(raw)) == "" || strings.TrimSpace(string(raw)) == "null" {
		return nil, nil
	}
	return decodeHover(raw)
}

// decodeHover normalizes the three wire shapes LSP allows for
// Hover.contents: a plain string, a MarkupContent, or an array of either.
func decodeHover(raw json.RawMessage) (*NormalizedHover, error) {
	var withRange struct {
		Contents json.RawMessage `json:"contents"`
		Range    *protocol.Range `json:"range,omitempty"`
	}
	if err := json.Unmarshal(raw, &withRange); err != nil {
		return nil, fmt.Errorf("%w: decode Hover: %v", ErrProtocolViolation, err)
	}

	value, kind, err := decodeMarkupContent(withRange.Contents)
	if err != nil {
		return nil, err
	}
	return &NormalizedHover{Value: value, Kind: kind, Range: withRange.Range}, nil
}

func decodeMarkupContent(raw json.RawMessage) (value, kind string, err error) {
	trimmed := strings.TrimSpace(string(raw))
	switch {
	case len(trimmed) == 0:
		return "", "", nil
	case trimmed[0] == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", "", fmt.Errorf("%w: decode hover string contents: %v", ErrProtocolViolation, err)
		}
		return s, "plaintext", nil
	case trimmed[0] == '[':
		var arr []json.RawMessage
		if err := json.Unmarshal(raw, &arr); err != nil {
			return "", "", fmt.Errorf("%w: decode hover array contents: %v", ErrProtocolViolation, err)
		}
		var parts []string
		for _, item := range arr {
			v, _, err := decodeMarkupContent(item)
			if err != nil {
				return "", "", err
			}
			parts = append(parts, v)
		}
		return strings.Join(parts, "\n\n"), "markdown", nil
	default:
		var mc protocol.MarkupContent
		if err := json.Unmarshal(raw, &mc); err != nil {
			return "", "", fmt.Errorf("%w: decode hover MarkupContent: %v", ErrProtocolViolation, err)
		}
		return mc.Value, mc.Kind, nil
	}
}

// Completions implements spec.md §6's isIncomplete retry loop.
func (e *Engine) Completions(ctx context.Context, relOrAbsPath string, line, col int, allowIncomplete bool) ([]NormalizedCompletion, error) {
	h, err := e.open(ctx, relOrAbsPath)
	if err != nil {
		return nil, err
	}
	defer h.Release()
	fb := h.Buffer()

	const maxRetries = 30
	var list protocol.CompletionList
	for attempt := 0; attempt < maxRetries; attempt++ {
		err = e.sess.CallUncancellable(ctx, "textDocument/completion", protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: fb.URI},
			Position:     protocol.Position{Line: line, Character: col},
		}, &list)
		if err != nil {
			return nil, err
		}
		if !list.IsIncomplete || allowIncomplete {
			break
		}
		if attempt == maxRetries-1 {
			return []NormalizedCompletion{}, nil
		}
	}

	seen := make(map[NormalizedCompletion]bool, len(list.Items))
	out := make([]NormalizedCompletion, 0, len(list.Items))
	for _, item := range list.Items {
		if item.Kind == protocol.CompletionKeyword {
			continue
		}
		text := item.Label
		switch {
		case text != "":
		case item.InsertText != "":
			text = item.InsertText
		case item.TextEdit != nil:
			text = item.TextEdit.NewText
		}
		nc := NormalizedCompletion{CompletionText: text, Kind: item.Kind, Detail: item.Detail}
		if seen[nc] {
			continue
		}
		seen[nc] = true
		out = append(out, nc)
	}
	return out, nil
}

// ParsedFiles implements spec.md §6's parsedFiles: derived from
// workspace/symbol with an empty query, deduplicated.
func (e *Engine) ParsedFiles(ctx context.Context) ([]string, error) {
	var raw json.RawMessage
	err := e.sess.CallUncancellable(ctx, "workspace/symbol", protocol.WorkspaceSymbolParams{Query: ""}, &raw)
	if err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}
	var symbols []protocol.SymbolInformation
	if err := json.Unmarshal(raw, &symbols); err != nil {
		return nil, fmt.Errorf("%w: decode workspace/symbol result: %v", ErrProtocolViolation, err)
	}

	seen := make(map[string]bool)
	var files []string
	for _, s := range symbols {
		abs, err := e.sess.AbsPathFromURI(s.Location.URI)
		if err != nil {
			continue
		}
		if !seen[abs] {
			seen[abs] = true
			files = append(files, abs)
		}
	}
	return files, nil
}
