package symbolgraph

import (
	"context"
	"strings"

	"github.com/isaacphi/codegraph-lsp/internal/protocol"
)

// ReferencingSymbols implements spec.md §4.6's referencingSymbols: resolves
// every reference to the symbol at (path, line, col), maps each to its
// containing symbol (with the attribute-assignment fallback when gated on
// by AttributeAssignmentFallback), then applies self- and import-filtering.
func (e *Engine) ReferencingSymbols(ctx context.Context, relOrAbsPath string, line, col int, includeImports, includeSelf bool) ([]UnifiedSymbolInformation, error) {
	refs, err := e.References(ctx, relOrAbsPath, line, col)
	if err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return []UnifiedSymbolInformation{}, nil
	}

	queryAbsPath, _ := e.sess.AbsPath(relOrAbsPath)
	queryRelPath := e.sess.RelativePath(queryAbsPath)

	var result []UnifiedSymbolInformation
	var incoming *UnifiedSymbolInformation

	for _, ref := range refs {
		refLine := ref.Range.Start.Line
		refCol := ref.Range.Start.Character

		containing, err := e.ContainingSymbol(ctx, ref.RelativePath, refLine, &refCol, false)
		if err != nil {
			return nil, err
		}

		if containing == nil && e.AttributeAssignmentFallback {
			containing, err = e.attributeAssignmentFallback(ctx, ref)
			if err != nil {
				return nil, err
			}
		}

		if containing == nil {
			e.logger.Warn("could not find containing symbol for reference", "path", ref.RelativePath, "line", refLine, "col", refCol)
			continue
		}

		isSelf := containing.Location.RelativePath == queryRelPath &&
			containing.SelectionRange.Start.Line == line &&
			containing.SelectionRange.Start.Character == col

		if isSelf {
			incoming = containing
			if includeSelf {
				result = append(result, *containing)
			} else {
				e.logger.Debug("skipping self-reference", "name", containing.Name)
			}
			continue
		}

		if !includeImports && incoming != nil &&
			containing.Name == incoming.Name && containing.Kind == incoming.Kind {
			e.logger.Debug("skipping import-site reference", "name", incoming.Name, "path", containing.Location.RelativePath)
			continue
		}

		result = append(result, *containing)
	}

	if result == nil {
		result = []UnifiedSymbolInformation{}
	}
	return result, nil
}

// attributeAssignmentFallback implements spec.md §4.6/§9's known-limited,
// language-specific heuristic: when a reference site has no enclosing
// container (e.g. `instance.status = "x"`), look for a Variable symbol
// named after the identifier preceding the first '.' on the reference's
// line, and synthesize a container symbol located at the reference.
func (e *Engine) attributeAssignmentFallback(ctx context.Context, ref protocol.Location) (*UnifiedSymbolInformation, error) {
	h, err := e.open(ctx, ref.RelativePath)
	if err != nil {
		return nil, err
	}
	fb := h.Buffer()
	lines := strings.Split(fb.Contents, "\n")
	h.Release()

	if ref.Range.Start.Line < 0 || ref.Range.Start.Line >= len(lines) {
		return nil, nil
	}
	lineText := lines[ref.Range.Start.Line]
	if !strings.Contains(lineText, ".") {
		return nil, nil
	}
	name := strings.SplitN(lineText, ".", 2)[0]
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}

	symbols, _, err := e.DocumentSymbols(ctx, ref.RelativePath)
	if err != nil {
		return nil, err
	}
	for _, s := range symbols {
		if s.Name == name && s.Kind == protocol.Variable {
			synthesized := s
			synthesized.Location = ref
			return &synthesized, nil
		}
	}
	return nil, nil
}
