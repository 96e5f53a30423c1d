// Package protocol defines the LSP wire types this module speaks. It is a
// deliberately small subset of the full specification — only what the
// transport, session, buffer, and symbol-graph layers exchange with the
// server — normalized the way the teacher's protocol.go lays types out,
// but trimmed to what SPEC_FULL.md actually uses.
package protocol

// DocumentUri is a file:// URI as sent and received on the wire.
type DocumentUri string

// Position is a zero-indexed (line, character) pair. character counts
// UTF-16 code units, per the LSP spec.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Range is a half-open pair of Positions.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// ContainsLine reports whether line falls within r using spec.md §4.6's
// non-strict rule: start.line <= line <= end.line, and when strict is
// requested by the caller, start.line < line <= end.line. Column
// comparisons are handled by the caller (they depend on whether a column
// was actually supplied).
func (r Range) ContainsLine(line int, strict bool) bool {
	if strict {
		return r.End.Line >= line && line > r.Start.Line
	}
	return r.End.Line >= line && line >= r.Start.Line
}

// TextDocumentIdentifier identifies a document by URI.
type TextDocumentIdentifier struct {
	URI DocumentUri `json:"uri"`
}

// VersionedTextDocumentIdentifier adds the version LSP uses to detect
// stale edits.
type VersionedTextDocumentIdentifier struct {
	TextDocumentIdentifier
	Version int `json:"version"`
}

// Location is a range inside a document, plus the client-side derived
// paths spec.md §3 requires. AbsolutePath/RelativePath are never sent on
// the wire; they are populated after a response is decoded.
type Location struct {
	URI           DocumentUri `json:"uri"`
	Range         Range       `json:"range"`
	AbsolutePath  string      `json:"-"`
	RelativePath  string      `json:"-"`
}

// TextDocumentPositionParams is the common (document, position) pair used
// by definition/references/hover/completion requests.
type TextDocumentPositionParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
	Position     Position               `json:"position"`
}
