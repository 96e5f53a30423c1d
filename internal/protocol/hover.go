package protocol

// MarkupContent is LSP's {kind, value} hover/documentation payload.
type MarkupContent struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

// Hover is textDocument/hover's raw result shape. Contents may be a plain
// string, a MarkupContent, or a list of either on the wire; decodeHover in
// the symbolgraph package normalizes all three into the Value/Kind pair
// here.
type Hover struct {
	Contents MarkupContent `json:"contents"`
	Range    *Range        `json:"range,omitempty"`
}

// CompletionItemKind mirrors the LSP enum (trimmed to the values the
// engine surfaces to callers).
type CompletionItemKind int

const (
	CompletionKeyword CompletionItemKind = 14
)

// CompletionTextEdit is the subset of LSP's TextEdit the completion
// fallback path needs: the replacement text a server sends instead of
// insertText when the edit isn't a plain insertion at the cursor.
type CompletionTextEdit struct {
	Range   Range  `json:"range"`
	NewText string `json:"newText"`
}

// CompletionItem is one raw completion entry as returned by the server.
type CompletionItem struct {
	Label      string              `json:"label"`
	Kind       CompletionItemKind  `json:"kind,omitempty"`
	Detail     string              `json:"detail,omitempty"`
	InsertText string              `json:"insertText,omitempty"`
	TextEdit   *CompletionTextEdit `json:"textEdit,omitempty"`
}

// CompletionList is textDocument/completion's raw result shape.
type CompletionList struct {
	IsIncomplete bool             `json:"isIncomplete"`
	Items        []CompletionItem `json:"items"`
}
