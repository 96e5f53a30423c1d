package protocol

// ClientInfo identifies this client to the server.
type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// WorkspaceFolder is one root folder advertised at initialize time.
type WorkspaceFolder struct {
	URI  DocumentUri `json:"uri"`
	Name string      `json:"name"`
}

// SymbolKindCapabilities is the shared {valueSet} shape used by both the
// workspace and document symbol client capabilities.
type SymbolKindCapabilities struct {
	ValueSet []SymbolKind `json:"valueSet,omitempty"`
}

// TextDocumentSyncClientCapabilities declares the sync behavior supported.
type TextDocumentSyncClientCapabilities struct {
	DynamicRegistration bool `json:"dynamicRegistration"`
	DidSave             bool `json:"didSave"`
}

// DocumentSymbolClientCapabilities declares hierarchical symbol support,
// which spec.md §4.6 requires the client to enable so the engine exercises
// both branches of the documentSymbols normalization.
type DocumentSymbolClientCapabilities struct {
	HierarchicalDocumentSymbolSupport bool                    `json:"hierarchicalDocumentSymbolSupport"`
	SymbolKind                        *SymbolKindCapabilities `json:"symbolKind,omitempty"`
}

// WorkspaceSymbolClientCapabilities declares workspace/symbol support.
type WorkspaceSymbolClientCapabilities struct {
	SymbolKind *SymbolKindCapabilities `json:"symbolKind,omitempty"`
}

// TextDocumentClientCapabilities is the subset of capabilities spec.md
// §4.3 requires the client to advertise: completion, symbol, hover,
// definition, references enabled.
type TextDocumentClientCapabilities struct {
	Synchronization    *TextDocumentSyncClientCapabilities `json:"synchronization,omitempty"`
	Completion         *struct{}                           `json:"completion,omitempty"`
	Hover              *struct{}                           `json:"hover,omitempty"`
	Definition         *struct{}                           `json:"definition,omitempty"`
	References         *struct{}                           `json:"references,omitempty"`
	DocumentSymbol     DocumentSymbolClientCapabilities     `json:"documentSymbol"`
	PublishDiagnostics *struct{}                            `json:"publishDiagnostics,omitempty"`
}

// WorkspaceClientCapabilities advertises workspace-level features.
type WorkspaceClientCapabilities struct {
	ApplyEdit             bool                                     `json:"applyEdit"`
	Symbol                *WorkspaceSymbolClientCapabilities       `json:"symbol,omitempty"`
	DidChangeWatchedFiles *DidChangeWatchedFilesClientCapabilities `json:"didChangeWatchedFiles,omitempty"`
}

// DidChangeWatchedFilesClientCapabilities advertises that the client will
// honor a server's dynamic workspace/didChangeWatchedFiles registration.
type DidChangeWatchedFilesClientCapabilities struct {
	DynamicRegistration bool `json:"dynamicRegistration"`
}

// ClientCapabilities is the capabilities block sent in InitializeParams.
type ClientCapabilities struct {
	Workspace    WorkspaceClientCapabilities    `json:"workspace"`
	TextDocument TextDocumentClientCapabilities `json:"textDocument"`
}

// InitializeParams is the initialize request's payload.
type InitializeParams struct {
	ProcessID        int                `json:"processId"`
	RootURI          DocumentUri        `json:"rootUri"`
	ClientInfo       *ClientInfo        `json:"clientInfo,omitempty"`
	Capabilities     ClientCapabilities `json:"capabilities"`
	WorkspaceFolders []WorkspaceFolder  `json:"workspaceFolders,omitempty"`
	Trace            string             `json:"trace,omitempty"`
}

// TextDocumentSyncKind mirrors the LSP enum; spec.md §4.3 mandates Full.
type TextDocumentSyncKind int

const (
	SyncNone        TextDocumentSyncKind = 0
	SyncFull        TextDocumentSyncKind = 1
	SyncIncremental TextDocumentSyncKind = 2
)

// ServerCapabilities is the subset of InitializeResult.capabilities this
// client reads.
type ServerCapabilities struct {
	DefinitionProvider      bool `json:"definitionProvider"`
	ReferencesProvider      bool `json:"referencesProvider"`
	HoverProvider           bool `json:"hoverProvider"`
	DocumentSymbolProvider  bool `json:"documentSymbolProvider"`
	WorkspaceSymbolProvider bool `json:"workspaceSymbolProvider"`
	CompletionProvider      *struct {
		TriggerCharacters []string `json:"triggerCharacters,omitempty"`
	} `json:"completionProvider,omitempty"`
}

// InitializeResult is the initialize request's response payload.
type InitializeResult struct {
	Capabilities ServerCapabilities `json:"capabilities"`
}

// InitializedParams is the (always-empty) initialized notification
// payload.
type InitializedParams struct{}
