package protocol

// Registration is one entry of client/registerCapability's params.
type Registration struct {
	ID              string `json:"id"`
	Method          string `json:"method"`
	RegisterOptions any    `json:"registerOptions,omitempty"`
}

// RegistrationParams is client/registerCapability's payload.
type RegistrationParams struct {
	Registrations []Registration `json:"registrations"`
}

// FileSystemWatcher is one entry of DidChangeWatchedFilesRegistrationOptions.
type FileSystemWatcher struct {
	GlobPattern string `json:"globPattern"`
	Kind        *int   `json:"kind,omitempty"`
}

// DidChangeWatchedFilesRegistrationOptions is the registerOptions shape
// for workspace/didChangeWatchedFiles.
type DidChangeWatchedFilesRegistrationOptions struct {
	Watchers []FileSystemWatcher `json:"watchers"`
}

// CancelParams is $/cancelRequest's payload.
type CancelParams struct {
	ID int64 `json:"id"`
}

// FileChangeType is the wire enum of workspace/didChangeWatchedFiles events.
type FileChangeType int

const (
	FileChangeCreated FileChangeType = 1
	FileChangeChanged FileChangeType = 2
	FileChangeDeleted FileChangeType = 3
)

// FileEvent is one entry of DidChangeWatchedFilesParams.
type FileEvent struct {
	URI  DocumentUri    `json:"uri"`
	Type FileChangeType `json:"type"`
}

// DidChangeWatchedFilesParams is workspace/didChangeWatchedFiles's payload.
type DidChangeWatchedFilesParams struct {
	Changes []FileEvent `json:"changes"`
}
