package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/isaacphi/codegraph-lsp/internal/config"
	"github.com/isaacphi/codegraph-lsp/internal/logging"
	"github.com/isaacphi/codegraph-lsp/internal/protocol"
	"github.com/isaacphi/codegraph-lsp/internal/rpc"
	"github.com/isaacphi/codegraph-lsp/internal/transport"
)

const defaultTimeout = 30 * time.Second

// Session owns the transport, RPC core, and state machine described by
// spec.md §4.3. It does not itself hold open buffers or the symbol cache —
// those are separate components that take a *Session to issue requests —
// but it is the sole owner of the wire connection they share.
type Session struct {
	cfg    *config.Config
	logger logging.Sink
	root   string

	mu    sync.RWMutex
	state State

	proc    *transport.Process
	core    *rpc.Core
	caps    protocol.ServerCapabilities
	cancels *cancelRegistry
	watch   *fileWatch

	stoppedCh chan struct{}
}

// New constructs a Session bound to cfg. The process is not spawned until
// Start is called.
func New(cfg *config.Config, logger logging.Sink) *Session {
	if logger == nil {
		logger = logging.Nop
	}
	return &Session{
		cfg:       cfg,
		logger:    logger,
		root:      cfg.RepositoryRoot,
		state:     Created,
		cancels:   newCancelRegistry(),
		stoppedCh: make(chan struct{}),
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Root returns the configured repository root.
func (s *Session) Root() string { return s.root }

// Logger returns the injected log sink.
func (s *Session) Logger() logging.Sink { return s.logger }

func (s *Session) setState(to State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !canTransition(s.state, to) {
		return fmt.Errorf("session: invalid transition %s -> %s", s.state, to)
	}
	s.state = to
	return nil
}

// requireReady returns ErrNotStarted unless the session is Ready.
func (s *Session) requireReady() error {
	if s.State() != Ready {
		return ErrNotStarted
	}
	return nil
}

// Start spawns the child process, performs the initialize/initialized
// handshake, and transitions to Ready. Per spec.md §4.3, a second Start
// call — including one after Stop — is rejected.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != Created {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.state = Starting
	s.mu.Unlock()

	timeout := s.initTimeout()
	ictx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	proc, err := transport.Spawn(s.cfg.Command, s.cfg.Args, s.root, s.cfg.Env)
	if err != nil {
		_ = s.setState(Stopped)
		return fmt.Errorf("session: spawn: %w", err)
	}
	s.proc = proc
	s.core = rpc.New(proc.Stream, s.logger, s.cfg.TraceLspCommunication)
	s.core.OnRegisterCapability(s.handleRegisterCapability)

	rootURI := toURI(s.root)
	params := protocol.InitializeParams{
		ProcessID: 0,
		RootURI:   rootURI,
		ClientInfo: &protocol.ClientInfo{
			Name:    "codegraph-lsp",
			Version: "0.1.0",
		},
		WorkspaceFolders: []protocol.WorkspaceFolder{{URI: rootURI, Name: s.root}},
		Capabilities: protocol.ClientCapabilities{
			Workspace: protocol.WorkspaceClientCapabilities{
				ApplyEdit:             false,
				Symbol:                &protocol.WorkspaceSymbolClientCapabilities{},
				DidChangeWatchedFiles: &protocol.DidChangeWatchedFilesClientCapabilities{DynamicRegistration: true},
			},
			TextDocument: protocol.TextDocumentClientCapabilities{
				Synchronization: &protocol.TextDocumentSyncClientCapabilities{
					DynamicRegistration: false,
					DidSave:             false,
				},
				Completion: &struct{}{},
				Hover:      &struct{}{},
				Definition: &struct{}{},
				References: &struct{}{},
				DocumentSymbol: protocol.DocumentSymbolClientCapabilities{
					HierarchicalDocumentSymbolSupport: true,
				},
				PublishDiagnostics: &struct{}{},
			},
		},
	}

	var result protocol.InitializeResult
	if err := s.core.Send(ictx, s.core.NextID(), "initialize", params, &result); err != nil {
		_ = s.proc.Kill()
		_ = s.setState(Stopped)
		return fmt.Errorf("session: initialize: %w", err)
	}
	s.caps = result.Capabilities

	if err := s.core.Notify(ictx, "initialized", protocol.InitializedParams{}); err != nil {
		_ = s.proc.Kill()
		_ = s.setState(Stopped)
		return fmt.Errorf("session: initialized: %w", err)
	}

	if err := s.setState(Ready); err != nil {
		return err
	}
	return nil
}

// Capabilities returns the server capabilities negotiated at Start.
func (s *Session) Capabilities() protocol.ServerCapabilities {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.caps
}

// Stop sends shutdown then exit, waits for process termination up to the
// configured timeout, and transitions to Stopped. Flushing the symbol
// cache is the caller's responsibility (the cache is owned by the facade
// layer that constructs both it and the session).
func (s *Session) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.state != Ready {
		s.mu.Unlock()
		if s.state == Stopped {
			return nil
		}
		return fmt.Errorf("session: cannot stop from state %s", s.state)
	}
	s.state = Stopping
	s.mu.Unlock()

	timeout := s.shutdownTimeout()
	sctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var shutdownErr error
	if err := s.core.Send(sctx, s.core.NextID(), "shutdown", nil, nil); err != nil {
		shutdownErr = err
		s.logger.Warn("shutdown request failed", "err", err)
	}
	if err := s.core.Notify(sctx, "exit", nil); err != nil {
		s.logger.Warn("exit notification failed", "err", err)
	}

	s.mu.Lock()
	if s.watch != nil {
		s.watch.stop()
	}
	s.mu.Unlock()

	waitCh := make(chan error, 1)
	go func() { waitCh <- s.proc.Wait() }()

	select {
	case <-waitCh:
	case <-sctx.Done():
		s.logger.Warn("shutdown timed out, killing process")
		_ = s.proc.Kill()
		<-waitCh
	}
	_ = s.core.Close()

	_ = s.setState(Stopped)
	close(s.stoppedCh)
	if shutdownErr != nil {
		return shutdownErr
	}
	return nil
}

// Stopped returns a channel closed once Stop completes.
func (s *Session) Stopped() <-chan struct{} { return s.stoppedCh }

func (s *Session) initTimeout() time.Duration {
	if s.cfg.InitializeTimeoutSeconds > 0 {
		return time.Duration(s.cfg.InitializeTimeoutSeconds) * time.Second
	}
	return defaultTimeout
}

func (s *Session) shutdownTimeout() time.Duration {
	if s.cfg.ShutdownTimeoutSeconds > 0 {
		return time.Duration(s.cfg.ShutdownTimeoutSeconds) * time.Second
	}
	return defaultTimeout
}

// Call issues an LSP request under an optional cancellation token,
// returning ErrNotStarted if the session is not Ready. A zero CancelToken
// (NewCancelToken's return type's zero value never collides with an
// allocated uuid, but callers that don't need cancellation should use
// CallUncancellable) participates in no registry entry.
func (s *Session) Call(ctx context.Context, tok CancelToken, method string, params, result any) error {
	if err := s.requireReady(); err != nil {
		return err
	}
	cctx, cancel := context.WithCancel(ctx)
	id := s.core.NextID()
	release := func() {}
	if tok != (CancelToken{}) {
		release = s.cancels.register(tok, cancel, id)
	}

	done := make(chan struct{})
	go func() {
		select {
		case <-cctx.Done():
			if ctx.Err() != nil {
				// Parent ctx (an ambient deadline or caller
				// cancellation) fired first: tell the server too.
				// Session.Cancel sends its own $/cancelRequest and
				// cancels only cctx, so it does not reach this branch.
				s.core.Cancel(id)
			}
		case <-done:
		}
	}()

	err := s.core.Send(cctx, id, method, params, result)
	close(done)
	release()
	cancel()
	return err
}

// CallUncancellable issues an LSP request with no explicit cancellation
// scope (an internal, per-call token), per spec.md §4.3's "implicit"
// cancellation token.
func (s *Session) CallUncancellable(ctx context.Context, method string, params, result any) error {
	return s.Call(ctx, NewCancelToken(), method, params, result)
}

// Notify fires a notification, returning ErrNotStarted if not Ready.
func (s *Session) Notify(ctx context.Context, method string, params any) error {
	if err := s.requireReady(); err != nil {
		return err
	}
	return s.core.Notify(ctx, method, params)
}

// Cancel triggers cancellation of the in-flight operation bound to tok, if
// any: it both dispatches $/cancelRequest for the matching RPC id and
// cancels the local context the awaiting caller is blocked on (spec.md
// §4.3/§5).
func (s *Session) Cancel(tok CancelToken) {
	entry, ok := s.cancels.lookup(tok)
	if !ok {
		return
	}
	s.core.Cancel(entry.rpcID)
	entry.cancel()
}

// Diagnostics returns the buffered diagnostics for an absolute path's URI.
func (s *Session) Diagnostics(absPath string) []protocol.Diagnostic {
	return s.core.Diagnostics(toURI(absPath))
}

// ToURI and FromURI expose the URI conversion helpers to other components
// (buffer manager, symbol-graph engine) that need to translate between
// repo-relative paths and wire URIs without duplicating RFC-3986 logic.
func (s *Session) ToURI(absPath string) protocol.DocumentUri { return toURI(absPath) }

func (s *Session) FromURI(uri protocol.DocumentUri) (string, error) { return fromURI(uri) }

// AbsPathFromURI is an alias of FromURI kept distinct for callers (like the
// symbol-graph engine) that want the name to read as "give me an absolute
// path" at call sites decoding server-supplied URIs.
func (s *Session) AbsPathFromURI(uri protocol.DocumentUri) (string, error) { return fromURI(uri) }

// RelativePath computes path relative to the repository root.
func (s *Session) RelativePath(absPath string) string { return relativePath(s.root, absPath) }

// AbsPath resolves a repo-relative (or already-absolute) path to its
// absolute form and file:// URI.
func (s *Session) AbsPath(relOrAbs string) (string, protocol.DocumentUri) { return s.absPath(relOrAbs) }

// ResolveLocation populates a Location's derived AbsolutePath/RelativePath
// fields from its URI.
func (s *Session) ResolveLocation(loc *protocol.Location) { s.resolveLocation(loc) }

// Fatal exposes the RPC core's transport-fatal signal so the facade layer
// can tear the session down when the child process dies unexpectedly.
func (s *Session) Fatal() <-chan error { return s.core.Fatal() }
