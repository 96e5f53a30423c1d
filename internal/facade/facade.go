// Package facade exposes the uniform operation surface of spec.md §6,
// composing session, buffer, symbolcache, and symbolgraph into a single
// concurrent API, plus a synchronous adapter in sync.go. Grounded on the
// teacher's Client, which is itself one big facade over transport+rpc+
// buffer tracking without the separation this module introduces; this
// file is the generalized, decomposed equivalent of client.go's public
// method set.
package facade

import (
	"context"
	"fmt"
	"time"

	"github.com/isaacphi/codegraph-lsp/internal/buffer"
	"github.com/isaacphi/codegraph-lsp/internal/config"
	"github.com/isaacphi/codegraph-lsp/internal/logging"
	"github.com/isaacphi/codegraph-lsp/internal/protocol"
	"github.com/isaacphi/codegraph-lsp/internal/session"
	"github.com/isaacphi/codegraph-lsp/internal/symbolcache"
	"github.com/isaacphi/codegraph-lsp/internal/symbolgraph"
)

// Facade is the concurrent operation surface: every method is safe to call
// from any goroutine and suspends the caller (via ctx) rather than
// blocking a shared thread, per spec.md §4.7/§5.
type Facade struct {
	cfg     *config.Config
	logger  logging.Sink
	session *session.Session
	bufs    *buffer.Manager
	cache   *symbolcache.Cache
	engine  *symbolgraph.Engine
}

// New constructs a Facade bound to cfg. Start must be called before any
// operation other than Start itself.
func New(cfg *config.Config, logger logging.Sink) (*Facade, error) {
	if logger == nil {
		logger = logging.Nop
	}
	cachePath := symbolcache.DefaultPath(cfg.RepositoryRoot)
	cache, err := symbolcache.Load(cachePath)
	if err != nil {
		return nil, fmt.Errorf("facade: load symbol cache: %w", err)
	}

	sess := session.New(cfg, logger)
	bufs := buffer.New(logger)
	languageID := string(cfg.CodeLanguage)
	engine := symbolgraph.New(sess, bufs, cache, languageID)
	engine.AttributeAssignmentFallback = cfg.AttributeAssignmentFallback

	return &Facade{cfg: cfg, logger: logger, session: sess, bufs: bufs, cache: cache, engine: engine}, nil
}

// Start spawns the server and performs the initialize handshake.
func (f *Facade) Start(ctx context.Context) error {
	return f.session.Start(ctx)
}

// Stop shuts the server down and flushes the symbol cache iff dirty.
func (f *Facade) Stop(ctx context.Context) error {
	stopErr := f.session.Stop(ctx)
	if err := f.cache.Flush(); err != nil {
		f.logger.Warn("symbol cache flush failed", "err", err)
	}
	return stopErr
}

// WithServer starts the facade, runs scope, and guarantees Stop on exit —
// spec.md §4.7's withServer scoped variant.
func (f *Facade) WithServer(ctx context.Context, scope func(ctx context.Context) error) error {
	if err := f.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := f.Stop(stopCtx); err != nil {
			f.logger.Warn("stop during withServer teardown failed", "err", err)
		}
	}()
	return scope(ctx)
}

// NewCancelToken mints a token operations can accept for explicit
// cancellation via Cancel.
func (f *Facade) NewCancelToken() session.CancelToken { return session.NewCancelToken() }

// Cancel triggers cancellation of the in-flight operation bound to tok.
func (f *Facade) Cancel(tok session.CancelToken) { f.session.Cancel(tok) }

// Definition implements spec.md §6's definition(path, line, col).
func (f *Facade) Definition(ctx context.Context, path string, line, col int) ([]protocol.Location, error) {
	return f.engine.Definition(ctx, path, line, col)
}

// References implements spec.md §6's references(path, line, col).
func (f *Facade) References(ctx context.Context, path string, line, col int) ([]protocol.Location, error) {
	return f.engine.References(ctx, path, line, col)
}

// Completions implements spec.md §6's completions with the isIncomplete
// retry loop.
func (f *Facade) Completions(ctx context.Context, path string, line, col int, allowIncomplete bool) ([]symbolgraph.NormalizedCompletion, error) {
	return f.engine.Completions(ctx, path, line, col, allowIncomplete)
}

// DocumentSymbols implements spec.md §6's documentSymbols(path).
func (f *Facade) DocumentSymbols(ctx context.Context, path string) ([]symbolgraph.UnifiedSymbolInformation, symbolgraph.Tree, error) {
	return f.engine.DocumentSymbols(ctx, path)
}

// Hover implements spec.md §6's hover(path, line, col).
func (f *Facade) Hover(ctx context.Context, path string, line, col int) (*symbolgraph.NormalizedHover, error) {
	return f.engine.Hover(ctx, path, line, col)
}

// ParsedFiles implements spec.md §6's parsedFiles().
func (f *Facade) ParsedFiles(ctx context.Context) ([]string, error) {
	return f.engine.ParsedFiles(ctx)
}

// ContainingSymbol implements spec.md §6's containingSymbol.
func (f *Facade) ContainingSymbol(ctx context.Context, path string, line int, col *int, strict bool) (*symbolgraph.UnifiedSymbolInformation, error) {
	return f.engine.ContainingSymbol(ctx, path, line, col, strict)
}

// ContainerOfSymbol implements spec.md §6's containerOfSymbol.
func (f *Facade) ContainerOfSymbol(ctx context.Context, sym symbolgraph.UnifiedSymbolInformation) (*symbolgraph.UnifiedSymbolInformation, error) {
	return f.engine.ContainerOfSymbol(ctx, sym)
}

// DefiningSymbol implements spec.md §6's definingSymbol.
func (f *Facade) DefiningSymbol(ctx context.Context, path string, line, col int) (*symbolgraph.UnifiedSymbolInformation, error) {
	return f.engine.DefiningSymbol(ctx, path, line, col)
}

// ReferencingSymbols implements spec.md §6's referencingSymbols.
func (f *Facade) ReferencingSymbols(ctx context.Context, path string, line, col int, includeImports, includeSelf bool) ([]symbolgraph.UnifiedSymbolInformation, error) {
	return f.engine.ReferencingSymbols(ctx, path, line, col, includeImports, includeSelf)
}

// OpenScope implements spec.md §6's openScope: a guaranteed-release
// acquisition of an open document.
func (f *Facade) OpenScope(ctx context.Context, path string) (*buffer.Handle, error) {
	return f.bufs.OpenScope(path, buffer.DetectLanguageID(path), f.session, ctx)
}

// Insert implements spec.md §6's insert(path, line, col, text).
func (f *Facade) Insert(ctx context.Context, path string, line, col int, text string) (protocol.Position, error) {
	return f.bufs.Insert(ctx, f.session, path, line, col, text)
}

// Delete implements spec.md §6's delete(path, start, end).
func (f *Facade) Delete(ctx context.Context, path string, start, end protocol.Position) (string, error) {
	return f.bufs.Delete(ctx, f.session, path, start, end)
}

// TextOf implements spec.md §6's textOf(path).
func (f *Facade) TextOf(path string) (string, error) {
	return f.bufs.TextOf(f.session, path)
}

// Diagnostics returns the buffered diagnostics for an absolute path.
func (f *Facade) Diagnostics(absPath string) []protocol.Diagnostic {
	return f.session.Diagnostics(absPath)
}

// State returns the underlying session's lifecycle state.
func (f *Facade) State() session.State { return f.session.State() }

// Fatal exposes the session's transport-fatal signal channel.
func (f *Facade) Fatal() <-chan error { return f.session.Fatal() }
