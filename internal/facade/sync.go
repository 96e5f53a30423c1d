package facade

import (
	"context"
	"fmt"
	"sync"

	"github.com/isaacphi/codegraph-lsp/internal/buffer"
	"github.com/isaacphi/codegraph-lsp/internal/config"
	"github.com/isaacphi/codegraph-lsp/internal/logging"
	"github.com/isaacphi/codegraph-lsp/internal/protocol"
	"github.com/isaacphi/codegraph-lsp/internal/session"
	"github.com/isaacphi/codegraph-lsp/internal/symbolgraph"
)

// job is one unit of work submitted to the scheduler loop.
type job struct {
	run  func(ctx context.Context)
	done chan struct{}
}

// Sync is the synchronous adapter of spec.md §4.7: a non-concurrent call
// style over the concurrent Facade. It owns a dedicated scheduler
// goroutine; every method submits a closure to that goroutine and blocks
// the calling goroutine until it completes. Exactly one scheduler
// goroutine services the session at any time, matching "Avoid exposing
// the synchronization primitive type in the API; return plain values" from
// spec.md §9 — callers never see a channel or mutex, only blocking method
// calls returning plain results.
type Sync struct {
	facade *Facade
	jobs   chan job
	stopWg sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewSync constructs a Facade and its synchronous adapter. The scheduler
// goroutine is not started until Start is called.
func NewSync(cfg *config.Config, logger logging.Sink) (*Sync, error) {
	f, err := New(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &Sync{facade: f, jobs: make(chan job)}, nil
}

// Start creates the event loop, starts the scheduler goroutine, schedules
// session startup, and blocks until Ready.
func (s *Sync) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.stopWg.Add(1)
	go s.loop()

	return s.submit(ctx, func(ctx context.Context) error {
		return s.facade.Start(ctx)
	})
}

func (s *Sync) loop() {
	defer s.stopWg.Done()
	for {
		select {
		case j, ok := <-s.jobs:
			if !ok {
				return
			}
			j.run(s.ctx)
			close(j.done)
		case <-s.ctx.Done():
			return
		}
	}
}

// submit schedules fn on the loop and blocks until it runs to completion,
// returning its error. ctx governs how long the caller is willing to wait,
// both for the loop to pick the job up and for the job to finish; if ctx
// ends first, submit returns ctx.Err() while a job already handed over
// keeps running against the loop's own long-lived context.
func (s *Sync) submit(ctx context.Context, fn func(ctx context.Context) error) error {
	var retErr error
	j := job{
		run:  func(loopCtx context.Context) { retErr = fn(loopCtx) },
		done: make(chan struct{}),
	}
	select {
	case s.jobs <- j:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return errLoopStopped
	}
	select {
	case <-j.done:
		return retErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop schedules session shutdown, blocks until stopped, joins the
// scheduler goroutine, and flushes the symbol cache.
func (s *Sync) Stop(ctx context.Context) error {
	err := s.submit(ctx, func(ctx context.Context) error {
		return s.facade.Stop(ctx)
	})
	s.cancel()
	s.stopWg.Wait()
	return err
}

// WithServer runs scope with the adapter started, guaranteeing Stop on
// exit.
func (s *Sync) WithServer(ctx context.Context, scope func() error) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	defer func() {
		_ = s.Stop(context.Background())
	}()
	return scope()
}

func (s *Sync) Cancel(tok session.CancelToken) { s.facade.Cancel(tok) }

func (s *Sync) NewCancelToken() session.CancelToken { return s.facade.NewCancelToken() }

// Definition is the synchronous form of Facade.Definition.
func (s *Sync) Definition(ctx context.Context, path string, line, col int) ([]protocol.Location, error) {
	var result []protocol.Location
	err := s.submit(ctx, func(ctx context.Context) error {
		var err error
		result, err = s.facade.Definition(ctx, path, line, col)
		return err
	})
	return result, err
}

// References is the synchronous form of Facade.References.
func (s *Sync) References(ctx context.Context, path string, line, col int) ([]protocol.Location, error) {
	var result []protocol.Location
	err := s.submit(ctx, func(ctx context.Context) error {
		var err error
		result, err = s.facade.References(ctx, path, line, col)
		return err
	})
	return result, err
}

// Completions is the synchronous form of Facade.Completions.
func (s *Sync) Completions(ctx context.Context, path string, line, col int, allowIncomplete bool) ([]symbolgraph.NormalizedCompletion, error) {
	var result []symbolgraph.NormalizedCompletion
	err := s.submit(ctx, func(ctx context.Context) error {
		var err error
		result, err = s.facade.Completions(ctx, path, line, col, allowIncomplete)
		return err
	})
	return result, err
}

// DocumentSymbols is the synchronous form of Facade.DocumentSymbols.
func (s *Sync) DocumentSymbols(ctx context.Context, path string) ([]symbolgraph.UnifiedSymbolInformation, symbolgraph.Tree, error) {
	var flat []symbolgraph.UnifiedSymbolInformation
	var tree symbolgraph.Tree
	err := s.submit(ctx, func(ctx context.Context) error {
		var err error
		flat, tree, err = s.facade.DocumentSymbols(ctx, path)
		return err
	})
	return flat, tree, err
}

// Hover is the synchronous form of Facade.Hover.
func (s *Sync) Hover(ctx context.Context, path string, line, col int) (*symbolgraph.NormalizedHover, error) {
	var result *symbolgraph.NormalizedHover
	err := s.submit(ctx, func(ctx context.Context) error {
		var err error
		result, err = s.facade.Hover(ctx, path, line, col)
		return err
	})
	return result, err
}

// ParsedFiles is the synchronous form of Facade.ParsedFiles.
func (s *Sync) ParsedFiles(ctx context.Context) ([]string, error) {
	var result []string
	err := s.submit(ctx, func(ctx context.Context) error {
		var err error
		result, err = s.facade.ParsedFiles(ctx)
		return err
	})
	return result, err
}

// ContainingSymbol is the synchronous form of Facade.ContainingSymbol.
func (s *Sync) ContainingSymbol(ctx context.Context, path string, line int, col *int, strict bool) (*symbolgraph.UnifiedSymbolInformation, error) {
	var result *symbolgraph.UnifiedSymbolInformation
	err := s.submit(ctx, func(ctx context.Context) error {
		var err error
		result, err = s.facade.ContainingSymbol(ctx, path, line, col, strict)
		return err
	})
	return result, err
}

// ContainerOfSymbol is the synchronous form of Facade.ContainerOfSymbol.
func (s *Sync) ContainerOfSymbol(ctx context.Context, sym symbolgraph.UnifiedSymbolInformation) (*symbolgraph.UnifiedSymbolInformation, error) {
	var result *symbolgraph.UnifiedSymbolInformation
	err := s.submit(ctx, func(ctx context.Context) error {
		var err error
		result, err = s.facade.ContainerOfSymbol(ctx, sym)
		return err
	})
	return result, err
}

// DefiningSymbol is the synchronous form of Facade.DefiningSymbol.
func (s *Sync) DefiningSymbol(ctx context.Context, path string, line, col int) (*symbolgraph.UnifiedSymbolInformation, error) {
	var result *symbolgraph.UnifiedSymbolInformation
	err := s.submit(ctx, func(ctx context.Context) error {
		var err error
		result, err = s.facade.DefiningSymbol(ctx, path, line, col)
		return err
	})
	return result, err
}

// ReferencingSymbols is the synchronous form of Facade.ReferencingSymbols.
func (s *Sync) ReferencingSymbols(ctx context.Context, path string, line, col int, includeImports, includeSelf bool) ([]symbolgraph.UnifiedSymbolInformation, error) {
	var result []symbolgraph.UnifiedSymbolInformation
	err := s.submit(ctx, func(ctx context.Context) error {
		var err error
		result, err = s.facade.ReferencingSymbols(ctx, path, line, col, includeImports, includeSelf)
		return err
	})
	return result, err
}

// OpenScope is the synchronous form of Facade.OpenScope.
func (s *Sync) OpenScope(ctx context.Context, path string) (*buffer.Handle, error) {
	var result *buffer.Handle
	err := s.submit(ctx, func(ctx context.Context) error {
		var err error
		result, err = s.facade.OpenScope(ctx, path)
		return err
	})
	return result, err
}

// Insert is the synchronous form of Facade.Insert.
func (s *Sync) Insert(ctx context.Context, path string, line, col int, text string) (protocol.Position, error) {
	var result protocol.Position
	err := s.submit(ctx, func(ctx context.Context) error {
		var err error
		result, err = s.facade.Insert(ctx, path, line, col, text)
		return err
	})
	return result, err
}

// Delete is the synchronous form of Facade.Delete.
func (s *Sync) Delete(ctx context.Context, path string, start, end protocol.Position) (string, error) {
	var result string
	err := s.submit(ctx, func(ctx context.Context) error {
		var err error
		result, err = s.facade.Delete(ctx, path, start, end)
		return err
	})
	return result, err
}

// TextOf is the synchronous form of Facade.TextOf. It does not suspend
// (spec.md §5: "cache lookups do not suspend"), so it is served directly
// rather than through the scheduler loop.
func (s *Sync) TextOf(path string) (string, error) {
	return s.facade.TextOf(path)
}

// errLoopStopped is returned by submit when the scheduler loop has already
// stopped (after Stop) before the job was handed to it.
var errLoopStopped = fmt.Errorf("facade: scheduler loop stopped")
