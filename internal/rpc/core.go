// Package rpc implements the JSON-RPC 2.0 request/response correlation,
// notification fan-out, and server-initiated request handling described in
// spec.md §4.2. It is a thin layer over sourcegraph/jsonrpc2: that library
// already gives O(1) id-keyed correlation and a single demultiplexing
// reader loop; this package adds the specific things spec.md requires on
// top — explicit per-id cancellation, diagnostics buffering, and the fixed
// set of server-initiated requests the session must answer automatically.
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/isaacphi/codegraph-lsp/internal/logging"
	"github.com/isaacphi/codegraph-lsp/internal/protocol"
)

// NotificationHandler handles one server-to-client notification.
type NotificationHandler func(ctx context.Context, params json.RawMessage)

// RequestHandler handles one server-to-client request and returns the
// result to reply with.
type RequestHandler func(ctx context.Context, params json.RawMessage) (any, error)

// Core is the request/response correlation and dispatch layer bound to a
// single jsonrpc2 connection.
type Core struct {
	conn   *jsonrpc2.Conn
	nextID atomic.Int64
	logger logging.Sink
	trace  bool

	notifMu  sync.RWMutex
	notifs   map[string]NotificationHandler

	reqMu sync.RWMutex
	reqs  map[string]RequestHandler

	diagMu      sync.RWMutex
	diagnostics map[protocol.DocumentUri][]protocol.Diagnostic

	fatalOnce sync.Once
	fatalCh   chan error

	registerMu  sync.RWMutex
	onRegister  func(method string, registerOptions json.RawMessage)
}

// New wraps stream in a jsonrpc2.Conn and starts dispatching incoming
// messages immediately (jsonrpc2.NewConn spawns its own reader goroutine).
func New(stream jsonrpc2.ObjectStream, logger logging.Sink, trace bool) *Core {
	if logger == nil {
		logger = logging.Nop
	}
	c := &Core{
		logger:      logger,
		trace:       trace,
		notifs:      make(map[string]NotificationHandler),
		reqs:        make(map[string]RequestHandler),
		diagnostics: make(map[protocol.DocumentUri][]protocol.Diagnostic),
		fatalCh:     make(chan error, 1),
	}
	c.conn = jsonrpc2.NewConn(context.Background(), stream, jsonrpc2.HandlerWithError(c.dispatch))
	go c.watchDisconnect()
	return c
}

func (c *Core) watchDisconnect() {
	<-c.conn.DisconnectNotify()
	c.fail(fmt.Errorf("%w: connection closed", ErrTransportFatal))
}

func (c *Core) fail(err error) {
	c.fatalOnce.Do(func() {
		c.fatalCh <- err
		close(c.fatalCh)
	})
}

// Fatal returns a channel that is closed, with the triggering error sent
// once, when the transport fails fatally (spec.md §7 TransportFatal).
func (c *Core) Fatal() <-chan error { return c.fatalCh }

// On registers a handler for a server-to-client notification method.
func (c *Core) On(method string, h NotificationHandler) {
	c.notifMu.Lock()
	defer c.notifMu.Unlock()
	c.notifs[method] = h
}

// OnRequest registers a handler for a server-initiated request method.
func (c *Core) OnRequest(method string, h RequestHandler) {
	c.reqMu.Lock()
	defer c.reqMu.Unlock()
	c.reqs[method] = h
}

// OnRegisterCapability installs a hook invoked for every capability the
// server registers via client/registerCapability, one call per
// registration entry. Used by the session layer to pick up
// workspace/didChangeWatchedFiles watchers without the rpc package needing
// to know anything about file-system watching.
func (c *Core) OnRegisterCapability(h func(method string, registerOptions json.RawMessage)) {
	c.registerMu.Lock()
	defer c.registerMu.Unlock()
	c.onRegister = h
}

// dispatch is the single demultiplexing entry point jsonrpc2 calls for
// every inbound message that isn't a pending response (those are matched
// internally by jsonrpc2 using the id).
func (c *Core) dispatch(ctx context.Context, _ *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
	var params json.RawMessage
	if req.Params != nil {
		params = json.RawMessage(*req.Params)
	}
	if c.trace {
		c.logger.Debug("lsp <-", "method", req.Method, "notif", req.Notif)
	}

	if req.Notif {
		if req.Method == "textDocument/publishDiagnostics" {
			c.bufferDiagnostics(params)
			return nil, nil
		}
		c.notifMu.RLock()
		h := c.notifs[req.Method]
		c.notifMu.RUnlock()
		if h != nil {
			h(ctx, params)
		}
		return nil, nil
	}

	// Server-initiated requests handled internally per spec.md §4.2.
	switch req.Method {
	case "window/workDoneProgress/create":
		return nil, nil
	case "workspace/configuration":
		return []map[string]any{}, nil
	case "client/registerCapability":
		c.handleRegisterCapability(params)
		return nil, nil
	case "client/unregisterCapability":
		return nil, nil
	}

	c.reqMu.RLock()
	h := c.reqs[req.Method]
	c.reqMu.RUnlock()
	if h != nil {
		return h(ctx, params)
	}
	return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: "unhandled method: " + req.Method}
}

func (c *Core) handleRegisterCapability(raw json.RawMessage) {
	var params protocol.RegistrationParams
	if err := json.Unmarshal(raw, &params); err != nil {
		c.logger.Warn("malformed registerCapability", "err", err)
		return
	}
	c.registerMu.RLock()
	h := c.onRegister
	c.registerMu.RUnlock()
	if h == nil {
		return
	}
	for _, reg := range params.Registrations {
		opts, err := json.Marshal(reg.RegisterOptions)
		if err != nil {
			continue
		}
		h(reg.Method, opts)
	}
}

func (c *Core) bufferDiagnostics(raw json.RawMessage) {
	var params protocol.PublishDiagnosticsParams
	if err := json.Unmarshal(raw, &params); err != nil {
		c.logger.Warn("malformed publishDiagnostics", "err", err)
		return
	}
	c.diagMu.Lock()
	c.diagnostics[params.URI] = params.Diagnostics
	c.diagMu.Unlock()
}

// Diagnostics returns the buffered diagnostics for uri, or nil.
func (c *Core) Diagnostics(uri protocol.DocumentUri) []protocol.Diagnostic {
	c.diagMu.RLock()
	defer c.diagMu.RUnlock()
	return c.diagnostics[uri]
}

// NextID assigns the next monotonic request id.
func (c *Core) NextID() int64 {
	return c.nextID.Add(1)
}

// Send issues a request with an explicitly assigned id, awaiting the
// matching response or ctx cancellation. Per spec.md §4.2, callers that
// want explicit cancel(id) support must obtain the id via NextID first.
func (c *Core) Send(ctx context.Context, id int64, method string, params, result any) error {
	if c.trace {
		c.logger.Debug("lsp ->", "method", method, "id", id)
	}
	err := c.conn.Call(ctx, method, params, result, jsonrpc2.PickID(jsonrpc2.ID{Num: uint64(id)}))
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %s", ErrCancelled, method)
	}
	var rpcErr *jsonrpc2.Error
	if errors.As(err, &rpcErr) {
		return &Error{Method: method, Code: rpcErr.Code, Message: rpcErr.Message}
	}
	return fmt.Errorf("rpc: %s: %w", method, err)
}

// Notify sends a fire-and-forget notification.
func (c *Core) Notify(ctx context.Context, method string, params any) error {
	if c.trace {
		c.logger.Debug("lsp ->", "method", method, "notif", true)
	}
	return c.conn.Notify(ctx, method, params)
}

// Cancel dispatches $/cancelRequest for a previously assigned id. It does
// not itself unblock the local caller — that happens via the ctx passed to
// Send, which the owner of the id is responsible for cancelling too.
func (c *Core) Cancel(id int64) {
	_ = c.conn.Notify(context.Background(), "$/cancelRequest", protocol.CancelParams{ID: id})
}

// Close shuts down the underlying connection.
func (c *Core) Close() error {
	return c.conn.Close()
}
