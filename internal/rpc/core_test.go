package rpc

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/sourcegraph/jsonrpc2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isaacphi/codegraph-lsp/internal/logging"
	"github.com/isaacphi/codegraph-lsp/internal/protocol"
)

// newTestPair wires a *Core to one end of an in-memory pipe and a bare
// jsonrpc2.Conn (standing in for the language server) to the other, the way
// sourcegraph/jsonrpc2's own tests exercise a codec without a real socket.
func newTestPair(t *testing.T, serverHandler jsonrpc2.Handler) (*Core, *jsonrpc2.Conn) {
	t.Helper()
	clientSide, serverSide := net.Pipe()
	t.Cleanup(func() {
		clientSide.Close()
		serverSide.Close()
	})

	if serverHandler == nil {
		serverHandler = jsonrpc2.HandlerWithError(func(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
			return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound}
		})
	}
	serverStream := jsonrpc2.NewBufferedStream(serverSide, jsonrpc2.VSCodeObjectCodec{})
	serverConn := jsonrpc2.NewConn(context.Background(), serverStream, serverHandler)

	clientStream := jsonrpc2.NewBufferedStream(clientSide, jsonrpc2.VSCodeObjectCodec{})
	core := New(clientStream, logging.Nop, false)
	t.Cleanup(func() { core.Close() })

	return core, serverConn
}

func TestCore_Send_RoundTripsAResult(t *testing.T) {
	core, _ := newTestPair(t, jsonrpc2.HandlerWithError(func(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
		if req.Method == "ping" {
			return map[string]string{"pong": "ok"}, nil
		}
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound}
	}))

	var result map[string]string
	err := core.Send(context.Background(), core.NextID(), "ping", nil, &result)
	require.NoError(t, err)
	assert.Equal(t, "ok", result["pong"])
}

func TestCore_Send_SurfacesServerError(t *testing.T) {
	core, _ := newTestPair(t, jsonrpc2.HandlerWithError(func(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
		return nil, &jsonrpc2.Error{Code: 123, Message: "boom"}
	}))

	var result any
	err := core.Send(context.Background(), core.NextID(), "whatever", nil, &result)
	require.Error(t, err)
	var rpcErr *Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, int64(123), rpcErr.Code)
}

func TestCore_RegisterCapability_InvokesHookPerRegistration(t *testing.T) {
	core, serverConn := newTestPair(t, nil)

	got := make(chan string, 1)
	core.OnRegisterCapability(func(method string, registerOptions json.RawMessage) {
		got <- method
	})

	params := protocol.RegistrationParams{Registrations: []protocol.Registration{
		{
			ID:     "1",
			Method: "workspace/didChangeWatchedFiles",
			RegisterOptions: protocol.DidChangeWatchedFilesRegistrationOptions{
				Watchers: []protocol.FileSystemWatcher{{GlobPattern: "**/*.go"}},
			},
		},
	}}

	var reply any
	require.NoError(t, serverConn.Call(context.Background(), "client/registerCapability", params, &reply))

	select {
	case method := <-got:
		assert.Equal(t, "workspace/didChangeWatchedFiles", method)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for registerCapability hook to fire")
	}
}

func TestCore_BuffersPublishDiagnostics(t *testing.T) {
	core, serverConn := newTestPair(t, nil)

	uri := protocol.DocumentUri("file:///repo/a.go")
	params := protocol.PublishDiagnosticsParams{
		URI: uri,
		Diagnostics: []protocol.Diagnostic{
			{Message: "unused import", Severity: protocol.SeverityWarning},
		},
	}
	require.NoError(t, serverConn.Notify(context.Background(), "textDocument/publishDiagnostics", params))

	require.Eventually(t, func() bool {
		return len(core.Diagnostics(uri)) == 1
	}, 2*time.Second, 10*time.Millisecond)

	diags := core.Diagnostics(uri)
	assert.Equal(t, "unused import", diags[0].Message)
}

func TestCore_UnhandledServerRequest_ReturnsMethodNotFound(t *testing.T) {
	core, serverConn := newTestPair(t, nil)
	_ = core

	var reply any
	err := serverConn.Call(context.Background(), "some/unknownMethod", nil, &reply)
	require.Error(t, err)
	var rpcErr *jsonrpc2.Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, jsonrpc2.CodeMethodNotFound, rpcErr.Code)
}
