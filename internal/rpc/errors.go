package rpc

import "fmt"

// Sentinel errors matching the taxonomy of spec.md §7. Callers use
// errors.Is/errors.As, the way the rest of this module's error handling
// works (plain %w wrapping, no exception-style control flow).
var (
	ErrCancelled      = fmt.Errorf("rpc: cancelled")
	ErrTransportFatal = fmt.Errorf("rpc: transport fatal")
)

// Error is the surfaced form of a JSON-RPC 2.0 error response (spec.md
// §7's RpcError). It is returned verbatim, never retried, except by the
// completions isIncomplete loop which lives above this package.
type Error struct {
	Method  string
	Code    int64
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc: %s: %s (code %d)", e.Method, e.Message, e.Code)
}
