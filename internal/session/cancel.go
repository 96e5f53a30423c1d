package session

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// CancelToken identifies one cancellable operation. Callers obtain one
// from NewCancelToken and pass it to operations that accept an explicit
// cancellation scope; Session.Cancel triggers it. The zero value is not a
// valid token (spec.md §4.3: "every operation accepts an implicit or
// explicit cancellation token" — implicit tokens are created internally
// per-call and never exposed).
type CancelToken struct {
	id uuid.UUID
}

// NewCancelToken mints a fresh token.
func NewCancelToken() CancelToken {
	return CancelToken{id: uuid.New()}
}

type cancelEntry struct {
	cancel context.CancelFunc
	rpcID  int64
	active bool
}

// cancelRegistry tracks the in-flight operation, if any, bound to each
// token so that Cancel can both unblock the local awaiter (via
// context.CancelFunc) and dispatch $/cancelRequest for the matching RPC id
// (spec.md §4.3/§5).
type cancelRegistry struct {
	mu      sync.Mutex
	entries map[CancelToken]*cancelEntry
}

func newCancelRegistry() *cancelRegistry {
	return &cancelRegistry{entries: make(map[CancelToken]*cancelEntry)}
}

// register associates tok with cancel and rpcID for the duration of one
// operation. release must be called (typically deferred) once the
// operation completes, regardless of outcome.
func (r *cancelRegistry) register(tok CancelToken, cancel context.CancelFunc, rpcID int64) (release func()) {
	r.mu.Lock()
	r.entries[tok] = &cancelEntry{cancel: cancel, rpcID: rpcID, active: true}
	r.mu.Unlock()
	return func() {
		r.mu.Lock()
		delete(r.entries, tok)
		r.mu.Unlock()
	}
}

// lookup returns the entry for tok, if still active.
func (r *cancelRegistry) lookup(tok CancelToken) (*cancelEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[tok]
	return e, ok
}
