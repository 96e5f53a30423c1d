// Package session owns the LSP child process lifecycle: spawn, the
// initialize/initialized handshake, shutdown/exit, capability negotiation,
// and the diagnostics queue. Grounded on the teacher's client.go NewClient/
// InitializeLSPClient/Close sequence, generalized to spec.md §4.3's
// explicit five-state machine (the teacher has no named states; it only
// guards with booleans and a mutex).
package session

import "fmt"

// State is one of spec.md §3's SessionState values. Transitions are
// monotonic: there is no path back to an earlier state.
type State int

const (
	Created State = iota
	Starting
	Ready
	Stopping
	Stopped
)

func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case Starting:
		return "starting"
	case Ready:
		return "ready"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// ErrNotStarted is returned by operations invoked before the session
// reaches Ready (spec.md §7).
var ErrNotStarted = fmt.Errorf("session: not started")

// ErrAlreadyStarted is returned by a second start() call, including one
// issued after stop() — spec.md §4.3 "A second start() after stop() is
// rejected."
var ErrAlreadyStarted = fmt.Errorf("session: already started")

// transitions lists the only state changes allowed; anything else is a
// programmer error.
var transitions = map[State][]State{
	Created:  {Starting},
	Starting: {Ready, Stopped},
	Ready:    {Stopping},
	Stopping: {Stopped},
	Stopped:  {},
}

func canTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
