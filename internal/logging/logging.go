// Package logging defines the log sink injected into the session and its
// dependents. The concrete sink is backed by charmbracelet/log; nothing in
// the rest of the module imports that package directly.
package logging

import (
	"io"
	"os"

	charmlog "github.com/charmbracelet/log"
)

// Level mirrors the four levels the spec's injected sink must support.
type Level int

const (
	Debug Level = iota
	Info
	Warning
	Error
)

// Sink is the logging boundary. Every component that needs to log takes a
// Sink rather than reaching for a global logger.
type Sink interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
}

type charmSink struct {
	logger *charmlog.Logger
}

// New returns a Sink that writes leveled, key-value logs to w. A nil w
// defaults to os.Stderr, matching the teacher's convention of never writing
// diagnostic output to stdout (stdout is reserved for the LSP child's own
// stdio channel).
func New(w io.Writer, level Level) Sink {
	if w == nil {
		w = os.Stderr
	}
	logger := charmlog.NewWithOptions(w, charmlog.Options{
		Level:           toCharmLevel(level),
		ReportTimestamp: true,
	})
	return &charmSink{logger: logger}
}

func toCharmLevel(l Level) charmlog.Level {
	switch l {
	case Debug:
		return charmlog.DebugLevel
	case Info:
		return charmlog.InfoLevel
	case Warning:
		return charmlog.WarnLevel
	case Error:
		return charmlog.ErrorLevel
	default:
		return charmlog.InfoLevel
	}
}

func (s *charmSink) Debug(msg string, kv ...any) { s.logger.Debug(msg, kv...) }
func (s *charmSink) Info(msg string, kv ...any)  { s.logger.Info(msg, kv...) }
func (s *charmSink) Warn(msg string, kv ...any)  { s.logger.Warn(msg, kv...) }
func (s *charmSink) Error(msg string, kv ...any) { s.logger.Error(msg, kv...) }

// Nop is a Sink that discards everything. Useful as a default for callers
// that don't care about diagnostics (tests, one-shot CLI invocations).
var Nop Sink = nopSink{}

type nopSink struct{}

func (nopSink) Debug(string, ...any) {}
func (nopSink) Info(string, ...any)  {}
func (nopSink) Warn(string, ...any)  {}
func (nopSink) Error(string, ...any) {}
