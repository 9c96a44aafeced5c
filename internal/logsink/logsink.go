// Package logsink is the line-writer the core treats as an external
// collaborator (spec.md §1): every error and notable event in the
// reactor, parser and pool is logged through exactly one Sink call, never
// retried, matching spec.md §7's "All error logging is a single line to
// the process log sink."
package logsink

import (
	"log"
	"os"
)

// Sink accepts one formatted line at a time. It is deliberately this
// narrow so the core never depends on a concrete logging library — only
// on the ability to write a line.
type Sink interface {
	Logf(format string, args ...any)
}

// Std wraps the standard library's *log.Logger. None of the retrieved
// reference repositories reach for a structured-logging third party
// (zerolog/zap/logrus) for their own server loops, so stdlib log is the
// grounded choice here; see DESIGN.md.
type Std struct {
	l *log.Logger
}

// NewStd returns a Sink that writes to os.Stderr with the standard
// date/time prefix, the same defaults the teacher's own binaries use.
func NewStd() *Std {
	return &Std{l: log.New(os.Stderr, "", log.LstdFlags|log.Lmicroseconds)}
}

// Logf writes one formatted line.
func (s *Std) Logf(format string, args ...any) {
	s.l.Printf(format, args...)
}

// Discard silently drops every line. Useful in tests that want to keep
// output quiet without threading a *testing.T logger through every
// constructor.
type Discard struct{}

// Logf implements Sink by doing nothing.
func (Discard) Logf(string, ...any) {}
