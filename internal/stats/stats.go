// Package stats holds the process-wide, advisory counters spec.md §3
// calls out: "a monotonically maintained active-user count... updated
// exactly once per accept and once per close." Modeled on the teacher's
// server.Stats (atomics, no lock on the hot path).
package stats

import "sync/atomic"

// Stats is safe for concurrent use from the reactor goroutine and every
// worker goroutine.
type Stats struct {
	activeUsers  atomic.Int64
	accepted     atomic.Uint64
	closed       atomic.Uint64
	requests     atomic.Uint64
	queueRejects atomic.Uint64
	parseErrors  atomic.Uint64
}

// Accept records a successful accept: increments the active-user count.
func (s *Stats) Accept() {
	s.activeUsers.Add(1)
	s.accepted.Add(1)
}

// Close records a slot teardown: decrements the active-user count.
func (s *Stats) Close() {
	s.activeUsers.Add(-1)
	s.closed.Add(1)
}

// Request records one completed request/response transaction.
func (s *Stats) Request() {
	s.requests.Add(1)
}

// QueueReject records the worker pool refusing an append because the
// bound (spec.md §4.8, §7 pool-level policy) was reached.
func (s *Stats) QueueReject() {
	s.queueRejects.Add(1)
}

// ParseError records a parser-level failure (spec.md §7).
func (s *Stats) ParseError() {
	s.parseErrors.Add(1)
}

// ActiveUsers returns the current active-user count. spec.md §8 requires
// this to equal the number of slots currently holding a live socket.
func (s *Stats) ActiveUsers() int64 { return s.activeUsers.Load() }

// Accepted returns the lifetime count of successful accepts.
func (s *Stats) Accepted() uint64 { return s.accepted.Load() }

// Closed returns the lifetime count of slot teardowns.
func (s *Stats) Closed() uint64 { return s.closed.Load() }

// Requests returns the lifetime count of completed transactions.
func (s *Stats) Requests() uint64 { return s.requests.Load() }
