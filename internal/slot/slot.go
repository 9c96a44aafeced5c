// Package slot implements the Connection Slot of spec.md §3: the
// per-connection state aggregate pooled and reused across keep-alive
// transactions. Index-based (offset, length) spans replace the source's
// raw pointers into the read buffer, per spec.md §9's redesign note —
// the slice is only valid until the slot is Reset.
package slot

import (
	"net/netip"

	"github.com/watt-toolkit/reactord/internal/resolve"
)

// Phase is the request state machine's current parser phase
// (spec.md §3, §4.4). It only moves forward within one transaction.
type Phase int

const (
	PhaseRequestLine Phase = iota
	PhaseHeaders
	PhaseContent
)

// Method is the request method. Only GET is ever accepted.
type Method int

const (
	MethodUnknown Method = iota
	MethodGET
)

// Span is an (offset, length) pair into a slot's read buffer, valid only
// until the slot's next Reset.
type Span struct {
	Offset int
	Length int
}

// Bytes views span's bytes out of buf. Callers must not hold the result
// past the owning slot's next Reset.
func (s Span) Bytes(buf []byte) []byte {
	if s.Length == 0 {
		return nil
	}
	return buf[s.Offset : s.Offset+s.Length]
}

// Empty reports whether the span carries no bytes.
func (s Span) Empty() bool { return s.Length == 0 }

// Slot is the central per-connection entity of spec.md §3.
type Slot struct {
	// Fd is -1 when the slot is idle.
	Fd         int
	Peer       netip.AddrPort
	Generation uint64

	Read       []byte // capacity fixed at pool construction time
	ReadEnd    int
	CheckIndex int
	LineStart  int

	Write    []byte // capacity fixed at pool construction time
	WriteEnd int

	Phase         Phase
	Method        Method
	URL           Span
	Version       Span
	Host          Span
	ContentLength int
	KeepAlive     bool

	ResolvedPath []byte // capacity fixed at pool construction time
	Resolved     resolve.Result

	Vector      [2][]byte
	VectorCount int
}

// New allocates a slot with buffers of the given capacities. The slot starts idle
// (Fd == -1); call Init to bring it to life after an accept.
func New(readBufSize, writeBufSize, pathBufSize int) *Slot {
	return &Slot{
		Fd:           -1,
		Read:         make([]byte, readBufSize),
		Write:        make([]byte, writeBufSize),
		ResolvedPath: make([]byte, pathBufSize),
	}
}

// Init brings an idle slot to life for a freshly accepted connection.
// The caller is responsible for registering fd with the reactor.
func (s *Slot) Init(fd int, peer netip.AddrPort, generation uint64) {
	s.Fd = fd
	s.Peer = peer
	s.Generation = generation
	s.resetTransaction()
}

// Reset returns the slot to its post-Init state for the next keep-alive
// transaction on the same connection: buffers are logically cleared (by
// zeroing the indices, not the bytes — nothing downstream reads past
// ReadEnd/WriteEnd) and the parser phase returns to PhaseRequestLine, per
// spec.md §3's lifecycle rule. The slot's fd and peer are left
// unchanged; its generation is bumped to invalidate leftover Spans any
// caller incorrectly held onto.
func (s *Slot) Reset() {
	s.Generation++
	s.resetTransaction()
}

func (s *Slot) resetTransaction() {
	s.ReadEnd = 0
	s.CheckIndex = 0
	s.LineStart = 0
	s.WriteEnd = 0
	s.Phase = PhaseRequestLine
	s.Method = MethodUnknown
	s.URL = Span{}
	s.Version = Span{}
	s.Host = Span{}
	s.ContentLength = 0
	s.KeepAlive = false
	s.Resolved.Release()
	s.Resolved = resolve.Result{}
	s.VectorCount = 0
	s.Vector[0] = nil
	s.Vector[1] = nil
}

// Teardown releases every resource the slot owns (mapping included) and
// marks it idle. It does not close the fd or unregister it from the
// reactor — the caller (internal/server) owns that ordering so it can
// log and update stats around the close.
func (s *Slot) Teardown() {
	s.Resolved.Release()
	s.Fd = -1
}

// Live reports whether the slot currently holds a socket.
func (s *Slot) Live() bool { return s.Fd != -1 }
