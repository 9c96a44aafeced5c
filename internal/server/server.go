//go:build linux

// Package server wires the reactor, the connection slot pool, the
// request parser, the resolver, the response assembler, and the worker
// pool into the accept/dispatch/re-arm loop spec.md §2's data-flow
// paragraph describes, and owns the process-wide active-user counter
// spec.md §3 calls out as shared state.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/netip"

	"golang.org/x/sys/unix"

	"github.com/watt-toolkit/reactord/internal/config"
	"github.com/watt-toolkit/reactord/internal/httpparse"
	"github.com/watt-toolkit/reactord/internal/logsink"
	"github.com/watt-toolkit/reactord/internal/netutil"
	"github.com/watt-toolkit/reactord/internal/reactor"
	"github.com/watt-toolkit/reactord/internal/respond"
	"github.com/watt-toolkit/reactord/internal/slot"
	"github.com/watt-toolkit/reactord/internal/stats"
	"github.com/watt-toolkit/reactord/internal/workerpool"
)

// Server owns the listening socket, the reactor, the slot pool, and the
// worker pool for one document root.
type Server struct {
	cfg config.Config
	log logsink.Sink

	listenFd int
	rx       *reactor.Reactor
	slots    *slot.Pool
	pool     *workerpool.Pool
	stats    *stats.Stats
}

// New builds a Server from cfg, which must have DocRoot set. Zero
// fields elsewhere are filled from config.Default via WithDefaults.
func New(cfg config.Config, log logsink.Sink) (*Server, error) {
	if cfg.DocRoot == "" {
		return nil, errors.New("server: DocRoot must be set")
	}
	cfg = cfg.WithDefaults()
	if log == nil {
		log = logsink.Discard{}
	}

	listenFd, err := netutil.Listen(cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("server: listen: %w", err)
	}

	rx, err := reactor.New()
	if err != nil {
		unix.Close(listenFd)
		return nil, fmt.Errorf("server: reactor: %w", err)
	}
	if err := rx.RegisterListener(listenFd); err != nil {
		rx.Close()
		unix.Close(listenFd)
		return nil, fmt.Errorf("server: register listener: %w", err)
	}

	return &Server{
		cfg:      cfg,
		log:      log,
		listenFd: listenFd,
		rx:       rx,
		slots:    slot.NewPool(cfg.MaxSlots, cfg.ReadBufferSize, cfg.WriteBufferSize, cfg.MaxPathLen),
		pool:     workerpool.New(cfg.Workers, cfg.MaxQueued),
		stats:    &stats.Stats{},
	}, nil
}

// Stats exposes the process-wide counters spec.md §3 describes.
func (s *Server) Stats() *stats.Stats { return s.stats }

// Addr reports the listening socket's bound address, useful when cfg.Addr
// used an ephemeral port ("127.0.0.1:0").
func (s *Server) Addr() (netip.AddrPort, error) {
	sa, err := unix.Getsockname(s.listenFd)
	if err != nil {
		return netip.AddrPort{}, fmt.Errorf("server: getsockname: %w", err)
	}
	sa4, ok := sa.(*unix.SockaddrInet4)
	if !ok {
		return netip.AddrPort{}, fmt.Errorf("server: unexpected sockaddr type %T", sa)
	}
	return netip.AddrPortFrom(netip.AddrFrom4(sa4.Addr), uint16(sa4.Port)), nil
}

// Close releases the listening socket and the reactor. It does not wait
// for in-flight workers; call Run with a cancelled context first.
func (s *Server) Close() error {
	unix.Close(s.listenFd)
	return s.rx.Close()
}

// Run drives the reactor loop until ctx is cancelled: accept new peers
// on the listening socket, and dispatch readable/writable client
// sockets to the worker pool (spec.md §2's data flow). It returns when
// ctx is done and every outstanding worker has finished.
func (s *Server) Run(ctx context.Context) error {
	s.pool.Start(ctx)
	defer s.pool.Wait()

	events := make([]reactor.Event, 0, 128)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		var err error
		events, err = s.rx.Wait(events[:0], s.cfg.EpollWaitTimeout)
		if err != nil {
			return fmt.Errorf("server: wait: %w", err)
		}

		for _, ev := range events {
			if ev.Fd == s.listenFd {
				s.acceptAll()
				continue
			}
			s.dispatch(ev)
		}
	}
}

// acceptAll drains the listening socket per spec.md §4.1: accept
// repeatedly until the kernel returns would-block.
func (s *Server) acceptAll() {
	for {
		fd, peer, err := netutil.Accept(s.listenFd)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return
			}
			s.log.Logf("server: accept: %v", err)
			return
		}
		s.acceptOne(fd, peer)
	}
}

func (s *Server) acceptOne(fd int, peer netip.AddrPort) {
	sl, ok := s.slots.Acquire(fd, peer)
	if !ok {
		s.log.Logf("server: slot pool exhausted, closing fd=%d", fd)
		unix.Close(fd)
		return
	}
	s.stats.Accept()
	if err := s.rx.Register(fd, reactor.Readable); err != nil {
		s.log.Logf("server: register fd=%d: %v", fd, err)
		s.closeSlot(sl)
		return
	}
}

// dispatch hands one readiness event to the worker pool as a
// connTask. Per spec.md §4.8's re-arm rule, every path through
// connTask.Process eventually re-arms or unregisters the fd; dispatch
// itself touches the reactor for this fd only when it tears the
// connection down (error, hang-up, or a full queue).
func (s *Server) dispatch(ev reactor.Event) {
	sl, ok := s.slots.Lookup(ev.Fd)
	if !ok {
		// Stale event for an fd already torn down and possibly reused;
		// nothing to do.
		return
	}
	generation := sl.Generation

	if ev.Err || ev.HangUp {
		s.teardown(sl, generation)
		return
	}

	task := connTask{
		srv:        s,
		slot:       sl,
		generation: generation,
		writable:   ev.Writable,
	}
	if !s.pool.Append(task) {
		s.stats.QueueReject()
		s.log.Logf("server: queue full, closing fd=%d", ev.Fd)
		s.teardown(sl, generation)
	}
}

// connTask is the Task (spec.md §9's polymorphic task type) the worker
// pool invokes: it is the Connection Slot's process() entry point.
type connTask struct {
	srv        *Server
	slot       *slot.Slot
	generation uint64
	writable   bool
}

func (t connTask) Process() {
	t.srv.process(t.slot, t.generation, t.writable)
}

// process is spec.md §4.8's process() entry point: on a readable
// notification it reads and advances the parser; on a writable
// notification it drains the write vector. Every return path re-arms
// the socket with exactly one interest or unregisters it.
func (s *Server) process(sl *slot.Slot, generation uint64, writable bool) {
	if sl.Generation != generation || !sl.Live() {
		// The slot was recycled for a different connection between
		// dispatch and this call; the event is stale.
		return
	}

	if writable {
		s.processWritable(sl, generation)
		return
	}
	s.processReadable(sl, generation)
}

func (s *Server) processReadable(sl *slot.Slot, generation uint64) {
	if !s.fill(sl) {
		s.teardown(sl, generation)
		return
	}

	outcome, err := httpparse.Advance(sl, s.cfg.DocRoot, s.log)
	if err != nil {
		s.log.Logf("server: fd=%d resolve: %v", sl.Fd, err)
	}

	switch outcome {
	case httpparse.NeedMoreData:
		if err := s.rx.Modify(sl.Fd, reactor.Readable); err != nil {
			s.log.Logf("server: re-arm readable fd=%d: %v", sl.Fd, err)
			s.teardown(sl, generation)
		}
		return
	case httpparse.BadRequest:
		s.stats.ParseError()
		// Per spec.md §7: a malformed stream cannot be trusted for
		// keep-alive, regardless of what the Connection header said.
		sl.KeepAlive = false
	}

	if !respond.Assemble(sl, outcome) {
		// Assembler-level overflow (spec.md §7): discard the partial
		// response and send a 500, closing afterwards. If even the 500
		// does not fit, close without a response.
		sl.WriteEnd = 0
		sl.KeepAlive = false
		if !respond.Assemble(sl, httpparse.InternalError) {
			s.teardown(sl, generation)
			return
		}
	}
	s.stats.Request()

	if err := s.rx.Modify(sl.Fd, reactor.Writable); err != nil {
		s.log.Logf("server: re-arm writable fd=%d: %v", sl.Fd, err)
		s.teardown(sl, generation)
	}
}

// fill drains the socket until would-block, peer close, or error
// (spec.md §4.2). It enforces the read-buffer bound using ≥ capacity,
// per spec.md §9's redesign note on the source's off-by-one `>` guard.
func (s *Server) fill(sl *slot.Slot) bool {
	if sl.ReadEnd >= len(sl.Read) {
		return false
	}
	for {
		n, err := netutil.Read(sl.Fd, sl.Read[sl.ReadEnd:])
		switch {
		case err == nil && n > 0:
			sl.ReadEnd += n
			if sl.ReadEnd >= len(sl.Read) {
				return true
			}
		case err == nil && n == 0:
			return false // peer closed its write half
		case err == unix.EAGAIN || err == unix.EWOULDBLOCK:
			return true
		default:
			return false
		}
	}
}

// processWritable drains the configured write vector via writev,
// advancing across partial writes (spec.md §4.7).
func (s *Server) processWritable(sl *slot.Slot, generation uint64) {
	for {
		if sl.VectorCount == 0 {
			break
		}
		iov := sl.Vector[:sl.VectorCount]
		n, err := netutil.Writev(sl.Fd, iov)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				if err := s.rx.Modify(sl.Fd, reactor.Writable); err != nil {
					s.log.Logf("server: re-arm writable fd=%d: %v", sl.Fd, err)
					s.teardown(sl, generation)
				}
				return
			}
			s.log.Logf("server: write fd=%d: %v", sl.Fd, err)
			s.teardown(sl, generation)
			return
		}
		advanceVector(sl, n)
	}

	keepAlive := sl.KeepAlive
	if keepAlive {
		sl.Reset()
		// Reset bumps sl.Generation; the re-arm-failure path below must
		// tear down against that new generation; teardown against the
		// pre-reset one is a silent no-op (server.go's generation guard)
		// and leaks the fd and the slot.
		generation = sl.Generation
		if err := s.rx.Modify(sl.Fd, reactor.Readable); err != nil {
			s.log.Logf("server: re-arm readable fd=%d: %v", sl.Fd, err)
			s.teardown(sl, generation)
		}
		return
	}
	// Non-keep-alive completion ends the connection, per spec.md §9's
	// resolution of the source's conflated close-on-success branch.
	s.teardown(sl, generation)
}

// advanceVector consumes n bytes from the front of the slot's write
// vector, dropping fully-sent elements and shrinking a partially-sent
// one — the accounting spec.md §4.7 requires for partial writev calls.
func advanceVector(sl *slot.Slot, n int) {
	i := 0
	for i < sl.VectorCount && n > 0 {
		v := sl.Vector[i]
		if n < len(v) {
			sl.Vector[i] = v[n:]
			n = 0
			break
		}
		n -= len(v)
		i++
	}
	if i > 0 {
		copy(sl.Vector[:], sl.Vector[i:sl.VectorCount])
		sl.VectorCount -= i
	}
}

func (s *Server) teardown(sl *slot.Slot, generation uint64) {
	if sl.Generation != generation || !sl.Live() {
		return
	}
	fd := sl.Fd
	if err := s.rx.Unregister(fd); err != nil {
		s.log.Logf("server: unregister fd=%d: %v", fd, err)
	}
	unix.Close(fd)
	s.slots.Release(sl)
	s.stats.Close()
}

func (s *Server) closeSlot(sl *slot.Slot) {
	s.teardown(sl, sl.Generation)
}
