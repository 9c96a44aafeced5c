//go:build linux

// Package reactor wraps a single Linux epoll instance: the "single
// kernel readiness-notification set" spec.md §1 and §4.1 describe.
// Every accepted client socket is registered edge-triggered, one-shot,
// with RDHUP interest; the listening socket is registered separately,
// level-triggered and without one-shot, per spec.md §4.1.
//
// Grounded on golang.org/x/sys/unix (already a pack dependency via
// jacobsa-fuse and shockwave/bolt's go.mod) rather than the stdlib
// syscall package, for the richer, actively-maintained constant and
// struct set; see DESIGN.md.
package reactor

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// Mode selects which readiness a registration or re-arm cares about.
type Mode int

const (
	// Readable arms EPOLLIN.
	Readable Mode = iota
	// Writable arms EPOLLOUT.
	Writable
)

// Event is one readiness notification, translated out of a raw
// unix.EpollEvent so callers never touch the kernel struct directly.
type Event struct {
	Fd       int
	Readable bool
	Writable bool
	// HangUp is true when EPOLLRDHUP or EPOLLHUP fired: the peer closed
	// its write half, or the descriptor itself was torn down.
	HangUp bool
	// Err is true when EPOLLERR fired.
	Err bool
}

const connInterest = unix.EPOLLET | unix.EPOLLONESHOT | unix.EPOLLRDHUP

// Reactor owns one epoll instance.
type Reactor struct {
	epfd int
	raw  []unix.EpollEvent // scratch buffer for Wait, reused across calls
}

// New creates a fresh epoll instance.
func New() (*Reactor, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("reactor: epoll_create1: %w", err)
	}
	return &Reactor{epfd: fd, raw: make([]unix.EpollEvent, 128)}, nil
}

// Close releases the epoll instance itself. It does not touch any
// registered descriptor.
func (r *Reactor) Close() error {
	return unix.Close(r.epfd)
}

// RegisterListener adds the listening socket without one-shot and
// without edge-triggering: spec.md §4.1 says it is "handled directly in
// the reactor thread" by accepting in a loop until EAGAIN, so a level
// readable interest that never needs to be consumed and re-armed is the
// correct (and simplest) registration.
func (r *Reactor) RegisterListener(fd int) error {
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return fmt.Errorf("reactor: epoll_ctl add listener fd=%d: %w", fd, err)
	}
	return nil
}

// Register adds a client socket in edge-triggered, one-shot mode with
// RDHUP interest, per spec.md §4.1.
func (r *Reactor) Register(fd int, mode Mode) error {
	ev := unix.EpollEvent{Events: interestBits(mode), Fd: int32(fd)}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return fmt.Errorf("reactor: epoll_ctl add fd=%d: %w", fd, err)
	}
	return nil
}

// Modify re-arms a one-shot registration with a (possibly different)
// single interest. Every path out of a slot's process() must call this
// exactly once, or unregister the socket — spec.md §4.8's re-arm rule.
func (r *Reactor) Modify(fd int, mode Mode) error {
	ev := unix.EpollEvent{Events: interestBits(mode), Fd: int32(fd)}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_MOD, fd, &ev); err != nil {
		return fmt.Errorf("reactor: epoll_ctl mod fd=%d: %w", fd, err)
	}
	return nil
}

// Unregister removes fd from the readiness set. It does not close fd.
func (r *Reactor) Unregister(fd int) error {
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return fmt.Errorf("reactor: epoll_ctl del fd=%d: %w", fd, err)
	}
	return nil
}

// Wait blocks for up to timeout for readiness events, appending them to
// dst[:0] and returning the resulting slice. It tolerates EINTR by
// returning a zero-length, nil-error result so callers can loop.
func (r *Reactor) Wait(dst []Event, timeout time.Duration) ([]Event, error) {
	if cap(dst) > len(r.raw) {
		r.raw = make([]unix.EpollEvent, cap(dst))
	}
	raw := r.raw[:cap(r.raw)]

	msec := int(timeout / time.Millisecond)
	n, err := unix.EpollWait(r.epfd, raw, msec)
	if err != nil {
		if err == unix.EINTR {
			return dst[:0], nil
		}
		return nil, fmt.Errorf("reactor: epoll_wait: %w", err)
	}

	out := dst[:0]
	for i := 0; i < n; i++ {
		e := raw[i]
		out = append(out, Event{
			Fd:       int(e.Fd),
			Readable: e.Events&unix.EPOLLIN != 0,
			Writable: e.Events&unix.EPOLLOUT != 0,
			HangUp:   e.Events&(unix.EPOLLRDHUP|unix.EPOLLHUP) != 0,
			Err:      e.Events&unix.EPOLLERR != 0,
		})
	}
	return out, nil
}

func interestBits(mode Mode) uint32 {
	switch mode {
	case Writable:
		return uint32(unix.EPOLLOUT) | connInterest
	default:
		return uint32(unix.EPOLLIN) | connInterest
	}
}
