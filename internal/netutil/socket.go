//go:build linux

// Package netutil sets up the raw, non-blocking listening socket the
// reactor drives directly. Registering a socket with epoll and reading
// or writing it with unix.Read/unix.Write only works cleanly on a file
// descriptor that nothing else (in particular, the stdlib netpoller
// behind net.Conn) also owns, so accepted connections live as raw fds
// from accept4 through close, never as net.Conn.
//
// Socket-option handling here is grounded on the teacher's
// pkg/shockwave/socket.Apply/ApplyListener, reworked against raw fds
// instead of *net.TCPConn/*net.TCPListener since those types do not
// exist on this path. Only SO_REUSEADDR and non-blocking mode are set;
// TCP_NODELAY is not.
package netutil

import (
	"fmt"
	"net"
	"net/netip"

	"golang.org/x/sys/unix"
)

// Listen creates a non-blocking IPv4 TCP listening socket bound to addr
// (host:port), with SO_REUSEADDR set per spec.md §6.
func Listen(addr string) (fd int, err error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp4", addr)
	if err != nil {
		return -1, fmt.Errorf("netutil: resolve %q: %w", addr, err)
	}

	fd, err = unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, fmt.Errorf("netutil: socket: %w", err)
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("netutil: setsockopt SO_REUSEADDR: %w", err)
	}

	sa := &unix.SockaddrInet4{Port: tcpAddr.Port}
	if ip4 := tcpAddr.IP.To4(); ip4 != nil {
		copy(sa.Addr[:], ip4)
	}

	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("netutil: bind %q: %w", addr, err)
	}
	if err := unix.Listen(fd, 1024); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("netutil: listen: %w", err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("netutil: set listener non-blocking: %w", err)
	}

	return fd, nil
}

// Accept performs one non-blocking accept4 call, returning the new
// socket's fd (already non-blocking) and the peer's address. Callers
// loop on Accept until it returns unix.EAGAIN, per spec.md §4.1.
func Accept(listenFd int) (fd int, peer netip.AddrPort, err error) {
	nfd, sa, err := unix.Accept4(listenFd, unix.SOCK_NONBLOCK)
	if err != nil {
		return -1, netip.AddrPort{}, err
	}

	if sa4, ok := sa.(*unix.SockaddrInet4); ok {
		peer = netip.AddrPortFrom(netip.AddrFrom4(sa4.Addr), uint16(sa4.Port))
	}
	return nfd, peer, nil
}

// Read performs one non-blocking recv into buf. The three cases a
// caller must distinguish (spec.md §4.2): n > 0 with err == nil (more
// may follow), n == 0 with err == nil (peer closed its write half),
// and err == unix.EAGAIN (drained for now, not an error).
func Read(fd int, buf []byte) (n int, err error) {
	return unix.Read(fd, buf)
}

// Writev performs one non-blocking vectored send across iov, the
// syscall-level analogue of the source's writev(2) call in
// http_conn::write (spec.md §4.7). Partial sends are reported via n;
// the caller is responsible for re-slicing iov and retrying from the
// unsent offset.
func Writev(fd int, iov [][]byte) (n int, err error) {
	return unix.Writev(fd, iov)
}

// Close closes fd. Safe to call once a slot has been unregistered from
// the reactor.
func Close(fd int) error {
	return unix.Close(fd)
}
