//go:build linux

// Package resolve implements spec.md §4.5: turning a request path into
// either an error outcome or a memory-mapped file body.
package resolve

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Outcome is the result of resolving a request path against the
// document root.
type Outcome int

const (
	// FileRequest means the path names a world-readable regular file.
	FileRequest Outcome = iota
	// NotFound means stat failed (spec.md §4.5).
	NotFound
	// Forbidden means the file lacks the world-read permission bit.
	Forbidden
	// BadRequest means the path names a directory.
	BadRequest
	// InternalError means the file passed stat but open or mmap failed.
	InternalError
)

// Result carries the resolver's verdict and, for FileRequest, the file's
// size and (if non-empty) its read-only private mapping.
type Result struct {
	Outcome Outcome
	Size    int64
	Mapping []byte
}

// Release unmaps r's mapping if one was made. Safe on a zero Result, and
// idempotent: callers that release twice (once on keep-alive reset, once
// on teardown) don't double-unmap.
func (r *Result) Release() error {
	if r.Mapping == nil {
		return nil
	}
	err := unix.Munmap(r.Mapping)
	r.Mapping = nil
	if err != nil {
		return fmt.Errorf("resolve: munmap: %w", err)
	}
	return nil
}

// BuildPath concatenates docRoot and urlPath into buf, truncating to
// buf's capacity rather than FILENAME_MAX — spec.md §9 flags the
// original's use of the system FILENAME_MAX constant as a latent
// overflow and directs implementers to use the slot's own cap
// consistently instead.
func BuildPath(buf []byte, docRoot string, urlPath []byte) []byte {
	n := copy(buf, docRoot)
	n += copy(buf[n:], urlPath)
	if n >= len(buf) {
		n = len(buf) - 1
	}
	return buf[:n]
}

// Resolve builds the path (via BuildPath into pathBuf, capacity
// spec.md's 200-byte cap), stats it, and for a valid target maps the
// whole file private/read-only. The descriptor is closed right after
// mmap — the mapping alone keeps the file reachable (spec.md §4.5).
func Resolve(docRoot string, urlPath []byte, pathBuf []byte) (Result, error) {
	path := BuildPath(pathBuf, docRoot, urlPath)
	name := string(path)

	fi, err := os.Stat(name)
	if err != nil {
		return Result{Outcome: NotFound}, nil
	}

	// S_IROTH: world-read permission bit.
	if fi.Mode().Perm()&0o004 == 0 {
		return Result{Outcome: Forbidden}, nil
	}
	if fi.IsDir() {
		return Result{Outcome: BadRequest}, nil
	}

	size := fi.Size()
	if size == 0 {
		return Result{Outcome: FileRequest, Size: 0}, nil
	}

	f, err := os.Open(name)
	if err != nil {
		return Result{Outcome: InternalError}, fmt.Errorf("resolve: open %s: %w", name, err)
	}
	defer f.Close()

	mapping, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		return Result{Outcome: InternalError}, fmt.Errorf("resolve: mmap %s: %w", name, err)
	}

	return Result{Outcome: FileRequest, Size: size, Mapping: mapping}, nil
}
