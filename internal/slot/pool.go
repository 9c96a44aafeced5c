package slot

import (
	"net/netip"
	"sync"
)

// Pool is the fixed-size Connection Slot object pool of spec.md §2.2.
// Slots are pre-allocated once; Acquire/Release recycle them instead of
// growing the pool, and a slot's buffers (and therefore its backing
// memory) never move for the pool's lifetime.
type Pool struct {
	mu         sync.Mutex
	free       []*Slot
	byFd       map[int]*Slot
	slots      []*Slot
	generation uint64
}

// NewPool pre-allocates size slots, each with the given buffer
// capacities (spec.md §6: 2048-byte read buffer, 1024-byte write
// buffer, 200-byte resolved-path cap, by default).
func NewPool(size, readBufSize, writeBufSize, pathBufSize int) *Pool {
	p := &Pool{
		free:  make([]*Slot, 0, size),
		byFd:  make(map[int]*Slot, size),
		slots: make([]*Slot, 0, size),
	}
	for i := 0; i < size; i++ {
		s := New(readBufSize, writeBufSize, pathBufSize)
		p.slots = append(p.slots, s)
		p.free = append(p.free, s)
	}
	return p
}

// Acquire takes a free slot and associates it with fd, or reports false
// if the pool is exhausted (the caller should close fd and count it as
// a backpressure rejection).
func (p *Pool) Acquire(fd int, peer netip.AddrPort) (*Slot, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.free)
	if n == 0 {
		return nil, false
	}
	s := p.free[n-1]
	p.free = p.free[:n-1]

	p.generation++
	s.Init(fd, peer, p.generation)
	p.byFd[fd] = s
	return s, true
}

// Lookup finds the slot currently owning fd, if any.
func (p *Pool) Lookup(fd int) (*Slot, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.byFd[fd]
	return s, ok
}

// Release tears the slot down and returns it to the free list.
func (p *Pool) Release(s *Slot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	// The fd may already have been closed and handed by the kernel to a
	// newly acquired slot; only drop the entry if it is still s's.
	if p.byFd[s.Fd] == s {
		delete(p.byFd, s.Fd)
	}
	s.Teardown()
	p.free = append(p.free, s)
}

// Len returns the number of slots currently checked out (live).
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.slots) - len(p.free)
}
