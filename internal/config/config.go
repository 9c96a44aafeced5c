// Package config holds the configuration surface for the reactor HTTP
// server: everything spec.md §6 calls out as externally tunable, plus
// the document root the resolver serves from.
package config

import "time"

// Config controls the sizes and limits of the reactor core. Zero values
// are replaced by Default's values where noted.
type Config struct {
	// Addr is the TCP address the listening socket binds to.
	// Default: ":8080"
	Addr string

	// DocRoot is the filesystem directory prefix request paths resolve
	// under. There is no default; callers must set it.
	DocRoot string

	// Workers is the fixed number of worker goroutines in the pool.
	// Default: 8
	Workers int

	// MaxQueued bounds the worker pool's FIFO.
	// Default: 10000
	MaxQueued int

	// ReadBufferSize is the per-slot read buffer capacity.
	// Default: 2048
	ReadBufferSize int

	// WriteBufferSize is the per-slot write buffer capacity.
	// Default: 1024
	WriteBufferSize int

	// MaxPathLen is the resolved-path buffer capacity (including NUL).
	// Default: 200
	MaxPathLen int

	// MaxSlots bounds the connection slot pool. Default: 10000
	MaxSlots int

	// EpollWaitTimeout bounds a single reactor wait() call so the loop can
	// periodically check for shutdown. Default: 1s
	EpollWaitTimeout time.Duration
}

// Default returns the configuration spec.md §6 names as the defaults:
// 8 workers, a 10000-deep queue, a 2048-byte read buffer, a 1024-byte
// write buffer, and a 200-byte resolved-path cap.
func Default() Config {
	return Config{
		Addr:             ":8080",
		Workers:          8,
		MaxQueued:        10000,
		ReadBufferSize:   2048,
		WriteBufferSize:  1024,
		MaxPathLen:       200,
		MaxSlots:         10000,
		EpollWaitTimeout: time.Second,
	}
}

// WithDefaults fills any zero-valued field of c with Default's value,
// leaving DocRoot and Addr (when explicitly set) untouched.
func (c Config) WithDefaults() Config {
	d := Default()
	if c.Addr == "" {
		c.Addr = d.Addr
	}
	if c.Workers == 0 {
		c.Workers = d.Workers
	}
	if c.MaxQueued == 0 {
		c.MaxQueued = d.MaxQueued
	}
	if c.ReadBufferSize == 0 {
		c.ReadBufferSize = d.ReadBufferSize
	}
	if c.WriteBufferSize == 0 {
		c.WriteBufferSize = d.WriteBufferSize
	}
	if c.MaxPathLen == 0 {
		c.MaxPathLen = d.MaxPathLen
	}
	if c.MaxSlots == 0 {
		c.MaxSlots = d.MaxSlots
	}
	if c.EpollWaitTimeout == 0 {
		c.EpollWaitTimeout = d.EpollWaitTimeout
	}
	return c
}
