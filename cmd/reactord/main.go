//go:build linux

// Command reactord runs the reactor HTTP file server. Argument parsing
// and startup wiring are explicitly outside THE CORE this repository
// implements; this binary is the thin driver that owns them.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/watt-toolkit/reactord/internal/config"
	"github.com/watt-toolkit/reactord/internal/logsink"
	"github.com/watt-toolkit/reactord/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	d := config.Default()

	addr := flag.String("addr", d.Addr, "listen address")
	docRoot := flag.String("docroot", "", "document root (required)")
	workers := flag.Int("workers", d.Workers, "worker pool thread count")
	queue := flag.Int("queue", d.MaxQueued, "worker pool queue bound")
	flag.Parse()

	if *docRoot == "" {
		flag.Usage()
		return fmt.Errorf("reactord: -docroot is required")
	}

	cfg := config.Config{
		Addr:      *addr,
		DocRoot:   *docRoot,
		Workers:   *workers,
		MaxQueued: *queue,
	}.WithDefaults()

	log := logsink.NewStd()

	srv, err := server.New(cfg, log)
	if err != nil {
		return fmt.Errorf("reactord: %w", err)
	}
	defer srv.Close()

	addrPort, err := srv.Addr()
	if err == nil {
		log.Logf("reactord: listening on %s, serving %s", addrPort, cfg.DocRoot)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return srv.Run(ctx)
}
