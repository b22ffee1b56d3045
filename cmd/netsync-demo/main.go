// Command netsync-demo runs a toy authoritative server or predicting client
// over UDP, exercising a full netsync session.
//
// Start a server, then a client pointed at it:
//
//	netsync-demo -role server -listen 127.0.0.1:7000
//	netsync-demo -role client -listen 127.0.0.1:7001 -peer 127.0.0.1:7000
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = flag.String("config", "", "path to YAML config (optional)")
		role       = flag.String("role", "", "server or client (overrides config)")
		listen     = flag.String("listen", "", "local UDP address (overrides config)")
		peer       = flag.String("peer", "", "server UDP address, client only (overrides config)")
		record     = flag.String("record", "", "write received or sent snapshots to this file (overrides config)")
		verbose    = flag.Bool("v", false, "enable debug logging")
	)
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *role != "" {
		cfg.Role = *role
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *peer != "" {
		cfg.Peer = *peer
	}
	if *record != "" {
		cfg.Record = *record
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	d, err := newDriver(log, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := d.Close(); err != nil {
			log.Warn("Error during shutdown", "err", err)
		}
	}()

	return d.Run(ctx)
}
