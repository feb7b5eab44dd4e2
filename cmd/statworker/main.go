// Package main provides the entry point for the statworker subprocess.
// The binary speaks the parse line protocol on stdin/stdout and is spawned
// by the statfang engine, one process per parse slot.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/Sumatoshi-tech/statfang/internal/worker"
	"github.com/Sumatoshi-tech/statfang/pkg/version"
)

func main() {
	version.InitBinaryVersion()

	// Stdout carries protocol frames; diagnostics go to stderr only.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel()}))
	logger = logger.With("service", "statworker", "version", version.Version)

	err := worker.Serve(os.Stdin, os.Stdout, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func logLevel() slog.Level {
	if os.Getenv("STATFANG_WORKER_DEBUG") != "" {
		return slog.LevelDebug
	}

	return slog.LevelWarn
}
