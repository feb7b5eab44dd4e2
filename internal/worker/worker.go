// Package worker implements the serve loop of the statworker binary: it
// answers the engine's line-protocol requests on stdin/stdout, extracting
// requested variables from statistics files.
package worker

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"

	"github.com/Sumatoshi-tech/statfang/pkg/proto"
	"github.com/Sumatoshi-tech/statfang/pkg/statfile"
)

// Serve announces READY and answers requests until stdin closes or a
// SHUTDOWN token arrives. Per-file problems are reported inline as ERR
// payload lines; only I/O on the protocol channel itself is fatal.
func Serve(in io.Reader, out io.Writer, logger *slog.Logger) error {
	writer := proto.NewWriter(out)

	if err := writer.WriteToken(proto.TokenReady); err != nil {
		return err
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()

		switch line {
		case proto.TokenPing:
			if err := writer.WriteToken(proto.TokenPong); err != nil {
				return err
			}
		case proto.TokenShutdown:
			logger.Info("shutdown requested")

			return nil
		default:
			if err := serveRequest(writer, logger, line); err != nil {
				return err
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read request stream: %w", err)
	}

	logger.Info("request stream closed")

	return nil
}

func serveRequest(writer *proto.Writer, logger *slog.Logger, raw string) error {
	req, err := proto.ParseRequest(raw)
	if err != nil {
		if writeErr := writer.WriteError(err.Error()); writeErr != nil {
			return writeErr
		}

		return writer.End()
	}

	entries, readErr := statfile.Read(req.Path)
	if readErr != nil {
		logger.Warn("file unreadable", "file", req.Path, "error", readErr)

		if writeErr := writer.WriteError(readErr.Error()); writeErr != nil {
			return writeErr
		}

		return writer.End()
	}

	wanted := keySet(req.Keys)

	for _, entry := range entries {
		if wanted != nil && !wanted[entry.Base] {
			continue
		}

		line := proto.Line{Class: entry.Class, ID: entry.ID(), Value: entry.Value}
		if writeErr := writer.WriteLine(line); writeErr != nil {
			return writeErr
		}
	}

	return writer.End()
}

// keySet indexes the requested base names. An empty request selects every
// variable in the file.
func keySet(keys []string) map[string]bool {
	if len(keys) == 0 {
		return nil
	}

	set := make(map[string]bool, len(keys))
	for _, key := range keys {
		set[key] = true
	}

	return set
}
