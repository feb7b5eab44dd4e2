package scan

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/Sumatoshi-tech/statfang/internal/observability"
	"github.com/Sumatoshi-tech/statfang/pkg/pathutil"
	"github.com/Sumatoshi-tech/statfang/pkg/workpool"
)

const opScan = "scan"

// ServiceConfig holds the collaborators of a scan Service.
type ServiceConfig struct {
	// Pool is the discovery work pool. Required.
	Pool *workpool.Pool[[]Variable]

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Metrics is optional engine telemetry.
	Metrics *observability.EngineMetrics
}

// Service runs discovery passes over statistics files.
type Service struct {
	pool    *workpool.Pool[[]Variable]
	logger  *slog.Logger
	metrics *observability.EngineMetrics
}

// NewService creates a scan Service.
func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		pool:    cfg.Pool,
		logger:  logger,
		metrics: cfg.Metrics,
	}
}

// ListFiles walks root and returns the paths whose base name matches the
// glob pattern, capped at limit (0 = unlimited). Root and pattern problems
// are fail-fast errors.
func ListFiles(root, pattern string, limit int) ([]string, error) {
	resolved, err := pathutil.Resolve(root)
	if err != nil {
		return nil, err
	}

	if dirErr := pathutil.EnsureDir(resolved); dirErr != nil {
		return nil, dirErr
	}

	if _, matchErr := filepath.Match(pattern, "probe"); matchErr != nil {
		return nil, fmt.Errorf("bad glob pattern %q: %w", pattern, matchErr)
	}

	var paths []string

	walkErr := filepath.WalkDir(resolved, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			return nil
		}

		matched, _ := filepath.Match(pattern, d.Name())
		if !matched {
			return nil
		}

		paths = append(paths, path)

		if limit > 0 && len(paths) >= limit {
			return fs.SkipAll
		}

		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("walk %s: %w", resolved, walkErr)
	}

	return paths, nil
}

// SubmitScan lists matching files under root and submits one discovery work
// item per file. Returns the async handles immediately; configuration-level
// problems surface before any work is queued.
func (s *Service) SubmitScan(ctx context.Context, root, pattern string, limit int) ([]*workpool.Handle[[]Variable], error) {
	paths, err := ListFiles(root, pattern, limit)
	if err != nil {
		return nil, err
	}

	works := make([]workpool.Work[[]Variable], len(paths))
	for idx, path := range paths {
		works[idx] = s.discoverWork(path)
	}

	s.logger.InfoContext(ctx, "scan submitted", "root", root, "pattern", pattern, "files", len(paths))

	return s.pool.SubmitBatch(ctx, works), nil
}

func (s *Service) discoverWork(path string) workpool.Work[[]Variable] {
	return func(ctx context.Context) ([]Variable, error) {
		start := time.Now()

		vars, err := DiscoverFile(path)

		if s.metrics != nil {
			status := observability.StatusOK
			if err != nil {
				status = observability.StatusError
			}

			s.metrics.RecordJob(ctx, opScan, status, time.Since(start))
		}

		return vars, err
	}
}

// Collect resolves all handles, logging and counting per-file failures
// instead of aborting. Returns the successful per-file results and the
// failure count.
func (s *Service) Collect(ctx context.Context, handles []*workpool.Handle[[]Variable]) ([][]Variable, int) {
	results := make([][]Variable, 0, len(handles))
	failed := 0

	for _, handle := range handles {
		vars, err := handle.Result(ctx)
		if err != nil {
			failed++

			s.logger.WarnContext(ctx, "scan file skipped", "error", err)

			continue
		}

		results = append(results, vars)
	}

	if s.metrics != nil {
		s.metrics.RecordFilesScanned(ctx, int64(len(results)))
	}

	return results, failed
}
