package parse

import (
	"context"
	"log/slog"

	"github.com/Sumatoshi-tech/statfang/internal/observability"
	"github.com/Sumatoshi-tech/statfang/pkg/procpool"
	"github.com/Sumatoshi-tech/statfang/pkg/proto"
	"github.com/Sumatoshi-tech/statfang/pkg/scan"
)

const opParse = "parse"

// ServiceConfig holds the collaborators of a parse Service.
type ServiceConfig struct {
	// Procs is the persistent worker pool executing extraction jobs.
	// Required.
	Procs *procpool.Pool

	// Strategy selects row metadata extraction. Defaults to the simple
	// strategy.
	Strategy Strategy

	// Compress writes the output table as an LZ4 frame.
	Compress bool

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Metrics is optional engine telemetry.
	Metrics *observability.EngineMetrics
}

// Service coordinates one or more parse runs over the worker pool.
type Service struct {
	procs    *procpool.Pool
	strategy Strategy
	compress bool
	logger   *slog.Logger
	metrics  *observability.EngineMetrics
}

// NewService creates a parse Service.
func NewService(cfg ServiceConfig) *Service {
	strategy := cfg.Strategy
	if strategy == nil {
		strategy = NewSimpleStrategy()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		procs:    cfg.Procs,
		strategy: strategy,
		compress: cfg.Compress,
		logger:   logger,
		metrics:  cfg.Metrics,
	}
}

// Batch is one in-flight parse run: the per-file async handles plus the
// resolved column plan needed to consolidate the results.
type Batch struct {
	files   []string
	handles []*procpool.Handle
	plan    []planVar
}

// Files returns the statistics files of the batch in submission order.
func (b *Batch) Files() []string { return b.files }

// SubmitParse resolves the requested variables, lists the matching files,
// and batch-submits one extraction job per file to the worker pool. Returns
// immediately; configuration-level problems (unresolved pattern, duplicate
// variable, bad root or glob) surface before any work is queued.
func (s *Service) SubmitParse(ctx context.Context, req Request) (*Batch, error) {
	plan, err := buildPlan(req)
	if err != nil {
		return nil, err
	}

	files, err := scan.ListFiles(req.Root, req.Pattern, req.FileLimit)
	if err != nil {
		return nil, err
	}

	keys := workerKeys(plan)

	reqs := make([]proto.Request, len(files))
	for idx, file := range files {
		reqs[idx] = proto.Request{Path: file, Keys: keys}
	}

	handles := s.procs.SubmitBatch(reqs)

	s.logger.InfoContext(ctx, "parse submitted",
		"root", req.Root,
		"pattern", req.Pattern,
		"files", len(files),
		"variables", len(plan),
		"strategy", s.strategy.Name())

	return &Batch{files: files, handles: handles, plan: plan}, nil
}
