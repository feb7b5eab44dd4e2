// Package observability provides the OTel metric instruments for the
// statfang engine: job throughput, worker health, and scan volume.
package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricJobsTotal      = "statfang.jobs.total"
	metricJobDuration    = "statfang.job.duration.seconds"
	metricErrorsTotal    = "statfang.errors.total"
	metricInflightJobs   = "statfang.inflight.jobs"
	metricWorkerRestarts = "statfang.worker.restarts.total"
	metricFilesScanned   = "statfang.scan.files.total"

	attrOp     = "op"
	attrStatus = "status"

	statusError = "error"

	// StatusOK marks a successfully completed job.
	StatusOK = "ok"
	// StatusError marks a failed job.
	StatusError = statusError
)

// durationBucketBoundaries covers 10ms to 600s: single small stats files
// parse in well under a second, large multi-dump batches take minutes.
var durationBucketBoundaries = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600}

// EngineMetrics holds the OTel instruments for engine job telemetry.
type EngineMetrics struct {
	jobsTotal      metric.Int64Counter
	jobDuration    metric.Float64Histogram
	errorsTotal    metric.Int64Counter
	inflightJobs   metric.Int64UpDownCounter
	workerRestarts metric.Int64Counter
	filesScanned   metric.Int64Counter
}

// NewEngineMetrics creates the engine metric instruments from the given meter.
func NewEngineMetrics(mt metric.Meter) (*EngineMetrics, error) {
	jobsTotal, err := mt.Int64Counter(metricJobsTotal,
		metric.WithDescription("Total number of submitted jobs"),
		metric.WithUnit("{job}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricJobsTotal, err)
	}

	jobDuration, err := mt.Float64Histogram(metricJobDuration,
		metric.WithDescription("Job duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricJobDuration, err)
	}

	errorsTotal, err := mt.Int64Counter(metricErrorsTotal,
		metric.WithDescription("Total number of failed jobs"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricErrorsTotal, err)
	}

	inflight, err := mt.Int64UpDownCounter(metricInflightJobs,
		metric.WithDescription("Number of in-flight jobs"),
		metric.WithUnit("{job}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricInflightJobs, err)
	}

	restarts, err := mt.Int64Counter(metricWorkerRestarts,
		metric.WithDescription("Total number of worker process restarts"),
		metric.WithUnit("{restart}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricWorkerRestarts, err)
	}

	scanned, err := mt.Int64Counter(metricFilesScanned,
		metric.WithDescription("Total number of statistics files scanned"),
		metric.WithUnit("{file}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricFilesScanned, err)
	}

	return &EngineMetrics{
		jobsTotal:      jobsTotal,
		jobDuration:    jobDuration,
		errorsTotal:    errorsTotal,
		inflightJobs:   inflight,
		workerRestarts: restarts,
		filesScanned:   scanned,
	}, nil
}

// RecordJob records a completed job with its operation, status, and duration.
func (em *EngineMetrics) RecordJob(ctx context.Context, op, status string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String(attrOp, op),
		attribute.String(attrStatus, status),
	)

	em.jobsTotal.Add(ctx, 1, attrs)
	em.jobDuration.Record(ctx, duration.Seconds(), attrs)

	if status == statusError {
		em.errorsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String(attrOp, op),
		))
	}
}

// TrackInflight increments the in-flight gauge and returns a function to decrement it.
func (em *EngineMetrics) TrackInflight(ctx context.Context, op string) func() {
	attrs := metric.WithAttributes(attribute.String(attrOp, op))
	em.inflightJobs.Add(ctx, 1, attrs)

	return func() {
		em.inflightJobs.Add(ctx, -1, attrs)
	}
}

// RecordWorkerRestart counts a worker process respawn.
func (em *EngineMetrics) RecordWorkerRestart(ctx context.Context) {
	em.workerRestarts.Add(ctx, 1)
}

// RecordFilesScanned counts statistics files accepted by a scan.
func (em *EngineMetrics) RecordFilesScanned(ctx context.Context, count int64) {
	em.filesScanned.Add(ctx, count)
}
