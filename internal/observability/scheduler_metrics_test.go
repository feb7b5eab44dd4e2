package observability_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/Sumatoshi-tech/statfang/internal/observability"
)

func setupSchedulerMetrics(t *testing.T) (*observability.SchedulerMetrics, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	sm, err := observability.NewSchedulerMetrics(mp.Meter("test"))
	require.NoError(t, err)

	return sm, reader
}

func collectSchedulerMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var rm metricdata.ResourceMetrics

	err := reader.Collect(context.Background(), &rm)
	require.NoError(t, err)

	return rm
}

func findSchedulerMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for idx := range rm.ScopeMetrics {
		for midx := range rm.ScopeMetrics[idx].Metrics {
			if rm.ScopeMetrics[idx].Metrics[midx].Name == name {
				return &rm.ScopeMetrics[idx].Metrics[midx]
			}
		}
	}

	return nil
}

func TestSchedulerMetrics_ReportsRuntimeGauges(t *testing.T) {
	t.Parallel()

	_, reader := setupSchedulerMetrics(t)

	rm := collectSchedulerMetrics(t, reader)

	goroutines := findSchedulerMetric(rm, "statfang.runtime.goroutines")
	require.NotNil(t, goroutines, "statfang.runtime.goroutines metric not found")

	gauge, ok := goroutines.Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)
	assert.Positive(t, gauge.DataPoints[0].Value)
}

func TestSchedulerMetrics_WorkerGaugeSilentWithoutSource(t *testing.T) {
	t.Parallel()

	_, reader := setupSchedulerMetrics(t)

	rm := collectSchedulerMetrics(t, reader)

	workers := findSchedulerMetric(rm, "statfang.pool.worker_processes")
	if workers == nil {
		return
	}

	gauge, ok := workers.Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	assert.Empty(t, gauge.DataPoints)
}

func TestSchedulerMetrics_WorkerGaugeFollowsSource(t *testing.T) {
	t.Parallel()

	sm, reader := setupSchedulerMetrics(t)

	live := int64(3)
	sm.SetWorkerSource(func() int64 { return live })

	rm := collectSchedulerMetrics(t, reader)

	workers := findSchedulerMetric(rm, "statfang.pool.worker_processes")
	require.NotNil(t, workers, "statfang.pool.worker_processes metric not found")

	gauge, ok := workers.Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)
	assert.EqualValues(t, 3, gauge.DataPoints[0].Value)
}
