package workpool_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/statfang/pkg/workpool"
)

const (
	// testWorkers is the pool size used by concurrency tests.
	testWorkers = 3

	// testBatchSize is the number of units submitted in batch tests.
	testBatchSize = 50
)

var errWorkFailed = errors.New("work failed")

func TestPool_ResultRoundTrip(t *testing.T) {
	t.Parallel()

	pool := workpool.New[int](testWorkers)

	handle := pool.Submit(context.Background(), func(_ context.Context) (int, error) {
		return 42, nil
	})

	got, err := handle.Result(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, got)
}

func TestPool_ErrorPropagates(t *testing.T) {
	t.Parallel()

	pool := workpool.New[int](testWorkers)

	handle := pool.Submit(context.Background(), func(_ context.Context) (int, error) {
		return 0, errWorkFailed
	})

	_, err := handle.Result(context.Background())
	require.ErrorIs(t, err, errWorkFailed)
}

func TestPool_BoundedConcurrency(t *testing.T) {
	t.Parallel()

	pool := workpool.New[struct{}](testWorkers)

	var (
		inFlight atomic.Int64
		peak     atomic.Int64
	)

	works := make([]workpool.Work[struct{}], testBatchSize)
	for idx := range works {
		works[idx] = func(_ context.Context) (struct{}, error) {
			cur := inFlight.Add(1)

			for {
				prev := peak.Load()
				if cur <= prev || peak.CompareAndSwap(prev, cur) {
					break
				}
			}

			time.Sleep(time.Millisecond)
			inFlight.Add(-1)

			return struct{}{}, nil
		}
	}

	handles := pool.SubmitBatch(context.Background(), works)
	for _, handle := range handles {
		_, err := handle.Result(context.Background())
		require.NoError(t, err)
	}

	assert.LessOrEqual(t, peak.Load(), int64(testWorkers))
}

func TestPool_SubmitNeverBlocks(t *testing.T) {
	t.Parallel()

	pool := workpool.New[struct{}](1)

	release := make(chan struct{})

	var wg sync.WaitGroup

	blocker := func(_ context.Context) (struct{}, error) {
		<-release

		return struct{}{}, nil
	}

	start := time.Now()

	for range testBatchSize {
		wg.Add(1)

		go func() {
			defer wg.Done()

			pool.Submit(context.Background(), blocker)
		}()
	}

	wg.Wait()
	assert.Less(t, time.Since(start), time.Second)

	close(release)
	pool.Wait()
}

func TestHandle_ResultTimeoutLeavesTaskRunning(t *testing.T) {
	t.Parallel()

	pool := workpool.New[int](1)

	release := make(chan struct{})

	handle := pool.Submit(context.Background(), func(_ context.Context) (int, error) {
		<-release

		return 7, nil
	})

	expired, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := handle.Result(expired)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// The task was not killed; it completes and the handle still resolves.
	close(release)

	got, err := handle.Result(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, got)
}

func TestPool_CanceledBeforeSlotAcquired(t *testing.T) {
	t.Parallel()

	pool := workpool.New[int](1)

	release := make(chan struct{})
	defer close(release)

	started := make(chan struct{})

	pool.Submit(context.Background(), func(_ context.Context) (int, error) {
		close(started)
		<-release

		return 0, nil
	})

	// Wait until the blocker occupies the only slot.
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	handle := pool.Submit(ctx, func(_ context.Context) (int, error) {
		return 1, nil
	})

	_, err := handle.Result(context.Background())
	require.ErrorIs(t, err, context.Canceled)
}
