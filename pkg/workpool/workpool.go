// Package workpool provides a generic bounded-concurrency work pool.
// Submission never blocks; each submitted unit of work yields an async
// handle that resolves to the work's result or error. At most the
// configured number of units execute concurrently.
//
// Two independently sized pool instances exist in the engine, one for
// discovery work and one for extraction work, so a long scan batch cannot
// starve extraction throughput.
package workpool

import (
	"context"
	"fmt"
	"runtime"
	"sync"
)

// Work is one unit of work. The context is the one passed at submission;
// work should honor its cancellation.
type Work[R any] func(ctx context.Context) (R, error)

// Handle resolves to a submitted work's result once its task completes.
type Handle[R any] struct {
	done   chan struct{}
	result R
	err    error
}

// Done is closed when the work has completed.
func (h *Handle[R]) Done() <-chan struct{} {
	return h.done
}

// Result blocks until the work completes or ctx is done. On ctx expiry the
// underlying task is not killed; it may still complete, and a later Result
// call with a live context returns its outcome.
func (h *Handle[R]) Result(ctx context.Context) (R, error) {
	select {
	case <-h.done:
		return h.result, h.err
	case <-ctx.Done():
		var zero R

		return zero, fmt.Errorf("resolve handle: %w", ctx.Err())
	}
}

// Pool executes submitted work with bounded concurrency.
type Pool[R any] struct {
	sem chan struct{}
	wg  sync.WaitGroup
}

// New creates a pool executing at most workers units concurrently.
// A non-positive worker count defaults to the number of CPUs.
func New[R any](workers int) *Pool[R] {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	return &Pool[R]{
		sem: make(chan struct{}, workers),
	}
}

// Workers returns the configured concurrency bound.
func (p *Pool[R]) Workers() int {
	return cap(p.sem)
}

// Submit queues one unit of work and returns immediately. The work starts
// once a pool slot frees up; if ctx is canceled before then, the handle
// resolves to the context error without the work running.
func (p *Pool[R]) Submit(ctx context.Context, work Work[R]) *Handle[R] {
	handle := &Handle[R]{done: make(chan struct{})}

	p.wg.Add(1)

	go func() {
		defer p.wg.Done()
		defer close(handle.done)

		select {
		case p.sem <- struct{}{}:
		case <-ctx.Done():
			handle.err = fmt.Errorf("acquire pool slot: %w", ctx.Err())

			return
		}

		defer func() { <-p.sem }()

		handle.result, handle.err = work(ctx)
	}()

	return handle
}

// SubmitBatch queues every unit of work and returns their handles in
// submission order.
func (p *Pool[R]) SubmitBatch(ctx context.Context, works []Work[R]) []*Handle[R] {
	handles := make([]*Handle[R], len(works))

	for idx, work := range works {
		handles[idx] = p.Submit(ctx, work)
	}

	return handles
}

// Wait blocks until all submitted work has completed.
func (p *Pool[R]) Wait() {
	p.wg.Wait()
}
