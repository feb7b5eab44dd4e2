package procpool

import (
	"context"
	"fmt"
	"sync"

	"github.com/Sumatoshi-tech/statfang/pkg/proto"
)

// State is the lifecycle stage of one extraction job.
type State string

// Job states. Succeeded and FailedFinal are terminal for the pool; the
// orchestrator marks merged rows on its side.
const (
	StateSubmitted   State = "submitted"
	StateDispatched  State = "dispatched"
	StateResubmitted State = "resubmitted"
	StateSucceeded   State = "succeeded"
	StateFailedFinal State = "failed_final"
)

// Handle resolves to one extraction job's response.
type Handle struct {
	mu    sync.Mutex
	state State
	done  chan struct{}
	resp  proto.Response
	err   error
}

func newHandle() *Handle {
	return &Handle{
		state: StateSubmitted,
		done:  make(chan struct{}),
	}
}

// State returns the job's current lifecycle stage.
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.state
}

// Done is closed once the job reaches a terminal state.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Result blocks until the job completes or ctx is done. On ctx expiry the
// job keeps running inside the pool; the caller treats the item as failed
// for its own purposes.
func (h *Handle) Result(ctx context.Context) (proto.Response, error) {
	select {
	case <-h.done:
		h.mu.Lock()
		defer h.mu.Unlock()

		return h.resp, h.err
	case <-ctx.Done():
		return proto.Response{}, fmt.Errorf("resolve parse handle: %w", ctx.Err())
	}
}

func (h *Handle) setState(state State) {
	h.mu.Lock()
	h.state = state
	h.mu.Unlock()
}

func (h *Handle) succeed(resp proto.Response) {
	h.mu.Lock()
	h.state = StateSucceeded
	h.resp = resp
	h.mu.Unlock()

	close(h.done)
}

func (h *Handle) fail(err error) {
	h.mu.Lock()
	h.state = StateFailedFinal
	h.err = err
	h.mu.Unlock()

	close(h.done)
}
