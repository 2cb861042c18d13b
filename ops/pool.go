// Package ops implements the forward and backward numeric primitives of
// the GPT-2 computation graph over dense, row-major float32 buffers.
// Every primitive is stateless: it writes into buffers owned and sized
// by the caller and never allocates or retains a reference to its
// arguments beyond the call.
package ops

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Pool runs fn(i) for every i in [0,n) and returns only once every
// invocation has completed. Primitives never spawn goroutines
// themselves; they fan out through whichever Pool the caller supplies.
type Pool interface {
	Parallel(n int, fn func(i int))
}

// WorkerPool bounds fan-out to a fixed number of goroutines using an
// errgroup. It is safe to reuse across calls.
type WorkerPool struct {
	workers int
}

// NewPool returns a WorkerPool bounded to workers goroutines. A
// non-positive workers selects runtime.GOMAXPROCS(0).
func NewPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &WorkerPool{workers: workers}
}

// Parallel implements Pool.
func (p *WorkerPool) Parallel(n int, fn func(i int)) {
	if n <= 0 {
		return
	}
	if n == 1 || p.workers <= 1 {
		fn(0)
		for i := 1; i < n; i++ {
			fn(i)
		}
		return
	}
	g, _ := errgroup.WithContext(context.Background())
	g.SetLimit(p.workers)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			fn(i)
			return nil
		})
	}
	_ = g.Wait()
}

// SerialPool runs every call on the calling goroutine in index order.
// Tests use it to get bit-deterministic results and to exercise the
// gradient-check harness without goroutine scheduling noise.
type SerialPool struct{}

// Parallel implements Pool.
func (SerialPool) Parallel(n int, fn func(i int)) {
	for i := 0; i < n; i++ {
		fn(i)
	}
}
