// Package parallel provides the bounded worker group used to run several
// searches side by side. Tasks share one context that is cancelled as soon
// as any of them fails or the group is stopped.
package parallel

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// WorkerPool runs tasks on at most maxWorkers goroutines.
// If maxWorkers is 0 or negative, it defaults to the number of CPU cores.
type WorkerPool struct {
	maxWorkers int
	group      *errgroup.Group
	ctx        context.Context
	cancel     context.CancelCauseFunc

	mu       sync.Mutex
	shutdown bool
}

// ErrPoolShutdown is returned when trying to submit tasks to a shutdown pool.
var ErrPoolShutdown = fmt.Errorf("worker pool has been shutdown")

// NewWorkerPool creates a pool whose tasks run under a child of ctx.
func NewWorkerPool(ctx context.Context, maxWorkers int) *WorkerPool {
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU()
	}
	ctx, cancel := context.WithCancelCause(ctx)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)
	return &WorkerPool{
		maxWorkers: maxWorkers,
		group:      g,
		ctx:        gctx,
		cancel:     cancel,
	}
}

// MaxWorkers returns the concurrency limit.
func (wp *WorkerPool) MaxWorkers() int { return wp.maxWorkers }

// Context returns the context tasks run under.
func (wp *WorkerPool) Context() context.Context { return wp.ctx }

// Submit schedules task. If the pool is full, this call blocks until a
// worker becomes available. A non-nil error from task cancels the others.
func (wp *WorkerPool) Submit(task func(ctx context.Context) error) error {
	wp.mu.Lock()
	closed := wp.shutdown
	wp.mu.Unlock()
	if closed {
		return ErrPoolShutdown
	}
	wp.group.Go(func() error { return task(wp.ctx) })
	return nil
}

// Stop cancels every running task with cause. Tasks observe it through
// their context; Wait still has to be called.
func (wp *WorkerPool) Stop(cause error) {
	wp.cancel(cause)
}

// Wait waits for all submitted tasks and returns the first task error.
// The pool accepts no more tasks afterwards.
func (wp *WorkerPool) Wait() error {
	wp.mu.Lock()
	wp.shutdown = true
	wp.mu.Unlock()
	err := wp.group.Wait()
	wp.cancel(nil)
	return err
}
