// Package concurrent provides a small bounded worker pool used to run
// independent functions in parallel.
package concurrent

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// WorkerPool runs functions with a bounded number of workers.
type WorkerPool struct {
	workers int
}

// NewWorkerPool creates a new WorkerPool with the given number of workers.
// A non-positive count falls back to a single worker.
func NewWorkerPool(workers int) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	return &WorkerPool{workers: workers}
}

// Run executes all functions, at most workers at a time, and waits for them
// to finish. The first error cancels the derived context and is returned;
// functions that must not abort siblings should capture their own errors
// and return nil.
func (w *WorkerPool) Run(ctx context.Context, functions ...func() error) error {
	group, _ := errgroup.WithContext(ctx)
	group.SetLimit(w.workers)

	for _, function := range functions {
		group.Go(function)
	}

	return group.Wait()
}
