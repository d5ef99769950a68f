package aggregate

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Concurrent starts every job on its own goroutine and joins them at a single
// barrier. The first failure cancels the remaining jobs.
type Concurrent[V any] struct {
	opts Options
}

// NewConcurrent creates a concurrent executor
func NewConcurrent[V any](opts Options) *Concurrent[V] {
	return &Concurrent[V]{opts: opts.withDefaults()}
}

// Mode returns ModeConcurrent
func (e *Concurrent[V]) Mode() Mode {
	return ModeConcurrent
}

// Run executes all jobs and returns once every one of them has finished
func (e *Concurrent[V]) Run(ctx context.Context, jobs *JobSet[V]) (*Result[V], error) {
	g, gctx := errgroup.WithContext(ctx)
	if e.opts.Limit > 0 {
		g.SetLimit(e.opts.Limit)
	}

	// each goroutine owns one slot
	values := make([]V, len(jobs.jobs))
	for i, j := range jobs.jobs {
		g.Go(func() error {
			v, err := runJob(gctx, ModeConcurrent, e.opts, j)
			if err != nil {
				return err
			}
			values[i] = v
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return newResult(jobs.Keys(), values), nil
}
