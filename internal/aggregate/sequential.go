package aggregate

import "context"

// Sequential runs jobs one at a time in declaration order. It is the baseline
// that the concurrent executor is measured against.
type Sequential[V any] struct {
	opts Options
}

// NewSequential creates a sequential executor
func NewSequential[V any](opts Options) *Sequential[V] {
	return &Sequential[V]{opts: opts.withDefaults()}
}

// Mode returns ModeSequential
func (e *Sequential[V]) Mode() Mode {
	return ModeSequential
}

// Run executes the jobs in order and stops at the first failure
func (e *Sequential[V]) Run(ctx context.Context, jobs *JobSet[V]) (*Result[V], error) {
	values := make([]V, len(jobs.jobs))
	for i, j := range jobs.jobs {
		if err := ctx.Err(); err != nil {
			return nil, &JobError{Key: j.key, Err: err}
		}
		v, err := runJob(ctx, ModeSequential, e.opts, j)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return newResult(jobs.Keys(), values), nil
}
