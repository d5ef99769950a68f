package aggregate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Mode names an execution strategy
type Mode string

const (
	ModeSequential Mode = "sequential"
	ModeConcurrent Mode = "concurrent"
)

// DefaultJobTimeout bounds a single job when Options leaves it unset
const DefaultJobTimeout = 5 * time.Second

// ErrJobPanic marks a job that panicked instead of returning
var ErrJobPanic = errors.New("job panicked")

// ParseMode validates a mode name
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeSequential, ModeConcurrent:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown executor mode %q", s)
	}
}

// Executor runs every job of a set and joins the results.
// A non-nil error means no result was produced.
type Executor[V any] interface {
	Run(ctx context.Context, jobs *JobSet[V]) (*Result[V], error)
	Mode() Mode
}

// Options tunes an executor
type Options struct {
	// JobTimeout bounds each job. Zero selects DefaultJobTimeout, negative disables it.
	JobTimeout time.Duration
	// Limit caps concurrently running jobs. Zero means unbounded. Ignored by Sequential.
	Limit  int
	Logger *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.JobTimeout == 0 {
		o.JobTimeout = DefaultJobTimeout
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// NewExecutor returns the executor for mode
func NewExecutor[V any](mode Mode, opts Options) (Executor[V], error) {
	switch mode {
	case ModeSequential:
		return NewSequential[V](opts), nil
	case ModeConcurrent:
		return NewConcurrent[V](opts), nil
	default:
		return nil, fmt.Errorf("unknown executor mode %q", mode)
	}
}

// JobError reports the job that failed an aggregate
type JobError struct {
	Key string
	Err error
}

func (e *JobError) Error() string {
	return fmt.Sprintf("job %q failed: %v", e.Key, e.Err)
}

func (e *JobError) Unwrap() error {
	return e.Err
}

var tracer = otel.Tracer("github.com/benvon/taskboard/internal/aggregate")

type outcome[V any] struct {
	value V
	err   error
}

// runJob executes one producer under its own span and deadline. A producer that
// ignores cancellation is abandoned once the deadline passes; its goroutine
// finishes in the background.
func runJob[V any](ctx context.Context, mode Mode, opts Options, j job[V]) (V, error) {
	ctx, span := tracer.Start(ctx, "aggregate.job", trace.WithAttributes(
		attribute.String("job.key", j.key),
		attribute.String("executor.mode", string(mode)),
	))
	defer span.End()

	if opts.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.JobTimeout)
		defer cancel()
	}

	done := make(chan outcome[V], 1)
	go func() {
		var o outcome[V]
		defer func() {
			if r := recover(); r != nil {
				o.err = fmt.Errorf("%w: %v", ErrJobPanic, r)
			}
			done <- o
		}()
		o.value, o.err = j.producer.Produce(ctx)
	}()

	var o outcome[V]
	select {
	case o = <-done:
	case <-ctx.Done():
		o.err = ctx.Err()
	}

	if o.err != nil {
		err := &JobError{Key: j.key, Err: o.err}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		opts.Logger.Warn("aggregate_job_failed",
			zap.String("job_key", j.key),
			zap.String("executor_mode", string(mode)),
			zap.Error(o.err))
		var zero V
		return zero, err
	}
	return o.value, nil
}
