// Package benchmark compares the sequential and concurrent executors on the
// same job sets and reports whether concurrency pays off.
package benchmark

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/taskboard/internal/aggregate"
	"github.com/benvon/taskboard/internal/models"
	"github.com/google/go-cmp/cmp"
)

// Sample modes
const (
	ModeBaseline  = "baseline"
	ModeOptimized = "optimized"
)

// ErrInvalidIterations is returned when fewer than one iteration is requested
var ErrInvalidIterations = errors.New("iterations must be at least 1")

// IntegrityError reports that the two executors produced different results
type IntegrityError struct {
	Name      string
	Iteration int
	Diff      string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("benchmark %q iteration %d: results differ (-baseline +optimized):\n%s", e.Name, e.Iteration, e.Diff)
}

// Config describes one feature to benchmark
type Config[V any] struct {
	Name string
	// Jobs builds a fresh job set for every run
	Jobs      func() *aggregate.JobSet[V]
	Baseline  aggregate.Executor[V]
	Optimized aggregate.Executor[V]
	// Iterations is the number of baseline/optimized pairs
	Iterations int
	// Validate compares the two results of every iteration
	Validate bool
	// Reset, when set, runs before every timed run
	Reset func(ctx context.Context) error
}

// Compare runs the baseline and optimized executors alternately and
// summarizes their timings
func Compare[V any](ctx context.Context, cfg Config[V]) (*Report, error) {
	if cfg.Iterations < 1 {
		return nil, ErrInvalidIterations
	}
	if cfg.Jobs == nil || cfg.Baseline == nil || cfg.Optimized == nil {
		return nil, fmt.Errorf("benchmark %q is missing jobs or executors", cfg.Name)
	}

	samples := make([]models.BenchmarkSample, 0, 2*cfg.Iterations)
	for i := 0; i < cfg.Iterations; i++ {
		base, baseSample, err := timedRun(ctx, cfg, cfg.Baseline, ModeBaseline, i)
		if err != nil {
			return nil, err
		}
		opt, optSample, err := timedRun(ctx, cfg, cfg.Optimized, ModeOptimized, i)
		if err != nil {
			return nil, err
		}
		samples = append(samples, baseSample, optSample)

		if cfg.Validate {
			if err := sameResult(cfg.Name, i, base, opt); err != nil {
				return nil, err
			}
		}
	}

	return NewReport(cfg.Name, cfg.Iterations, samples), nil
}

func timedRun[V any](ctx context.Context, cfg Config[V], exec aggregate.Executor[V], mode string, iteration int) (*aggregate.Result[V], models.BenchmarkSample, error) {
	if cfg.Reset != nil {
		if err := cfg.Reset(ctx); err != nil {
			return nil, models.BenchmarkSample{}, fmt.Errorf("failed to reset before %s run: %w", mode, err)
		}
	}

	jobs := cfg.Jobs()
	start := time.Now()
	result, err := exec.Run(ctx, jobs)
	elapsed := time.Since(start)
	if err != nil {
		return nil, models.BenchmarkSample{}, fmt.Errorf("failed %s run of %q: %w", mode, cfg.Name, err)
	}

	return result, models.BenchmarkSample{
		Mode:      mode,
		Iteration: iteration,
		Seconds:   elapsed.Seconds(),
	}, nil
}

func sameResult[V any](name string, iteration int, base, opt *aggregate.Result[V]) error {
	if diff := cmp.Diff(base.Keys(), opt.Keys()); diff != "" {
		return &IntegrityError{Name: name, Iteration: iteration, Diff: diff}
	}
	if diff := cmp.Diff(base.Values(), opt.Values()); diff != "" {
		return &IntegrityError{Name: name, Iteration: iteration, Diff: diff}
	}
	return nil
}
