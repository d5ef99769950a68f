// Package aggregate runs a set of independent keyed jobs and joins their
// results. Executors differ only in scheduling: the sequential executor runs
// jobs one after another in declaration order, the concurrent executor runs
// them all at once and waits at a single barrier.
package aggregate

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrDuplicateKey is returned when a job set already holds a key
	ErrDuplicateKey = errors.New("duplicate job key")
	// ErrEmptyKey is returned for jobs declared without a key
	ErrEmptyKey = errors.New("empty job key")
)

// Producer computes one value of an aggregate
type Producer[V any] interface {
	Produce(ctx context.Context) (V, error)
}

// ProducerFunc adapts a plain function to a Producer
type ProducerFunc[V any] func(ctx context.Context) (V, error)

// Produce calls f(ctx)
func (f ProducerFunc[V]) Produce(ctx context.Context) (V, error) {
	return f(ctx)
}

type job[V any] struct {
	key      string
	producer Producer[V]
}

// JobSet is an ordered collection of uniquely keyed producers.
// Declaration order is the order of the joined result.
type JobSet[V any] struct {
	jobs []job[V]
	keys map[string]struct{}
}

// NewJobSet creates an empty job set
func NewJobSet[V any]() *JobSet[V] {
	return &JobSet[V]{keys: make(map[string]struct{})}
}

// Add appends a job. Keys must be non-empty and unique within the set.
func (s *JobSet[V]) Add(key string, producer Producer[V]) error {
	if key == "" {
		return ErrEmptyKey
	}
	if producer == nil {
		return fmt.Errorf("job %q has no producer", key)
	}
	if _, exists := s.keys[key]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateKey, key)
	}
	s.keys[key] = struct{}{}
	s.jobs = append(s.jobs, job[V]{key: key, producer: producer})
	return nil
}

// AddFunc appends a job backed by a function
func (s *JobSet[V]) AddFunc(key string, fn func(ctx context.Context) (V, error)) error {
	return s.Add(key, ProducerFunc[V](fn))
}

// MustAdd is like AddFunc but panics on an invalid key. It is meant for job
// sets whose keys are fixed at compile time.
func (s *JobSet[V]) MustAdd(key string, fn func(ctx context.Context) (V, error)) *JobSet[V] {
	if err := s.AddFunc(key, fn); err != nil {
		panic(err)
	}
	return s
}

// Keys returns the job keys in declaration order
func (s *JobSet[V]) Keys() []string {
	keys := make([]string, len(s.jobs))
	for i, j := range s.jobs {
		keys[i] = j.key
	}
	return keys
}

// Len returns the number of jobs
func (s *JobSet[V]) Len() int {
	return len(s.jobs)
}
