// Package memory provides an in-process implementation of the database
// repositories. It backs tests and the benchmark command, and can simulate
// per-read storage latency so overlapping reads are measurable.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/benvon/taskboard/internal/models"
	"github.com/google/uuid"
)

// Store holds users, categories and tasks behind a single lock
type Store struct {
	mu         sync.RWMutex
	users      map[uuid.UUID]*models.User
	categories map[uuid.UUID]*models.Category
	tasks      map[uuid.UUID]*models.Task

	latency time.Duration
	now     func() time.Time
}

// Option configures a Store
type Option func(*Store)

// WithLatency delays every read by d, honoring context cancellation
func WithLatency(d time.Duration) Option {
	return func(s *Store) {
		s.latency = d
	}
}

// WithClock replaces time.Now for created/updated timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates an empty store
func New(opts ...Option) *Store {
	s := &Store{
		users:      make(map[uuid.UUID]*models.User),
		categories: make(map[uuid.UUID]*models.Category),
		tasks:      make(map[uuid.UUID]*models.Task),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Tasks returns the task repository view of the store
func (s *Store) Tasks() *TaskRepository {
	return &TaskRepository{s: s}
}

// Categories returns the category repository view of the store
func (s *Store) Categories() *CategoryRepository {
	return &CategoryRepository{s: s}
}

// Users returns the user repository view of the store
func (s *Store) Users() *UserRepository {
	return &UserRepository{s: s}
}

// wait simulates a round trip to the store
func (s *Store) wait(ctx context.Context) error {
	if s.latency <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(s.latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func copyTask(t *models.Task) *models.Task {
	c := *t
	c.Tags = append([]string{}, t.Tags...)
	if t.Description != nil {
		d := *t.Description
		c.Description = &d
	}
	if t.DueAt != nil {
		d := *t.DueAt
		c.DueAt = &d
	}
	if t.CompletedAt != nil {
		d := *t.CompletedAt
		c.CompletedAt = &d
	}
	if t.CategoryID != nil {
		id := *t.CategoryID
		c.CategoryID = &id
	}
	c.Category = nil
	return &c
}

func copyCategory(c *models.Category) *models.Category {
	cp := *c
	return &cp
}

// Seed inserts users, categories and tasks as given, keeping their timestamps.
// Zero timestamps default to the store clock.
func (s *Store) Seed(users []*models.User, categories []*models.Category, tasks []*models.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for _, u := range users {
		stored := *u
		if stored.CreatedAt.IsZero() {
			stored.CreatedAt = now
			stored.UpdatedAt = now
		}
		s.users[u.ID] = &stored
	}
	for _, c := range categories {
		stored := copyCategory(c)
		if stored.CreatedAt.IsZero() {
			stored.CreatedAt = now
			stored.UpdatedAt = now
		}
		s.categories[c.ID] = stored
	}
	for _, t := range tasks {
		stored := copyTask(t)
		if stored.CreatedAt.IsZero() {
			stored.CreatedAt = now
		}
		if stored.UpdatedAt.IsZero() {
			stored.UpdatedAt = stored.CreatedAt
		}
		stored.Normalize(stored.UpdatedAt)
		s.tasks[t.ID] = stored
	}
}
