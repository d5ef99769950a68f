package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	logpkg "github.com/benvon/taskboard/internal/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RefreshScheduler enqueues at most one pending dashboard_refresh job per owner
// per debounce window. Bursts of mutations collapse into a single rebuild.
type RefreshScheduler struct {
	queue   Enqueuer
	window  time.Duration
	now     func() time.Time
	logger  *zap.Logger
	mu      sync.Mutex
	pending map[uuid.UUID]time.Time
}

// NewRefreshScheduler creates a scheduler. A nil queue makes Schedule a no-op.
func NewRefreshScheduler(queue Enqueuer, window time.Duration, logger *zap.Logger) *RefreshScheduler {
	return &RefreshScheduler{
		queue:   queue,
		window:  window,
		now:     time.Now,
		logger:  logger,
		pending: make(map[uuid.UUID]time.Time),
	}
}

// WithClock overrides the clock. Used by tests.
func (s *RefreshScheduler) WithClock(now func() time.Time) *RefreshScheduler {
	s.now = now
	return s
}

// Schedule enqueues a refresh for ownerID unless one is already due within the window
func (s *RefreshScheduler) Schedule(ctx context.Context, ownerID uuid.UUID) error {
	if s == nil || s.queue == nil {
		return nil
	}

	now := s.now()
	s.mu.Lock()
	if due, ok := s.pending[ownerID]; ok && now.Before(due) {
		s.mu.Unlock()
		s.logger.Debug("dashboard_refresh_debounced", logpkg.UserID(ownerID))
		return nil
	}
	due := now.Add(s.window)
	s.pending[ownerID] = due
	for owner, at := range s.pending {
		if !now.Before(at) {
			delete(s.pending, owner)
		}
	}
	s.mu.Unlock()

	job := NewDashboardRefreshJob(ownerID, s.window, now)
	if err := s.queue.Enqueue(ctx, job); err != nil {
		s.mu.Lock()
		if s.pending[ownerID] == due {
			delete(s.pending, ownerID)
		}
		s.mu.Unlock()
		return fmt.Errorf("failed to enqueue dashboard refresh: %w", err)
	}

	s.logger.Debug("dashboard_refresh_enqueued",
		logpkg.UserID(ownerID),
		zap.String("job_id", job.ID.String()),
	)
	return nil
}
