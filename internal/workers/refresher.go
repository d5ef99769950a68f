package workers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/taskboard/internal/database"
	logpkg "github.com/benvon/taskboard/internal/logger"
	"github.com/benvon/taskboard/internal/models"
	"github.com/benvon/taskboard/internal/queue"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultRetryDelay is the first backoff step for a refresh that hit unavailable storage
const DefaultRetryDelay = 5 * time.Second

// DashboardRebuilder rebuilds and re-caches one owner's dashboard
type DashboardRebuilder interface {
	Refresh(ctx context.Context, ownerID uuid.UUID) (*models.DashboardView, error)
}

// UserLookup confirms the job's owner still exists
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// DashboardRefresher processes dashboard_refresh jobs
type DashboardRefresher struct {
	dashboards DashboardRebuilder
	users      UserLookup
	jobQueue   queue.Enqueuer // for delayed retries
	retryDelay time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// NewDashboardRefresher creates a new refresher
func NewDashboardRefresher(dashboards DashboardRebuilder, users UserLookup, jobQueue queue.Enqueuer, logger *zap.Logger) *DashboardRefresher {
	return &DashboardRefresher{
		dashboards: dashboards,
		users:      users,
		jobQueue:   jobQueue,
		retryDelay: DefaultRetryDelay,
		logger:     logger,
		now:        time.Now,
	}
}

// ProcessJob handles one delivery. Every path acks or nacks the message exactly once.
func (r *DashboardRefresher) ProcessJob(ctx context.Context, msg queue.MessageInterface) error {
	job := msg.GetJob()

	if job.IsExpired(r.now()) {
		r.logger.Info("dashboard_refresh_expired",
			zap.String("job_id", job.ID.String()),
			logpkg.UserID(job.UserID),
		)
		return ack(msg)
	}

	switch job.Type {
	case queue.JobTypeDashboardRefresh:
		if err := r.refresh(ctx, job); err != nil {
			return r.handleJobError(ctx, msg, job, err)
		}
		return ack(msg)

	default:
		// unknown job type goes to the DLQ
		if nackErr := msg.Nack(false); nackErr != nil {
			r.logger.Warn("failed_to_nack_job", zap.Error(nackErr))
		}
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

func (r *DashboardRefresher) refresh(ctx context.Context, job *queue.Job) error {
	if _, err := r.users.GetByID(ctx, job.UserID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			r.logger.Info("dashboard_refresh_user_gone", logpkg.UserID(job.UserID))
			return nil
		}
		return fmt.Errorf("failed to load user: %w", err)
	}

	start := r.now()
	if _, err := r.dashboards.Refresh(ctx, job.UserID); err != nil {
		return fmt.Errorf("failed to refresh dashboard: %w", err)
	}

	r.logger.Info("dashboard_refreshed",
		zap.String("job_id", job.ID.String()),
		logpkg.UserID(job.UserID),
		zap.Duration("duration", r.now().Sub(start)),
	)
	return nil
}

// handleJobError re-enqueues storage outages with exponential backoff and dead-letters everything else
func (r *DashboardRefresher) handleJobError(ctx context.Context, msg queue.MessageInterface, job *queue.Job, err error) error {
	if errors.Is(err, database.ErrUnavailable) && job.CanRetry() && r.jobQueue != nil {
		delay := r.retryDelay * time.Duration(1<<uint(job.RetryCount))
		notBefore := r.now().Add(delay)
		retry := *job
		retry.NotBefore = &notBefore
		retry.IncrementRetry()

		enqueueErr := r.jobQueue.Enqueue(ctx, &retry)
		if enqueueErr == nil {
			r.logger.Warn("dashboard_refresh_retry_scheduled",
				zap.String("job_id", job.ID.String()),
				logpkg.UserID(job.UserID),
				zap.Int("retry_count", retry.RetryCount),
				zap.Duration("retry_delay", delay),
				zap.Error(err),
			)
			if ackErr := msg.Ack(); ackErr != nil {
				return fmt.Errorf("failed to ack retried job: %w", ackErr)
			}
			return err
		}
		r.logger.Error("failed_to_enqueue_retry", zap.Error(enqueueErr))
	}

	if nackErr := msg.Nack(false); nackErr != nil {
		r.logger.Warn("failed_to_nack_job", zap.Error(nackErr))
	}
	return err
}

func ack(msg queue.MessageInterface) error {
	if err := msg.Ack(); err != nil {
		return fmt.Errorf("failed to ack job: %w", err)
	}
	return nil
}
