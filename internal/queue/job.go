package queue

import (
	"time"

	"github.com/google/uuid"
)

// JobType represents the type of job
type JobType string

const (
	// JobTypeDashboardRefresh rebuilds one owner's cached dashboard
	JobTypeDashboardRefresh JobType = "dashboard_refresh"
)

const (
	// DefaultMaxRetries bounds how often a failed job is requeued
	DefaultMaxRetries = 3
	// refreshJobLifetime is how long a refresh job stays useful after it becomes due
	refreshJobLifetime = time.Hour
)

// Job represents a job in the queue
type Job struct {
	ID         uuid.UUID  `json:"id"`
	Type       JobType    `json:"type"`
	UserID     uuid.UUID  `json:"user_id"`
	NotBefore  *time.Time `json:"not_before,omitempty"` // nil = immediate
	NotAfter   *time.Time `json:"not_after,omitempty"`  // nil = never expires
	CreatedAt  time.Time  `json:"created_at"`
	RetryCount int        `json:"retry_count"`
	MaxRetries int        `json:"max_retries"`
}

// NewJob creates a new job
func NewJob(jobType JobType, userID uuid.UUID) *Job {
	return &Job{
		ID:         uuid.New(),
		Type:       jobType,
		UserID:     userID,
		CreatedAt:  time.Now(),
		MaxRetries: DefaultMaxRetries,
	}
}

// NewDashboardRefreshJob creates a refresh job that becomes due after delay and expires an hour later
func NewDashboardRefreshJob(userID uuid.UUID, delay time.Duration, now time.Time) *Job {
	job := NewJob(JobTypeDashboardRefresh, userID)
	job.CreatedAt = now
	notBefore := now.Add(delay)
	notAfter := notBefore.Add(refreshJobLifetime)
	if delay > 0 {
		job.NotBefore = &notBefore
	}
	job.NotAfter = &notAfter
	return job
}

// ShouldProcess reports whether the job is due and not yet expired at now
func (j *Job) ShouldProcess(now time.Time) bool {
	if j.NotBefore != nil && now.Before(*j.NotBefore) {
		return false
	}
	return !j.IsExpired(now)
}

// IsExpired checks if the job has expired
func (j *Job) IsExpired(now time.Time) bool {
	return j.NotAfter != nil && now.After(*j.NotAfter)
}

// CanRetry checks if the job can be retried
func (j *Job) CanRetry() bool {
	return j.RetryCount < j.MaxRetries
}

// IncrementRetry increments the retry count
func (j *Job) IncrementRetry() {
	j.RetryCount++
}
