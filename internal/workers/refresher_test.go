package workers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benvon/taskboard/internal/database"
	"github.com/benvon/taskboard/internal/models"
	"github.com/benvon/taskboard/internal/queue"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type mockRebuilder struct {
	refreshFunc func(ctx context.Context, ownerID uuid.UUID) (*models.DashboardView, error)
	calls       int
}

func (m *mockRebuilder) Refresh(ctx context.Context, ownerID uuid.UUID) (*models.DashboardView, error) {
	m.calls++
	if m.refreshFunc != nil {
		return m.refreshFunc(ctx, ownerID)
	}
	return &models.DashboardView{}, nil
}

type mockUsers struct {
	err error
}

func (m *mockUsers) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.User{ID: id}, nil
}

type mockQueue struct {
	jobs []*queue.Job
	err  error
}

func (m *mockQueue) Enqueue(ctx context.Context, job *queue.Job) error {
	if m.err != nil {
		return m.err
	}
	m.jobs = append(m.jobs, job)
	return nil
}

// mockMessage records how the delivery was settled
type mockMessage struct {
	job      *queue.Job
	acks     int
	nacks    int
	requeued bool
}

func (m *mockMessage) Ack() error {
	m.acks++
	return nil
}

func (m *mockMessage) Nack(requeue bool) error {
	m.nacks++
	m.requeued = requeue
	return nil
}

func (m *mockMessage) GetJob() *queue.Job {
	return m.job
}

var _ queue.MessageInterface = (*mockMessage)(nil)

var refresherNow = time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)

func newTestRefresher(rebuilder *mockRebuilder, users *mockUsers, q *mockQueue) *DashboardRefresher {
	var enqueuer queue.Enqueuer
	if q != nil {
		enqueuer = q
	}
	r := NewDashboardRefresher(rebuilder, users, enqueuer, zap.NewNop())
	r.now = func() time.Time { return refresherNow }
	return r
}

func TestDashboardRefresher_ProcessJob(t *testing.T) {
	t.Parallel()

	owner := uuid.New()

	tests := []struct {
		name         string
		job          func() *queue.Job
		refreshErr   error
		usersErr     error
		queueErr     error
		wantErr      bool
		wantAcks     int
		wantNacks    int
		wantRefresh  int
		wantRequeued int
	}{
		{
			name:        "refreshes due job",
			job:         func() *queue.Job { return queue.NewDashboardRefreshJob(owner, 0, refresherNow) },
			wantAcks:    1,
			wantRefresh: 1,
		},
		{
			name: "drops expired job",
			job: func() *queue.Job {
				return queue.NewDashboardRefreshJob(owner, 0, refresherNow.Add(-2*time.Hour))
			},
			wantAcks: 1,
		},
		{
			name:      "unknown type goes to dlq",
			job:       func() *queue.Job { return queue.NewJob("bogus", owner) },
			wantErr:   true,
			wantNacks: 1,
		},
		{
			name:     "deleted user is acked without refresh",
			job:      func() *queue.Job { return queue.NewDashboardRefreshJob(owner, 0, refresherNow) },
			usersErr: database.ErrNotFound,
			wantAcks: 1,
		},
		{
			name:         "unavailable storage is retried",
			job:          func() *queue.Job { return queue.NewDashboardRefreshJob(owner, 0, refresherNow) },
			refreshErr:   database.ErrUnavailable,
			wantErr:      true,
			wantAcks:     1,
			wantRefresh:  1,
			wantRequeued: 1,
		},
		{
			name: "exhausted retries go to dlq",
			job: func() *queue.Job {
				job := queue.NewDashboardRefreshJob(owner, 0, refresherNow)
				job.RetryCount = job.MaxRetries
				return job
			},
			refreshErr:  database.ErrUnavailable,
			wantErr:     true,
			wantNacks:   1,
			wantRefresh: 1,
		},
		{
			name:        "other errors go to dlq",
			job:         func() *queue.Job { return queue.NewDashboardRefreshJob(owner, 0, refresherNow) },
			refreshErr:  errors.New("boom"),
			wantErr:     true,
			wantNacks:   1,
			wantRefresh: 1,
		},
		{
			name:        "failed retry enqueue goes to dlq",
			job:         func() *queue.Job { return queue.NewDashboardRefreshJob(owner, 0, refresherNow) },
			refreshErr:  database.ErrUnavailable,
			queueErr:    errors.New("broker down"),
			wantErr:     true,
			wantNacks:   1,
			wantRefresh: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rebuilder := &mockRebuilder{}
			if tt.refreshErr != nil {
				err := tt.refreshErr
				rebuilder.refreshFunc = func(ctx context.Context, ownerID uuid.UUID) (*models.DashboardView, error) {
					return nil, err
				}
			}
			q := &mockQueue{err: tt.queueErr}
			r := newTestRefresher(rebuilder, &mockUsers{err: tt.usersErr}, q)
			msg := &mockMessage{job: tt.job()}

			err := r.ProcessJob(context.Background(), msg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ProcessJob() error = %v, wantErr %v", err, tt.wantErr)
			}
			if msg.acks != tt.wantAcks {
				t.Errorf("acks = %d, want %d", msg.acks, tt.wantAcks)
			}
			if msg.nacks != tt.wantNacks {
				t.Errorf("nacks = %d, want %d", msg.nacks, tt.wantNacks)
			}
			if msg.requeued {
				t.Error("message must never be nacked with requeue")
			}
			if rebuilder.calls != tt.wantRefresh {
				t.Errorf("refresh calls = %d, want %d", rebuilder.calls, tt.wantRefresh)
			}
			if len(q.jobs) != tt.wantRequeued {
				t.Errorf("requeued jobs = %d, want %d", len(q.jobs), tt.wantRequeued)
			}
		})
	}
}

func TestDashboardRefresher_RetryBackoff(t *testing.T) {
	t.Parallel()

	rebuilder := &mockRebuilder{
		refreshFunc: func(ctx context.Context, ownerID uuid.UUID) (*models.DashboardView, error) {
			return nil, database.ErrUnavailable
		},
	}
	q := &mockQueue{}
	r := newTestRefresher(rebuilder, &mockUsers{}, q)

	job := queue.NewDashboardRefreshJob(uuid.New(), 0, refresherNow)
	job.RetryCount = 2

	if err := r.ProcessJob(context.Background(), &mockMessage{job: job}); !errors.Is(err, database.ErrUnavailable) {
		t.Fatalf("ProcessJob() error = %v, want ErrUnavailable", err)
	}
	if len(q.jobs) != 1 {
		t.Fatalf("requeued jobs = %d, want 1", len(q.jobs))
	}

	retry := q.jobs[0]
	if retry.ID != job.ID {
		t.Errorf("retry ID = %s, want %s", retry.ID, job.ID)
	}
	if retry.RetryCount != 3 {
		t.Errorf("retry count = %d, want 3", retry.RetryCount)
	}
	if job.RetryCount != 2 {
		t.Errorf("original job mutated: retry count = %d", job.RetryCount)
	}
	wantNotBefore := refresherNow.Add(4 * DefaultRetryDelay)
	if retry.NotBefore == nil || !retry.NotBefore.Equal(wantNotBefore) {
		t.Errorf("NotBefore = %v, want %v", retry.NotBefore, wantNotBefore)
	}
}

func TestDashboardRefresher_NoQueueDeadLetters(t *testing.T) {
	t.Parallel()

	rebuilder := &mockRebuilder{
		refreshFunc: func(ctx context.Context, ownerID uuid.UUID) (*models.DashboardView, error) {
			return nil, database.ErrUnavailable
		},
	}
	r := newTestRefresher(rebuilder, &mockUsers{}, nil)
	msg := &mockMessage{job: queue.NewDashboardRefreshJob(uuid.New(), 0, refresherNow)}

	if err := r.ProcessJob(context.Background(), msg); err == nil {
		t.Fatal("expected error")
	}
	if msg.nacks != 1 || msg.acks != 0 {
		t.Errorf("acks=%d nacks=%d, want 0/1", msg.acks, msg.nacks)
	}
}
