package benchmark

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/taskboard/internal/aggregate"
	"github.com/benvon/taskboard/internal/dashboard"
	"github.com/benvon/taskboard/internal/database"
	"github.com/benvon/taskboard/internal/models"
	"github.com/google/uuid"
)

// Benchmark features
const (
	FeatureDashboard = "dashboard"
	FeatureBatch     = "batch"
	FeatureAPI       = "api"
)

// Features lists the known features in run order
var Features = []string{FeatureDashboard, FeatureBatch, FeatureAPI}

// ErrUnknownFeature is returned for a feature name outside Features
var ErrUnknownFeature = errors.New("unknown benchmark feature")

// Fixture is the seeded data a feature reads
type Fixture struct {
	Tasks   database.TaskRepositoryInterface
	OwnerID uuid.UUID
	TaskIDs []uuid.UUID
	Now     time.Time
}

// RunOptions are shared by every feature
type RunOptions struct {
	Iterations int
	Validate   bool
	Executor   aggregate.Options
}

// RunFeature benchmarks one named feature against the fixture
func RunFeature(ctx context.Context, feature string, fx Fixture, opts RunOptions) (*Report, error) {
	switch feature {
	case FeatureDashboard:
		return compare(ctx, feature, opts, func() *aggregate.JobSet[models.Section] {
			// no section caches, every run reads the store
			return dashboard.BuildJobSet(fx.Tasks, dashboard.SectionCaches{}, fx.OwnerID, fx.Now)
		})
	case FeatureBatch:
		return compare(ctx, feature, opts, func() *aggregate.JobSet[*models.Task] {
			jobs := aggregate.NewJobSet[*models.Task]()
			for _, id := range fx.TaskIDs {
				jobs.MustAdd(id.String(), func(ctx context.Context) (*models.Task, error) {
					return fx.Tasks.GetByID(ctx, id)
				})
			}
			return jobs
		})
	case FeatureAPI:
		return compare(ctx, feature, opts, func() *aggregate.JobSet[any] {
			return apiJobs(fx)
		})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFeature, feature)
	}
}

func compare[V any](ctx context.Context, name string, opts RunOptions, jobs func() *aggregate.JobSet[V]) (*Report, error) {
	return Compare(ctx, Config[V]{
		Name:       name,
		Jobs:       jobs,
		Baseline:   aggregate.NewSequential[V](opts.Executor),
		Optimized:  aggregate.NewConcurrent[V](opts.Executor),
		Iterations: opts.Iterations,
		Validate:   opts.Validate,
	})
}

// apiJobs are the reads behind a single task list page
func apiJobs(fx Fixture) *aggregate.JobSet[any] {
	reader := fx.Tasks
	owner := fx.OwnerID
	count := func(filter models.TaskFilter) func(ctx context.Context) (any, error) {
		return func(ctx context.Context) (any, error) {
			return reader.CountTasks(ctx, owner, filter)
		}
	}

	return aggregate.NewJobSet[any]().
		MustAdd("page", func(ctx context.Context) (any, error) {
			return reader.ListTasks(ctx, owner, models.TaskFilter{Limit: 20})
		}).
		MustAdd("total", count(models.TaskFilter{})).
		MustAdd("pending", count(models.TaskFilter{Status: models.TaskStatusPending})).
		MustAdd("overdue", count(models.TaskFilter{Status: models.TaskStatusOverdue, Now: fx.Now})).
		MustAdd("categories", func(ctx context.Context) (any, error) {
			return reader.CategoryTaskCounts(ctx, owner, 10)
		})
}

// Repositories is the write access needed to seed a fixture
type Repositories struct {
	Users      database.UserRepositoryInterface
	Categories database.CategoryRepositoryInterface
	Tasks      database.TaskRepositoryInterface
}

var seedCategories = []struct{ name, color string }{
	{"work", "#2563eb"},
	{"home", "#16a34a"},
	{"errands", "#d97706"},
}

// Seed creates a throw-away owner with n tasks spread over priorities,
// categories, due dates and completion states. The returned cleanup deletes
// the owner and everything it owns.
func Seed(ctx context.Context, repos Repositories, n int, now time.Time) (Fixture, func(context.Context) error, error) {
	owner := &models.User{
		ID:    uuid.New(),
		Email: fmt.Sprintf("benchmark+%s@taskboard.local", uuid.NewString()[:8]),
	}
	if err := repos.Users.Create(ctx, owner); err != nil {
		return Fixture{}, nil, fmt.Errorf("failed to seed owner: %w", err)
	}
	cleanup := func(ctx context.Context) error {
		return repos.Users.Delete(ctx, owner.ID)
	}

	categoryIDs := make([]uuid.UUID, 0, len(seedCategories))
	for _, c := range seedCategories {
		category := &models.Category{ID: uuid.New(), UserID: owner.ID, Name: c.name, Color: c.color}
		if err := repos.Categories.Create(ctx, category); err != nil {
			_ = cleanup(ctx)
			return Fixture{}, nil, fmt.Errorf("failed to seed category: %w", err)
		}
		categoryIDs = append(categoryIDs, category.ID)
	}

	fx := Fixture{Tasks: repos.Tasks, OwnerID: owner.ID, Now: now}
	for i := 0; i < n; i++ {
		task := &models.Task{
			ID:       uuid.New(),
			UserID:   owner.ID,
			Title:    fmt.Sprintf("benchmark task %d", i+1),
			Priority: models.Priorities[i%len(models.Priorities)],
			Tags:     []string{"benchmark"},
		}
		if i%4 != 3 {
			due := now.Add(time.Duration(i%7-3) * 24 * time.Hour)
			task.DueAt = &due
		}
		if i%5 != 4 {
			categoryID := categoryIDs[i%len(categoryIDs)]
			task.CategoryID = &categoryID
		}
		if i%3 == 0 {
			task.MarkCompleted(now)
		} else if err := task.SetProgress((i*10)%100, now); err != nil {
			_ = cleanup(ctx)
			return Fixture{}, nil, err
		}

		if err := repos.Tasks.Create(ctx, task); err != nil {
			_ = cleanup(ctx)
			return Fixture{}, nil, fmt.Errorf("failed to seed task: %w", err)
		}
		fx.TaskIDs = append(fx.TaskIDs, task.ID)
	}

	return fx, cleanup, nil
}
