// Package dashboard assembles a user's dashboard from independent read jobs
// and caches the result per owner.
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/benvon/taskboard/internal/aggregate"
	"github.com/benvon/taskboard/internal/cache"
	"github.com/benvon/taskboard/internal/database"
	"github.com/benvon/taskboard/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Section keys, in the order they are declared
const (
	KeyStats                  = "stats"
	KeyCategories             = "categories"
	KeyRecentTasks            = "recentTasks"
	KeyUpcomingDeadlines      = "upcomingDeadlines"
	KeyRecentActivity         = "recentActivity"
	KeyCompletionRateOverTime = "completionRateOverTime"
	KeyPriorityDistribution   = "priorityDistribution"
)

const (
	topCategories   = 5
	recentTaskCount = 5
	upcomingCount   = 5
	activityLimit   = 10
	trendDays       = 7
)

// SectionCaches holds the stores for sections that are cached on their own
type SectionCaches struct {
	Store             cache.Store
	ActivityTTL       time.Duration
	CompletionRateTTL time.Duration
	Logger            *zap.Logger
	// SkipRead recomputes every section and overwrites its entry
	SkipRead bool
}

// BuildJobSet declares one job per dashboard section. Jobs only read from
// reader and never depend on each other's output.
func BuildJobSet(reader database.TaskReader, caches SectionCaches, ownerID uuid.UUID, now time.Time) *aggregate.JobSet[models.Section] {
	if caches.Logger == nil {
		caches.Logger = zap.NewNop()
	}
	now = now.UTC()

	return aggregate.NewJobSet[models.Section]().
		MustAdd(KeyStats, func(ctx context.Context) (models.Section, error) {
			return stats(ctx, reader, ownerID, now)
		}).
		MustAdd(KeyCategories, func(ctx context.Context) (models.Section, error) {
			summaries, err := reader.CategoryTaskCounts(ctx, ownerID, topCategories)
			if err != nil {
				return nil, err
			}
			return models.CategoryBreakdown(append([]models.CategorySummary{}, summaries...)), nil
		}).
		MustAdd(KeyRecentTasks, func(ctx context.Context) (models.Section, error) {
			return summaries(ctx, reader, ownerID, models.TaskFilter{
				OrderBy: models.OrderCreatedDesc,
				Limit:   recentTaskCount,
			})
		}).
		MustAdd(KeyUpcomingDeadlines, func(ctx context.Context) (models.Section, error) {
			return summaries(ctx, reader, ownerID, models.TaskFilter{
				Status:   models.TaskStatusPending,
				DueAfter: &now,
				OrderBy:  models.OrderDueAsc,
				Limit:    upcomingCount,
			})
		}).
		MustAdd(KeyRecentActivity, func(ctx context.Context) (models.Section, error) {
			return cached(ctx, caches, cache.RecentActivityKey(ownerID), caches.ActivityTTL, func() (models.ActivityFeed, error) {
				return activity(ctx, reader, ownerID)
			})
		}).
		MustAdd(KeyCompletionRateOverTime, func(ctx context.Context) (models.Section, error) {
			return cached(ctx, caches, cache.CompletionRateKey(ownerID), caches.CompletionRateTTL, func() (models.TrendSeries, error) {
				return trend(ctx, reader, ownerID, now)
			})
		}).
		MustAdd(KeyPriorityDistribution, func(ctx context.Context) (models.Section, error) {
			counts, err := reader.CountByPriority(ctx, ownerID)
			if err != nil {
				return nil, err
			}
			dist := make(models.PriorityDistribution, len(models.Priorities))
			for _, p := range models.Priorities {
				dist[p] = counts[p]
			}
			return dist, nil
		})
}

// percent returns part/total as a rounded percentage, 0 for an empty total
func percent(part, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}

func stats(ctx context.Context, reader database.TaskReader, ownerID uuid.UUID, now time.Time) (models.Section, error) {
	total, err := reader.CountTasks(ctx, ownerID, models.TaskFilter{})
	if err != nil {
		return nil, err
	}
	completed, err := reader.CountTasks(ctx, ownerID, models.TaskFilter{Status: models.TaskStatusCompleted})
	if err != nil {
		return nil, err
	}
	overdue, err := reader.CountTasks(ctx, ownerID, models.TaskFilter{Status: models.TaskStatusOverdue, Now: now})
	if err != nil {
		return nil, err
	}

	return models.Stats{
		Total:          total,
		Completed:      completed,
		Pending:        total - completed,
		Overdue:        overdue,
		CompletionRate: percent(completed, total),
	}, nil
}

func summaries(ctx context.Context, reader database.TaskReader, ownerID uuid.UUID, filter models.TaskFilter) (models.Section, error) {
	tasks, err := reader.ListTasks(ctx, ownerID, filter)
	if err != nil {
		return nil, err
	}
	list := make(models.TaskSummaryList, 0, len(tasks))
	for _, t := range tasks {
		list = append(list, models.NewTaskSummary(t))
	}
	return list, nil
}

func activity(ctx context.Context, reader database.TaskReader, ownerID uuid.UUID) (models.ActivityFeed, error) {
	events, err := reader.ActivityEvents(ctx, ownerID, activityLimit)
	if err != nil {
		return nil, err
	}
	feed := make(models.ActivityFeed, 0, len(events))
	for _, e := range events {
		e.At = e.At.UTC()
		feed = append(feed, e)
	}
	return feed, nil
}

// trend computes the cumulative completion rate at the end of each of the
// last seven UTC days, oldest first
func trend(ctx context.Context, reader database.TaskReader, ownerID uuid.UUID, now time.Time) (models.TrendSeries, error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	series := make(models.TrendSeries, 0, trendDays)
	for i := trendDays - 1; i >= 0; i-- {
		day := today.AddDate(0, 0, -i)
		end := day.AddDate(0, 0, 1).Add(-time.Microsecond)

		total, err := reader.CountTasks(ctx, ownerID, models.TaskFilter{CreatedBefore: &end})
		if err != nil {
			return nil, err
		}
		completed, err := reader.CountTasks(ctx, ownerID, models.TaskFilter{
			CreatedBefore:   &end,
			CompletedBefore: &end,
		})
		if err != nil {
			return nil, err
		}

		series = append(series, models.TrendPoint{
			Date: day.Format("2006-01-02"),
			Rate: percent(completed, total),
		})
	}
	return series, nil
}

// cached serves a section from its own cache entry, computing and storing it on
// a miss. Cache failures are logged and treated as a miss.
func cached[S models.Section](ctx context.Context, caches SectionCaches, key string, ttl time.Duration, compute func() (S, error)) (models.Section, error) {
	if caches.Store != nil && !caches.SkipRead {
		raw, found, err := caches.Store.Get(ctx, key)
		switch {
		case err != nil:
			caches.Logger.Warn("section_cache_read_failed", zap.String("key", key), zap.Error(err))
		case found:
			var section S
			if err := json.Unmarshal(raw, &section); err == nil {
				return section, nil
			}
			caches.Logger.Warn("section_cache_decode_failed", zap.String("key", key))
		}
	}

	section, err := compute()
	if err != nil {
		return nil, err
	}

	if caches.Store != nil {
		raw, err := json.Marshal(section)
		if err != nil {
			return nil, fmt.Errorf("failed to encode section: %w", err)
		}
		if err := caches.Store.Set(ctx, key, raw, ttl); err != nil {
			caches.Logger.Warn("section_cache_write_failed", zap.String("key", key), zap.Error(err))
		}
	}
	return section, nil
}
