package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benvon/taskboard/internal/aggregate"
	"github.com/benvon/taskboard/internal/cache"
	"github.com/benvon/taskboard/internal/database"
	"github.com/benvon/taskboard/internal/database/memory"
	"github.com/benvon/taskboard/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func timePtr(t time.Time) *time.Time { return &t }

type fixture struct {
	store     *memory.Store
	cache     *cache.Memory
	owner     uuid.UUID
	other     uuid.UUID
	completed uuid.UUID
	overdue   uuid.UUID
	undated   uuid.UUID
	foreign   uuid.UUID
}

// newFixture seeds an owner with three tasks due {yesterday, today, none}, the
// one due today already completed, plus a second owner with a single task
func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		owner:     uuid.New(),
		other:     uuid.New(),
		completed: uuid.New(),
		overdue:   uuid.New(),
		undated:   uuid.New(),
		foreign:   uuid.New(),
	}
	work := &models.Category{ID: uuid.New(), UserID: f.owner, Name: "work", Color: "#112233"}
	secret := &models.Category{ID: uuid.New(), UserID: f.other, Name: "secret", Color: "#445566"}

	f.store = memory.New(memory.WithClock(func() time.Time { return now }))
	f.store.Seed(
		[]*models.User{
			{ID: f.owner, Email: "owner@example.com"},
			{ID: f.other, Email: "other@example.com"},
		},
		[]*models.Category{work, secret},
		[]*models.Task{
			{
				ID: f.completed, UserID: f.owner, Title: "ship release", Priority: models.PriorityHigh,
				DueAt: timePtr(now.Add(6 * time.Hour)), Completed: true, CompletedAt: timePtr(now.Add(-2 * time.Hour)),
				CreatedAt: now.Add(-72 * time.Hour), UpdatedAt: now.Add(-2 * time.Hour), CategoryID: &work.ID,
			},
			{
				ID: f.overdue, UserID: f.owner, Title: "file taxes", Priority: models.PriorityMedium,
				DueAt: timePtr(now.Add(-24 * time.Hour)), CreatedAt: now.Add(-48 * time.Hour), CategoryID: &work.ID,
			},
			{
				ID: f.undated, UserID: f.owner, Title: "read book", Priority: models.PriorityLow,
				CreatedAt: now.Add(-time.Hour),
			},
			{
				ID: f.foreign, UserID: f.other, Title: "someone else", Priority: models.PriorityHigh,
				DueAt: timePtr(now.Add(24 * time.Hour)), CreatedAt: now.Add(-time.Hour), CategoryID: &secret.ID,
			},
		},
	)
	f.cache = cache.NewMemoryWithClock(func() time.Time { return now })
	return f
}

func (f *fixture) service(t *testing.T, mode aggregate.Mode, reader database.TaskReader, store cache.Store) *Service {
	t.Helper()
	exec, err := aggregate.NewExecutor[models.Section](mode, aggregate.Options{})
	require.NoError(t, err)
	if reader == nil {
		reader = f.store.Tasks()
	}
	return NewService(reader, store, exec, nil, WithClock(func() time.Time { return now }))
}

func taskIDs(list models.TaskSummaryList) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(list))
	for _, s := range list {
		ids = append(ids, s.ID)
	}
	return ids
}

func TestGetDashboard_StatsAndSections(t *testing.T) {
	t.Parallel()

	for _, mode := range []aggregate.Mode{aggregate.ModeSequential, aggregate.ModeConcurrent} {
		t.Run(string(mode), func(t *testing.T) {
			t.Parallel()

			f := newFixture(t)
			view, err := f.service(t, mode, nil, f.cache).GetDashboard(context.Background(), f.owner, GetOptions{})
			require.NoError(t, err)

			assert.Equal(t, models.Stats{
				Total:          3,
				Completed:      1,
				Pending:        2,
				Overdue:        1,
				CompletionRate: 33,
			}, view.Stats)

			upcoming := taskIDs(view.UpcomingDeadlines)
			assert.NotContains(t, upcoming, f.completed)
			assert.NotContains(t, upcoming, f.undated)

			assert.Equal(t, []uuid.UUID{f.undated, f.overdue, f.completed}, taskIDs(view.RecentTasks))
			require.Len(t, view.Categories, 1)
			assert.Equal(t, "work", view.Categories[0].Name)
			assert.Equal(t, 2, view.Categories[0].TaskCount)

			assert.Equal(t, models.PriorityDistribution{
				models.PriorityLow:    1,
				models.PriorityMedium: 1,
				models.PriorityHigh:   1,
			}, view.PriorityDistribution)

			require.NotEmpty(t, view.RecentActivity)
			assert.Equal(t, models.ActivityCreated, view.RecentActivity[0].Type)
			assert.Equal(t, f.undated, view.RecentActivity[0].TaskID)

			require.Len(t, view.CompletionRateOverTime, 7)
			assert.Equal(t, "2026-03-10", view.CompletionRateOverTime[6].Date)
			assert.Equal(t, "2026-03-04", view.CompletionRateOverTime[0].Date)
			assert.Equal(t, 33, view.CompletionRateOverTime[6].Rate)
			assert.Equal(t, 0, view.CompletionRateOverTime[5].Rate)
			assert.Equal(t, now, view.GeneratedAt)
		})
	}
}

func TestGetDashboard_UpcomingDeadlines(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	soon := uuid.New()
	f.store.Seed(nil, nil, []*models.Task{{
		ID: soon, UserID: f.owner, Title: "call bank", Priority: models.PriorityLow,
		DueAt: timePtr(now.Add(3 * time.Hour)), CreatedAt: now.Add(-time.Minute),
	}})

	view, err := f.service(t, aggregate.ModeConcurrent, nil, nil).GetDashboard(context.Background(), f.owner, GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{soon}, taskIDs(view.UpcomingDeadlines))
}

func TestGetDashboard_TenantIsolation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	svc := f.service(t, aggregate.ModeConcurrent, nil, f.cache)

	view, err := svc.GetDashboard(context.Background(), f.owner, GetOptions{})
	require.NoError(t, err)

	for _, id := range append(taskIDs(view.RecentTasks), taskIDs(view.UpcomingDeadlines)...) {
		assert.NotEqual(t, f.foreign, id)
	}
	for _, e := range view.RecentActivity {
		assert.NotEqual(t, f.foreign, e.TaskID)
	}
	for _, c := range view.Categories {
		assert.NotEqual(t, "secret", c.Name)
	}

	other, err := svc.GetDashboard(context.Background(), f.other, GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, other.Stats.Total)
	assert.Equal(t, []uuid.UUID{f.foreign}, taskIDs(other.UpcomingDeadlines))
}

type countingReader struct {
	database.TaskReader
	calls atomic.Int64
}

func (r *countingReader) CountTasks(ctx context.Context, ownerID uuid.UUID, f models.TaskFilter) (int, error) {
	r.calls.Add(1)
	return r.TaskReader.CountTasks(ctx, ownerID, f)
}

func (r *countingReader) ListTasks(ctx context.Context, ownerID uuid.UUID, f models.TaskFilter) ([]*models.Task, error) {
	r.calls.Add(1)
	return r.TaskReader.ListTasks(ctx, ownerID, f)
}

func TestGetDashboard_Idempotent(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	reader := &countingReader{TaskReader: f.store.Tasks()}
	svc := f.service(t, aggregate.ModeConcurrent, reader, f.cache)
	ctx := context.Background()

	first, err := svc.GetDashboard(ctx, f.owner, GetOptions{})
	require.NoError(t, err)
	reads := reader.calls.Load()
	require.Positive(t, reads)

	second, err := svc.GetDashboard(ctx, f.owner, GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, reads, reader.calls.Load(), "expected second read to be served from cache")

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestGetDashboard_ForceRefreshBypassesCache(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	reader := &countingReader{TaskReader: f.store.Tasks()}
	svc := f.service(t, aggregate.ModeSequential, reader, f.cache)
	ctx := context.Background()

	_, err := svc.GetDashboard(ctx, f.owner, GetOptions{})
	require.NoError(t, err)
	reads := reader.calls.Load()

	_, err = svc.GetDashboard(ctx, f.owner, GetOptions{ForceRefresh: true})
	require.NoError(t, err)
	assert.Greater(t, reader.calls.Load(), reads)
}

func TestGetDashboard_ForceRefreshRebuildsSectionCaches(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	svc := f.service(t, aggregate.ModeConcurrent, nil, f.cache)
	ctx := context.Background()

	primed, err := svc.GetDashboard(ctx, f.owner, GetOptions{})
	require.NoError(t, err)
	require.Len(t, primed.CompletionRateOverTime, 7)
	assert.Equal(t, 33, primed.CompletionRateOverTime[6].Rate)

	// written behind the service's back, so nothing is invalidated
	added := &models.Task{ID: uuid.New(), UserID: f.owner, Title: "call plumber", Priority: models.PriorityMedium}
	require.NoError(t, f.store.Tasks().Create(ctx, added))

	forced, err := svc.GetDashboard(ctx, f.owner, GetOptions{ForceRefresh: true})
	require.NoError(t, err)
	assert.Equal(t, 4, forced.Stats.Total)
	require.NotEmpty(t, forced.RecentTasks)
	assert.Equal(t, added.ID, forced.RecentTasks[0].ID)
	require.NotEmpty(t, forced.RecentActivity)
	assert.Equal(t, added.ID, forced.RecentActivity[0].TaskID)
	assert.Equal(t, models.ActivityCreated, forced.RecentActivity[0].Type)
	assert.Equal(t, 25, forced.CompletionRateOverTime[6].Rate)

	raw, found, err := f.cache.Get(ctx, cache.RecentActivityKey(f.owner))
	require.NoError(t, err)
	require.True(t, found)
	var feed models.ActivityFeed
	require.NoError(t, json.Unmarshal(raw, &feed))
	require.NotEmpty(t, feed)
	assert.Equal(t, added.ID, feed[0].TaskID)

	cached, err := svc.GetDashboard(ctx, f.owner, GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, forced.RecentActivity, cached.RecentActivity)
	assert.Equal(t, forced.CompletionRateOverTime, cached.CompletionRateOverTime)
}

func TestInvalidate_AfterMutation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	svc := f.service(t, aggregate.ModeConcurrent, nil, f.cache)
	ctx := context.Background()

	before, err := svc.GetDashboard(ctx, f.owner, GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, before.Stats.Completed)

	require.NoError(t, f.store.Tasks().Complete(ctx, f.owner, f.overdue))

	stale, err := svc.GetDashboard(ctx, f.owner, GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, stale.Stats.Completed, "expected cached view before invalidation")

	require.NoError(t, svc.Invalidate(ctx, f.owner))
	for _, key := range cache.OwnerKeys(f.owner) {
		_, found, err := f.cache.Get(ctx, key)
		require.NoError(t, err)
		assert.False(t, found, key)
	}

	after, err := svc.GetDashboard(ctx, f.owner, GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, after.Stats.Completed)
	assert.Equal(t, 0, after.Stats.Overdue)
	assert.Equal(t, 67, after.Stats.CompletionRate)
	assert.Equal(t, models.ActivityCompleted, after.RecentActivity[0].Type)
}

func TestRefresh(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	svc := f.service(t, aggregate.ModeConcurrent, nil, f.cache)
	ctx := context.Background()

	_, err := svc.GetDashboard(ctx, f.owner, GetOptions{})
	require.NoError(t, err)
	require.NoError(t, f.store.Tasks().Delete(ctx, f.owner, f.undated))

	view, err := svc.Refresh(ctx, f.owner)
	require.NoError(t, err)
	assert.Equal(t, 2, view.Stats.Total)

	_, found, err := f.cache.Get(ctx, cache.DashboardKey(f.owner))
	require.NoError(t, err)
	assert.True(t, found)
}

type failingReader struct {
	database.TaskReader
}

func (failingReader) CountByPriority(ctx context.Context, ownerID uuid.UUID) (map[models.Priority]int, error) {
	return nil, database.ErrUnavailable
}

func TestGetDashboard_JobFailureFailsAggregate(t *testing.T) {
	t.Parallel()

	for _, mode := range []aggregate.Mode{aggregate.ModeSequential, aggregate.ModeConcurrent} {
		t.Run(string(mode), func(t *testing.T) {
			t.Parallel()

			f := newFixture(t)
			svc := f.service(t, mode, failingReader{f.store.Tasks()}, f.cache)

			view, err := svc.GetDashboard(context.Background(), f.owner, GetOptions{})
			assert.Nil(t, view)
			assert.ErrorIs(t, err, database.ErrUnavailable)

			var jobErr *aggregate.JobError
			require.ErrorAs(t, err, &jobErr)
			assert.Equal(t, KeyPriorityDistribution, jobErr.Key)

			_, found, err := f.cache.Get(context.Background(), cache.DashboardKey(f.owner))
			require.NoError(t, err)
			assert.False(t, found, "expected no partial dashboard in cache")
		})
	}
}

type brokenCache struct{}

var errCacheDown = errors.New("cache down")

func (brokenCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, errCacheDown
}

func (brokenCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return errCacheDown
}

func (brokenCache) Delete(ctx context.Context, keys ...string) error {
	return errCacheDown
}

func TestGetDashboard_CacheFailureIsMiss(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	svc := f.service(t, aggregate.ModeConcurrent, nil, brokenCache{})
	ctx := context.Background()

	view, err := svc.GetDashboard(ctx, f.owner, GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, view.Stats.Total)

	assert.ErrorIs(t, svc.Invalidate(ctx, f.owner), errCacheDown)

	view, err = svc.Refresh(ctx, f.owner)
	require.NoError(t, err)
	assert.Equal(t, 3, view.Stats.Total)
}

func TestGetDashboard_CorruptCacheEntryIsMiss(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.cache.Set(ctx, cache.DashboardKey(f.owner), []byte("{not json"), time.Minute))
	require.NoError(t, f.cache.Set(ctx, cache.RecentActivityKey(f.owner), []byte("[oops"), time.Minute))

	view, err := f.service(t, aggregate.ModeConcurrent, nil, f.cache).GetDashboard(ctx, f.owner, GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, view.Stats.Total)
	assert.NotEmpty(t, view.RecentActivity)
}

func TestBuildJobSet_DeclarationOrder(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	jobs := BuildJobSet(f.store.Tasks(), SectionCaches{}, f.owner, now)
	assert.Equal(t, []string{
		KeyStats,
		KeyCategories,
		KeyRecentTasks,
		KeyUpcomingDeadlines,
		KeyRecentActivity,
		KeyCompletionRateOverTime,
		KeyPriorityDistribution,
	}, jobs.Keys())
}

func TestBuildJobSet_SectionCachesAreReused(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	caches := SectionCaches{Store: f.cache, ActivityTTL: time.Hour, CompletionRateTTL: time.Hour}

	exec := aggregate.NewSequential[models.Section](aggregate.Options{})
	first, err := exec.Run(ctx, BuildJobSet(f.store.Tasks(), caches, f.owner, now))
	require.NoError(t, err)

	require.NoError(t, f.store.Tasks().Delete(ctx, f.owner, f.undated))

	second, err := exec.Run(ctx, BuildJobSet(f.store.Tasks(), caches, f.owner, now))
	require.NoError(t, err)

	a, _ := first.Get(KeyRecentActivity)
	b, _ := second.Get(KeyRecentActivity)
	assert.Equal(t, a, b, "expected activity to come from its own cache")

	stats, _ := second.Get(KeyStats)
	assert.Equal(t, 2, stats.(models.Stats).Total)
}

func TestPercent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		part, total, want int
	}{
		{0, 0, 0},
		{1, 3, 33},
		{2, 3, 67},
		{1, 2, 50},
		{5, 5, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, percent(tt.part, tt.total))
	}
}
