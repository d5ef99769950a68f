package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/benvon/taskboard/internal/aggregate"
	"github.com/benvon/taskboard/internal/cache"
	"github.com/benvon/taskboard/internal/database"
	logpkg "github.com/benvon/taskboard/internal/logger"
	"github.com/benvon/taskboard/internal/models"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("github.com/benvon/taskboard/internal/dashboard")

// TTLs sets the lifetime of each cached entry
type TTLs struct {
	Dashboard      time.Duration
	Activity       time.Duration
	CompletionRate time.Duration
}

// DefaultTTLs returns the standard cache lifetimes
func DefaultTTLs() TTLs {
	return TTLs{
		Dashboard:      cache.DefaultDashboardTTL,
		Activity:       cache.DefaultActivityTTL,
		CompletionRate: cache.DefaultCompletionRateTTL,
	}
}

// GetOptions controls a single dashboard read
type GetOptions struct {
	// ForceRefresh skips the cached dashboard and rebuilds it
	ForceRefresh bool
}

// Service assembles dashboards and keeps them cached per owner.
// Concurrent rebuilds for the same owner race on the cache write; the last
// writer wins and the entry expires after its TTL.
type Service struct {
	reader   database.TaskReader
	cache    cache.Store
	executor aggregate.Executor[models.Section]
	ttls     TTLs
	now      func() time.Time
	logger   *zap.Logger
}

// Option configures a Service
type Option func(*Service)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithTTLs overrides the cache lifetimes
func WithTTLs(ttls TTLs) Option {
	return func(s *Service) {
		s.ttls = ttls
	}
}

// NewService creates a dashboard service
func NewService(reader database.TaskReader, store cache.Store, executor aggregate.Executor[models.Section], logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		reader:   reader,
		cache:    store,
		executor: executor,
		ttls:     DefaultTTLs(),
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Mode returns the execution mode of the underlying executor
func (s *Service) Mode() aggregate.Mode {
	return s.executor.Mode()
}

// GetDashboard returns the owner's dashboard, from cache when possible
func (s *Service) GetDashboard(ctx context.Context, ownerID uuid.UUID, opts GetOptions) (*models.DashboardView, error) {
	ctx, span := tracer.Start(ctx, "dashboard.get", trace.WithAttributes(
		attribute.Bool("dashboard.force_refresh", opts.ForceRefresh),
	))
	defer span.End()

	key := cache.DashboardKey(ownerID)

	if !opts.ForceRefresh {
		if view, ok := s.cachedView(ctx, key); ok {
			span.SetAttributes(attribute.Bool("dashboard.cache_hit", true))
			s.logger.Debug("dashboard_cache_hit", logpkg.UserID(ownerID))
			return view, nil
		}
	}
	span.SetAttributes(attribute.Bool("dashboard.cache_hit", false))

	now := s.now().UTC()
	jobs := s.jobSet(ownerID, now, opts.ForceRefresh)

	start := time.Now()
	result, err := s.executor.Run(ctx, jobs)
	if err != nil {
		return nil, fmt.Errorf("failed to build dashboard: %w", err)
	}

	view, err := Shape(result, now)
	if err != nil {
		return nil, fmt.Errorf("failed to build dashboard: %w", err)
	}

	s.logger.Debug("dashboard_built",
		logpkg.UserID(ownerID),
		zap.String("executor_mode", string(s.executor.Mode())),
		zap.Duration("duration", time.Since(start)))

	s.store(ctx, key, view)
	return view, nil
}

// JobSet builds the dashboard job set for an owner against this service's reader and caches
func (s *Service) JobSet(ownerID uuid.UUID, now time.Time) *aggregate.JobSet[models.Section] {
	return s.jobSet(ownerID, now, false)
}

func (s *Service) jobSet(ownerID uuid.UUID, now time.Time, skipRead bool) *aggregate.JobSet[models.Section] {
	return BuildJobSet(s.reader, SectionCaches{
		Store:             s.cache,
		ActivityTTL:       s.ttls.Activity,
		CompletionRateTTL: s.ttls.CompletionRate,
		Logger:            s.logger,
		SkipRead:          skipRead,
	}, ownerID, now)
}

// Invalidate drops every cached entry for the owner
func (s *Service) Invalidate(ctx context.Context, ownerID uuid.UUID) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Delete(ctx, cache.OwnerKeys(ownerID)...); err != nil {
		s.logger.Warn("dashboard_cache_invalidate_failed",
			logpkg.UserID(ownerID),
			zap.Error(err))
		return fmt.Errorf("failed to invalidate dashboard cache: %w", err)
	}
	return nil
}

// Refresh invalidates and rebuilds the owner's dashboard
func (s *Service) Refresh(ctx context.Context, ownerID uuid.UUID) (*models.DashboardView, error) {
	// a failed delete is overwritten by the forced rebuild below
	_ = s.Invalidate(ctx, ownerID)
	return s.GetDashboard(ctx, ownerID, GetOptions{ForceRefresh: true})
}

func (s *Service) cachedView(ctx context.Context, key string) (*models.DashboardView, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, found, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("dashboard_cache_read_failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if !found {
		return nil, false
	}
	var view models.DashboardView
	if err := json.Unmarshal(raw, &view); err != nil {
		s.logger.Warn("dashboard_cache_decode_failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return &view, true
}

func (s *Service) store(ctx context.Context, key string, view *models.DashboardView) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(view)
	if err != nil {
		s.logger.Warn("dashboard_cache_encode_failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.ttls.Dashboard); err != nil {
		s.logger.Warn("dashboard_cache_write_failed", zap.String("key", key), zap.Error(err))
	}
}

// Shape maps a joined job result onto the public dashboard view
func Shape(result *aggregate.Result[models.Section], generatedAt time.Time) (*models.DashboardView, error) {
	view := &models.DashboardView{GeneratedAt: generatedAt.UTC()}

	for _, key := range result.Keys() {
		section, _ := result.Get(key)
		switch v := section.(type) {
		case models.Stats:
			view.Stats = v
		case models.CategoryBreakdown:
			view.Categories = v
		case models.TaskSummaryList:
			switch key {
			case KeyRecentTasks:
				view.RecentTasks = v
			case KeyUpcomingDeadlines:
				view.UpcomingDeadlines = v
			default:
				return nil, fmt.Errorf("unexpected task list section %q", key)
			}
		case models.ActivityFeed:
			view.RecentActivity = v
		case models.TrendSeries:
			view.CompletionRateOverTime = v
		case models.PriorityDistribution:
			view.PriorityDistribution = v
		default:
			return nil, fmt.Errorf("unexpected section %q of type %T", key, section)
		}
	}
	return view, nil
}
