package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/benvon/taskboard/internal/aggregate"
	"github.com/benvon/taskboard/internal/auth"
	"github.com/benvon/taskboard/internal/cache"
	"github.com/benvon/taskboard/internal/config"
	"github.com/benvon/taskboard/internal/dashboard"
	"github.com/benvon/taskboard/internal/database"
	"github.com/benvon/taskboard/internal/handlers"
	"github.com/benvon/taskboard/internal/logger"
	"github.com/benvon/taskboard/internal/middleware"
	"github.com/benvon/taskboard/internal/models"
	"github.com/benvon/taskboard/internal/queue"
	"github.com/benvon/taskboard/internal/telemetry"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"
)

// set with -ldflags at build time
var (
	version = "dev"
	commit  = "unknown"
)

const serviceName = "taskboard-api"

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.ServerDebugMode || *debugFlag

	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		_ = logger.Sync(zapLogger)
	}()

	zapLogger.Info("starting_server",
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("frontend_url", cfg.FrontendURL),
		zap.String("executor_mode", string(cfg.ExecutorMode)),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	otelEnabled := cfg.OTELEnabled && cfg.OTELEndpoint != ""
	if cfg.OTELEnabled && !otelEnabled {
		zapLogger.Warn("otel_enabled_but_endpoint_not_configured")
	}
	shutdownTracing, err := telemetry.Setup(context.Background(), telemetry.Config{
		Enabled:        otelEnabled,
		ServiceName:    serviceName,
		ServiceVersion: version,
		Endpoint:       cfg.OTELEndpoint,
	})
	if err != nil {
		zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
		otelEnabled = false
	} else {
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := shutdownTracing(shutdownCtx); err != nil {
				zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
			}
		}()
	}

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_database")

	redisClient, err := cache.Connect(context.Background(), cfg.RedisURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_redis", zap.Error(err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_redis")

	// RabbitMQ is optional; without it writes still invalidate the cache
	// and the next read rebuilds the dashboard.
	var jobQueue *queue.RabbitMQQueue
	var enqueuer queue.Enqueuer
	if cfg.RabbitMQURL != "" {
		jobQueue = connectRabbitMQ(cfg.RabbitMQURL, zapLogger)
		defer func() {
			if err := jobQueue.Close(); err != nil {
				zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
			}
		}()
		enqueuer = jobQueue
	} else {
		zapLogger.Warn("rabbitmq_not_configured_background_refresh_disabled")
	}

	// Repositories
	taskRepo := database.NewTaskRepository(db)
	categoryRepo := database.NewCategoryRepository(db)
	userRepo := database.NewUserRepository(db)
	settingsRepo := database.NewSettingsRepository(db)

	// Dashboard service
	execOpts := cfg.ExecutorOptions()
	execOpts.Logger = zapLogger
	executor, err := aggregate.NewExecutor[models.Section](cfg.ExecutorMode, execOpts)
	if err != nil {
		zapLogger.Fatal("failed_to_create_executor", zap.Error(err))
	}
	dashboards := dashboard.NewService(taskRepo, cache.NewRedis(redisClient, cache.DefaultPrefix), executor, zapLogger,
		dashboard.WithTTLs(dashboard.TTLs{
			Dashboard:      cfg.DashboardCacheTTL,
			Activity:       cfg.ActivityCacheTTL,
			CompletionRate: cfg.CompletionRateCacheTTL,
		}),
	)
	scheduler := queue.NewRefreshScheduler(enqueuer, cfg.RefreshDebounce, zapLogger)

	tokens, err := auth.NewTokens(cfg.JWTSecret, cfg.JWTIssuer)
	if err != nil {
		zapLogger.Fatal("failed_to_create_token_verifier", zap.Error(err))
	}

	// Handlers
	taskHandler := handlers.NewTaskHandler(taskRepo, categoryRepo, zapLogger,
		handlers.WithTaskInvalidator(dashboards),
		handlers.WithTaskRefreshScheduler(scheduler),
	)
	categoryHandler := handlers.NewCategoryHandler(categoryRepo, dashboards, scheduler, zapLogger)
	dashboardHandler := handlers.NewDashboardHandler(dashboards, zapLogger)

	healthChecker := handlers.NewHealthChecker().
		AddCheck("database", db.PingContext).
		AddCheck("redis", func(ctx context.Context) error { return redisClient.Ping(ctx).Err() })
	if jobQueue != nil {
		healthChecker.AddCheck("rabbitmq", jobQueue.HealthCheck)
	}

	r := mux.NewRouter()

	// gorilla/mux runs middleware in registration order: the first registered is outermost
	if otelEnabled {
		r.Use(otelmux.Middleware(serviceName))
	}
	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))
	r.Use(middleware.CORS(cfg.FrontendURL))
	r.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
	r.Use(middleware.ContentType)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.ErrorHandler(zapLogger))
	r.Use(middleware.Audit(zapLogger))
	r.Use(middleware.Logging(zapLogger))

	limiterStore, err := middleware.NewRedisLimiterStore(redisClient)
	if err != nil {
		zapLogger.Fatal("failed_to_create_rate_limiter_store", zap.Error(err))
	}
	rateLimitReloader := middleware.NewRateLimitReloader(limiterStore, settingsRepo, cfg.RateLimit, zapLogger, time.Minute)
	if rateLimitReloader == nil {
		zapLogger.Fatal("failed_to_create_rate_limit_reloader")
	}
	authMW := middleware.Auth(tokens, userRepo, zapLogger)
	rateLimitMW := rateLimitReloader.Middleware()

	// Public routes
	r.HandleFunc("/healthz", healthChecker.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/version", handlers.VersionHandler(version, commit)).Methods(http.MethodGet)
	handlers.NewOpenAPIHandler(filepath.Join("api", "openapi", "openapi.yaml")).RegisterRoutes(r)

	// API v1 routes (protected)
	apiRouter := r.PathPrefix("/api/v1").Subrouter()

	tasksRouter := apiRouter.PathPrefix("/tasks").Subrouter()
	tasksRouter.Use(authMW, rateLimitMW)
	taskHandler.RegisterRoutes(tasksRouter)

	categoriesRouter := apiRouter.PathPrefix("/categories").Subrouter()
	categoriesRouter.Use(authMW, rateLimitMW)
	categoryHandler.RegisterRoutes(categoriesRouter)

	dashboardRouter := apiRouter.PathPrefix("/dashboard").Subrouter()
	dashboardRouter.Use(authMW, rateLimitMW)
	dashboardHandler.RegisterRoutes(dashboardRouter)

	// Preflight requests are answered by the CORS middleware before routing
	r.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	srv := &http.Server{
		Addr:           ":" + cfg.ServerPort,
		Handler:        r,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   35 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()
	go rateLimitReloader.Start(bgCtx)

	go func() {
		zapLogger.Info("server_starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")
	bgCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("server_forced_to_shutdown", zap.Error(err))
	}

	zapLogger.Info("server_exited")
}

// connectRabbitMQ retries with exponential backoff to ride out broker startup
func connectRabbitMQ(url string, zapLogger *zap.Logger) *queue.RabbitMQQueue {
	const maxRetries = 10
	const initialDelay = 2 * time.Second

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		q, err := queue.NewRabbitMQQueue(url, zapLogger)
		if err == nil {
			zapLogger.Info("connected_to_rabbitmq")
			return q
		}

		lastErr = err
		delay := initialDelay * time.Duration(1<<uint(attempt))
		if delay > 30*time.Second {
			delay = 30 * time.Second
		}
		zapLogger.Warn("failed_to_connect_to_rabbitmq_retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", maxRetries),
			zap.Duration("retry_delay", delay),
			zap.Error(err),
		)
		time.Sleep(delay)
	}

	zapLogger.Fatal("failed_to_connect_to_rabbitmq_after_retries",
		zap.Int("max_retries", maxRetries),
		zap.Error(lastErr),
	)
	return nil
}
