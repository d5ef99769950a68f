package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/benvon/taskboard/internal/aggregate"
	"github.com/benvon/taskboard/internal/cache"
	"github.com/joho/godotenv"
	"github.com/ulule/limiter/v3"
)

// MinJWTSecretLength is the minimum HS256 key size in bytes
const MinJWTSecretLength = 32

// Config holds application configuration
type Config struct {
	DatabaseURL      string
	ServerPort       string
	BaseURL          string
	FrontendURL      string
	EnableHSTS       bool
	RedisURL         string
	RabbitMQURL      string
	RabbitMQPrefetch int
	WorkerDebugMode  bool
	ServerDebugMode  bool
	OTELEnabled      bool
	OTELEndpoint     string

	JWTSecret string
	JWTIssuer string

	ExecutorMode        aggregate.Mode
	ExecutorJobTimeout  time.Duration
	ExecutorConcurrency int

	DashboardCacheTTL      time.Duration
	ActivityCacheTTL       time.Duration
	CompletionRateCacheTTL time.Duration

	RateLimit       string
	RefreshDebounce time.Duration
}

// Load loads configuration for the server and worker. DATABASE_URL and
// JWT_SECRET are required.
func Load() (*Config, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if len(cfg.JWTSecret) < MinJWTSecretLength {
		return nil, fmt.Errorf("JWT_SECRET is required and must be at least %d bytes", MinJWTSecretLength)
	}

	return cfg, nil
}

// LoadCLI loads configuration for taskctl. Commands check for the settings they need.
func LoadCLI() (*Config, error) {
	return load()
}

func load() (*Config, error) {
	if err := loadDotEnv(getEnv("ENV_FILE", ".env")); err != nil {
		return nil, err
	}

	cfg := &Config{
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		ServerPort:       getEnv("SERVER_PORT", "8080"),
		BaseURL:          getEnv("BASE_URL", "http://localhost:8080"),
		FrontendURL:      getEnv("FRONTEND_URL", "http://localhost:3000"),
		EnableHSTS:       getEnvBool("ENABLE_HSTS", false),
		RedisURL:         getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RabbitMQURL:      getEnv("RABBITMQ_URL", ""),
		RabbitMQPrefetch: getEnvInt("RABBITMQ_PREFETCH", 1),
		WorkerDebugMode:  getEnvBool("WORKER_DEBUG_MODE", false),
		ServerDebugMode:  getEnvBool("SERVER_DEBUG_MODE", false),
		OTELEnabled:      getEnvBool("OTEL_ENABLED", false),
		OTELEndpoint:     getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTIssuer: getEnv("JWT_ISSUER", "taskboard"),

		ExecutorJobTimeout:  getEnvDuration("EXECUTOR_JOB_TIMEOUT", aggregate.DefaultJobTimeout),
		ExecutorConcurrency: getEnvInt("EXECUTOR_CONCURRENCY", 0),

		DashboardCacheTTL:      getEnvDuration("DASHBOARD_CACHE_TTL", cache.DefaultDashboardTTL),
		ActivityCacheTTL:       getEnvDuration("ACTIVITY_CACHE_TTL", cache.DefaultActivityTTL),
		CompletionRateCacheTTL: getEnvDuration("COMPLETION_RATE_CACHE_TTL", cache.DefaultCompletionRateTTL),

		RateLimit:       getEnv("RATE_LIMIT", "5-S"),
		RefreshDebounce: getEnvDuration("REFRESH_DEBOUNCE", 5*time.Second),
	}

	mode, err := aggregate.ParseMode(getEnv("EXECUTOR_MODE", string(aggregate.ModeConcurrent)))
	if err != nil {
		return nil, fmt.Errorf("invalid EXECUTOR_MODE: %w", err)
	}
	cfg.ExecutorMode = mode

	if cfg.ExecutorConcurrency < 0 {
		return nil, fmt.Errorf("EXECUTOR_CONCURRENCY must not be negative")
	}
	if _, err := limiter.NewRateFromFormatted(cfg.RateLimit); err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT %q: %w", cfg.RateLimit, err)
	}

	return cfg, nil
}

// ExecutorOptions returns the executor settings
func (c *Config) ExecutorOptions() aggregate.Options {
	return aggregate.Options{
		JobTimeout: c.ExecutorJobTimeout,
		Limit:      c.ExecutorConcurrency,
	}
}

// loadDotEnv seeds the environment from path when the file exists.
// Variables already set take precedence.
func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
