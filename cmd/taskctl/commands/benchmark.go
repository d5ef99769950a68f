package commands

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/benvon/taskboard/internal/benchmark"
	"github.com/benvon/taskboard/internal/database"
	"github.com/benvon/taskboard/internal/database/memory"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	storeMemory   = "memory"
	storePostgres = "postgres"
)

type benchmarkFlags struct {
	iterations int
	features   []string
	todos      int
	store      string
	latency    time.Duration
	format     string
	noValidate bool
}

// NewBenchmarkCmd compares the sequential and concurrent executors
func NewBenchmarkCmd(logFn func() *zap.Logger) *cobra.Command {
	flags := benchmarkFlags{}

	cmd := &cobra.Command{
		Use:   "benchmark",
		Short: "Compare sequential and concurrent execution",
		Long: "Seed a throw-away owner, run each feature's job set with both executors and\n" +
			"print timing statistics with a recommendation. Features: " + strings.Join(benchmark.Features, ", ") + ".",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBenchmark(cmd, flags, logFn())
		},
	}

	cmd.Flags().IntVar(&flags.iterations, "iterations", 10, "Runs per executor and feature")
	cmd.Flags().StringSliceVar(&flags.features, "feature", benchmark.Features, "Features to benchmark (repeatable)")
	cmd.Flags().IntVar(&flags.todos, "todos", 50, "Tasks to seed")
	cmd.Flags().StringVar(&flags.store, "store", storeMemory, "Backing store: memory or postgres")
	cmd.Flags().DurationVar(&flags.latency, "latency", 5*time.Millisecond, "Simulated per-read latency for the memory store")
	cmd.Flags().StringVar(&flags.format, "format", string(benchmark.FormatTable), "Output format: table, json or yaml")
	cmd.Flags().BoolVar(&flags.noValidate, "no-validate", false, "Skip the result equality check between executors")

	return cmd
}

func runBenchmark(cmd *cobra.Command, flags benchmarkFlags, zapLogger *zap.Logger) error {
	for _, feature := range flags.features {
		if !slices.Contains(benchmark.Features, feature) {
			return fmt.Errorf("%w: %q (want one of %s)", benchmark.ErrUnknownFeature, feature, strings.Join(benchmark.Features, ", "))
		}
	}
	format := benchmark.Format(flags.format)
	switch format {
	case benchmark.FormatTable, benchmark.FormatJSON, benchmark.FormatYAML:
	default:
		return fmt.Errorf("unknown format %q", flags.format)
	}
	if flags.todos < 1 {
		return fmt.Errorf("--todos must be at least 1")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var repos benchmark.Repositories
	switch flags.store {
	case storeMemory:
		store := memory.New(memory.WithLatency(flags.latency))
		repos = benchmark.Repositories{Users: store.Users(), Categories: store.Categories(), Tasks: store.Tasks()}
	case storePostgres:
		db, err := openDB(cfg)
		if err != nil {
			return err
		}
		defer closeDB(db)
		repos = benchmark.Repositories{
			Users:      database.NewUserRepository(db),
			Categories: database.NewCategoryRepository(db),
			Tasks:      database.NewTaskRepository(db),
		}
	default:
		return fmt.Errorf("unknown store %q", flags.store)
	}

	fx, cleanup, err := benchmark.Seed(ctx, repos, flags.todos, time.Now())
	if err != nil {
		return err
	}
	defer func() {
		if err := cleanup(context.Background()); err != nil {
			zapLogger.Warn("benchmark_cleanup_failed", zap.Error(err))
		}
	}()

	execOpts := cfg.ExecutorOptions()
	execOpts.Logger = zapLogger
	opts := benchmark.RunOptions{
		Iterations: flags.iterations,
		Validate:   !flags.noValidate,
		Executor:   execOpts,
	}

	reports := make([]*benchmark.Report, 0, len(flags.features))
	for _, feature := range flags.features {
		zapLogger.Debug("benchmark_feature_started",
			zap.String("feature", feature),
			zap.Int("iterations", flags.iterations),
			zap.String("store", flags.store),
		)
		report, err := benchmark.RunFeature(ctx, feature, fx, opts)
		if err != nil {
			return fmt.Errorf("benchmark %s: %w", feature, err)
		}
		reports = append(reports, report)
	}

	return benchmark.Render(cmd.OutOrStdout(), format, reports...)
}
