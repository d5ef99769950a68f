// Package commands implements the taskctl subcommands.
package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/benvon/taskboard/internal/config"
	"github.com/benvon/taskboard/internal/database"
	"github.com/benvon/taskboard/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewRootCmd builds the taskctl command tree
func NewRootCmd() *cobra.Command {
	var debug bool

	rootCmd := &cobra.Command{
		Use:           "taskctl",
		Short:         "Operator tool for the taskboard API",
		Long:          "Benchmark the dashboard executors, run migrations, mint tokens and manage cache and rate limit settings.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	logFn := func() *zap.Logger {
		zapLogger, err := logger.NewCLILogger(debug)
		if err != nil {
			return zap.NewNop()
		}
		return zapLogger
	}

	rootCmd.AddCommand(NewBenchmarkCmd(logFn))
	rootCmd.AddCommand(NewMigrateCmd())
	rootCmd.AddCommand(NewUserCmd())
	rootCmd.AddCommand(NewTokenCmd())
	rootCmd.AddCommand(NewCacheCmd())
	rootCmd.AddCommand(NewRatelimitCmd())

	return rootCmd
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadCLI()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// openDB connects to DATABASE_URL; callers close the returned DB
func openDB(cfg *config.Config) (*database.DB, error) {
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required for this command")
	}
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func closeDB(db *database.DB) {
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
	}
}
