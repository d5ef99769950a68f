package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/benvon/taskboard/internal/database"
	"github.com/spf13/cobra"
	"github.com/ulule/limiter/v3"
)

// NewRatelimitCmd creates the ratelimit configuration command with list and set subcommands.
func NewRatelimitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ratelimit",
		Short: "Manage rate limit configuration",
		Long:  "List or update the API rate limit (e.g. 5-S, 100-M). Running servers pick up changes within a minute.",
	}
	cmd.AddCommand(newRatelimitListCmd())
	cmd.AddCommand(newRatelimitSetCmd())
	return cmd
}

func newRatelimitListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the current rate limit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer closeDB(db)

			rate, err := database.NewSettingsRepository(db).RateLimit(context.Background())
			if err != nil {
				return fmt.Errorf("failed to get rate limit: %w", err)
			}
			if rate == "" {
				fmt.Fprintf(cmd.OutOrStdout(), "No rate limit stored; servers use RATE_LIMIT (%s).\n", cfg.RateLimit)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rate: %s\n", rate)
			return nil
		},
	}
}

func newRatelimitSetCmd() *cobra.Command {
	var rate string
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set the rate limit",
		RunE: func(cmd *cobra.Command, args []string) error {
			rate = strings.TrimSpace(rate)
			if err := validateRate(rate); err != nil {
				return err
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer closeDB(db)

			if err := database.NewSettingsRepository(db).SetRateLimit(context.Background(), rate); err != nil {
				return fmt.Errorf("failed to set rate limit: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Rate limit updated.")
			return nil
		},
	}
	cmd.Flags().StringVar(&rate, "rate", "", "Rate (e.g. 5-S, 100-M, 1000-H) (required)")
	return cmd
}

func validateRate(rate string) error {
	if rate == "" {
		return fmt.Errorf("--rate is required (e.g. 5-S, 100-M)")
	}
	if _, err := limiter.NewRateFromFormatted(rate); err != nil {
		return fmt.Errorf("invalid rate %q: %w", rate, err)
	}
	return nil
}
