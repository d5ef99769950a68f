package commands

import (
	"context"
	"fmt"

	"github.com/benvon/taskboard/internal/cache"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// NewCacheCmd manages cached dashboards
func NewCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage cached dashboards",
	}
	cmd.AddCommand(newCacheClearCmd())
	return cmd
}

func newCacheClearCmd() *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Evict a user's cached dashboard entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(userID)
			if err != nil {
				return fmt.Errorf("--user must be a UUID: %w", err)
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := context.Background()
			client, err := cache.Connect(ctx, cfg.RedisURL)
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			return clearOwner(ctx, cmd, cache.NewRedis(client, cache.DefaultPrefix), id)
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "User ID (required)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func clearOwner(ctx context.Context, cmd *cobra.Command, store cache.Store, ownerID uuid.UUID) error {
	keys := cache.OwnerKeys(ownerID)
	if err := store.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d cache keys for %s\n", len(keys), ownerID)
	return nil
}
