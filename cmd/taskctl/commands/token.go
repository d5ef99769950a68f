package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/benvon/taskboard/internal/auth"
	"github.com/benvon/taskboard/internal/database"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// NewTokenCmd mints API bearer tokens
func NewTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage API tokens",
	}
	cmd.AddCommand(newTokenIssueCmd())
	return cmd
}

func newTokenIssueCmd() *cobra.Command {
	var userID string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue a signed token for an existing user",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(userID)
			if err != nil {
				return fmt.Errorf("--user must be a UUID: %w", err)
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			tokens, err := auth.NewTokens(cfg.JWTSecret, cfg.JWTIssuer)
			if err != nil {
				return err
			}
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer closeDB(db)

			user, err := database.NewUserRepository(db).GetByID(context.Background(), id)
			if err != nil {
				return fmt.Errorf("failed to load user: %w", err)
			}
			token, err := tokens.Issue(user, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "User ID (required)")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
