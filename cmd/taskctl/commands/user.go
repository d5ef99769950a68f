package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/benvon/taskboard/internal/database"
	"github.com/benvon/taskboard/internal/models"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// NewUserCmd manages API users
func NewUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}
	cmd.AddCommand(newUserCreateCmd())
	return cmd
}

func newUserCreateCmd() *cobra.Command {
	var email, name string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user and print its ID",
		RunE: func(cmd *cobra.Command, args []string) error {
			email = strings.TrimSpace(email)
			if email == "" {
				return fmt.Errorf("--email is required")
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

			user := &models.User{ID: uuid.New(), Email: email}
			if name = strings.TrimSpace(name); name != "" {
				user.Name = &name
			}
			if err := database.NewUserRepository(db).Create(context.Background(), user); err != nil {
				return fmt.Errorf("failed to create user: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), user.ID.String())
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Email address (required)")
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	return cmd
}
