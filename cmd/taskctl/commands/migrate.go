package commands

import (
	"context"
	"fmt"

	"github.com/benvon/taskboard/internal/database"
	"github.com/spf13/cobra"
)

// NewMigrateCmd runs the embedded schema migrations
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	for _, c := range []struct {
		command database.MigrationCommand
		short   string
	}{
		{database.MigrateUp, "Apply all pending migrations"},
		{database.MigrateDown, "Roll back the latest migration"},
		{database.MigrateStatus, "Print the current schema version"},
	} {
		command := c.command
		cmd.AddCommand(&cobra.Command{
			Use:   string(command),
			Short: c.short,
			Args:  cobra.NoArgs,
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

				if err := database.Migrate(context.Background(), db, command, cmd.OutOrStdout()); err != nil {
					return err
				}
				if command != database.MigrateStatus {
					fmt.Fprintf(cmd.OutOrStdout(), "migrate %s complete\n", command)
				}
				return nil
			},
		})
	}

	return cmd
}
