package database

import (
	"context"
	"embed"
	"fmt"
	"io"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsDir = "migrations"

// MigrationCommand is a goose command supported by Migrate
type MigrationCommand string

const (
	MigrateUp     MigrationCommand = "up"
	MigrateDown   MigrationCommand = "down"
	MigrateStatus MigrationCommand = "status"
)

// Migrate runs the embedded schema migrations against db
func Migrate(ctx context.Context, db *DB, command MigrationCommand, out io.Writer) error {
	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}

	var err error
	switch command {
	case MigrateUp:
		err = goose.UpContext(ctx, db.DB, migrationsDir)
	case MigrateDown:
		err = goose.DownContext(ctx, db.DB, migrationsDir)
	case MigrateStatus:
		var version int64
		version, err = goose.GetDBVersionContext(ctx, db.DB)
		if err == nil {
			_, err = fmt.Fprintf(out, "schema version: %d\n", version)
		}
	default:
		return fmt.Errorf("unknown migration command %q", command)
	}
	if err != nil {
		return fmt.Errorf("failed to run migration %s: %w", command, classify(err))
	}

	return nil
}

// MigrationFiles lists the embedded migration file names in order
func MigrationFiles() ([]string, error) {
	entries, err := migrationsFS.ReadDir(migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names, nil
}
