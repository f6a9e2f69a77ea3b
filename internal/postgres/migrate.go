package postgres

import (
	"context"
	"embed"
	"io/fs"
	"sort"
	"strings"

	ierr "github.com/brfledger/utilitybilling/internal/errors"
)

//go:embed migrations/*.up.sql
var embeddedMigrations embed.FS

const migrationsDir = "migrations"

// Migrate applies every embedded migration not yet recorded in schema_migrations, in file name order
func (c *Client) Migrate(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`); err != nil {
		return WrapError(err, "Failed to create schema_migrations", nil)
	}

	entries, err := fs.ReadDir(embeddedMigrations, migrationsDir)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to read embedded migrations").
			Mark(ierr.ErrInternal)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".up.sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		version := strings.TrimSuffix(name, ".up.sql")

		err := c.WithTx(ctx, func(ctx context.Context) error {
			tx := c.TxFromContext(ctx)

			var applied bool
			if err := tx.QueryRowContext(ctx,
				`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)`, version,
			).Scan(&applied); err != nil {
				return WrapError(err, "Failed to check migration", map[string]any{"version": version})
			}
			if applied {
				return nil
			}

			body, err := embeddedMigrations.ReadFile(migrationsDir + "/" + name)
			if err != nil {
				return ierr.WithError(err).
					WithHintf("Failed to read migration %s", name).
					Mark(ierr.ErrInternal)
			}
			if _, err := tx.ExecContext(ctx, string(body)); err != nil {
				return WrapError(err, "Failed to apply migration", map[string]any{"version": version})
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO schema_migrations (version) VALUES ($1)`, version,
			); err != nil {
				return WrapError(err, "Failed to record migration", map[string]any{"version": version})
			}

			c.logger.Infow("applied migration", "version", version)
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}
