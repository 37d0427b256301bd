package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/clinic-reminders/backend/internal/infrastructure/clients/postgres"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate applies the bundled schema files in name order. Every statement is idempotent.
func Migrate(ctx context.Context, client *postgres.Client) error {
	names, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("failed to list migrations: %w", err)
	}
	sort.Strings(names)

	for _, name := range names {
		body, err := migrations.ReadFile(name)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", name, err)
		}
		if _, err := client.DB().ExecContext(ctx, string(body)); err != nil {
			return fmt.Errorf("failed to apply %s: %w", name, err)
		}
		log.Info().Str("migration", name).Msg("Applied migration")
	}
	return nil
}

// Truncate removes every clinic row, for reseeding
func Truncate(ctx context.Context, client *postgres.Client) error {
	_, err := client.DB().ExecContext(ctx, "TRUNCATE TABLE reminder_states, appointments, patients")
	return err
}
