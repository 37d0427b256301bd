// Command seed migrates the database and loads the demo clinic dataset.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/zatekoja/clinic-reminders/backend/internal/bootstrap"
	"github.com/zatekoja/clinic-reminders/backend/internal/infrastructure/observability"
	"github.com/zatekoja/clinic-reminders/backend/pkg/config"
)

var (
	reset   bool
	anchor  string
	timeout time.Duration
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the demo clinic dataset",
	Long: `Seed migrates the configured store and loads five demo patients with ten
appointments dated relative to today, then indexes the patients in Typesense
when it is enabled.

Examples:
  # Seed PostgreSQL
  STORE_BACKEND=postgres seed

  # Start from an empty database
  STORE_BACKEND=postgres seed --reset

  # Date the fixtures relative to a fixed day
  seed --today 2024-03-01`,
	SilenceUsage: true,
	RunE:         runSeed,
}

func init() {
	rootCmd.Flags().BoolVar(&reset, "reset", os.Getenv("RESET_DB") == "true", "truncate clinic tables before seeding (env RESET_DB)")
	rootCmd.Flags().StringVar(&anchor, "today", "", "anchor date for the fixtures (YYYY-MM-DD, default today)")
	rootCmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall timeout")
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	observability.InitLoggerWithLevel("clinic-seed", cfg.App.Env, cfg.App.LogLevel, os.Stderr)

	now := time.Now().UTC()
	if anchor != "" {
		if now, err = time.Parse(time.DateOnly, anchor); err != nil {
			return fmt.Errorf("invalid --today %q: %w", anchor, err)
		}
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	backend, err := bootstrap.Open(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer backend.Close()

	if reset {
		if err := backend.Reset(ctx); err != nil {
			return fmt.Errorf("failed to reset store: %w", err)
		}
		log.Info().Msg("Store reset")
	}

	return backend.Seed(ctx, now)
}
