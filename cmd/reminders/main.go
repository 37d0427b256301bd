// Command reminders prints the reminders derived from the configured store.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/zatekoja/clinic-reminders/backend/internal/application/services"
	"github.com/zatekoja/clinic-reminders/backend/internal/bootstrap"
	"github.com/zatekoja/clinic-reminders/backend/internal/domain/entities"
	"github.com/zatekoja/clinic-reminders/backend/internal/infrastructure/observability"
	"github.com/zatekoja/clinic-reminders/backend/pkg/config"
)

var (
	view       string
	patientID  string
	windowDays int
	at         string
	status     string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "reminders",
	Short: "Derive clinic reminders",
	Long: `Reminders derives the current reminder set from the configured store and
prints it as JSON. With STORE_BACKEND=memory the demo dataset is loaded first.

Examples:
  # Everything due right now
  reminders list --view due

  # One patient's upcoming reminders over two weeks
  reminders list --patient pat-1 --view upcoming --window 14

  # Dashboard counts as of a fixed instant
  reminders stats --at 2024-03-01T12:00:00Z`,
	SilenceUsage: true,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List derived reminders",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *services.ReminderService) error {
			v, err := services.ParseReminderView(view)
			if err != nil {
				return err
			}
			reminders, err := svc.List(ctx, services.ReminderQuery{PatientID: patientID, View: v, WindowDays: windowDays})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), reminders)
		})
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print dashboard reminder counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *services.ReminderService) error {
			stats, err := svc.Stats(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), stats)
		})
	},
}

var markSentCmd = &cobra.Command{
	Use:   "mark-sent <reminder-id>",
	Short: "Record that a reminder was sent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *services.ReminderService) error {
			reminder, err := svc.MarkSent(ctx, args[0], entities.DeliveryStatus(status))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), reminder)
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&at, "at", "", "evaluate as of this RFC3339 instant (default now)")

	listCmd.Flags().StringVar(&view, "view", "all", "all, pending, sent, upcoming or due")
	listCmd.Flags().StringVar(&patientID, "patient", "", "only reminders for this patient ID")
	listCmd.Flags().IntVar(&windowDays, "window", 0, "look-ahead in days for the upcoming view (default from config)")

	markSentCmd.Flags().StringVar(&status, "status", string(entities.DeliveryDelivered), "delivered, failed or pending")

	rootCmd.AddCommand(listCmd, statsCmd, markSentCmd)
}

func withService(cmd *cobra.Command, fn func(ctx context.Context, svc *services.ReminderService) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	observability.InitLoggerWithLevel("clinic-reminders-cli", cfg.App.Env, cfg.App.LogLevel, os.Stderr)

	now := time.Now().UTC()
	if at != "" {
		if now, err = time.Parse(time.RFC3339, at); err != nil {
			return fmt.Errorf("invalid --at %q: %w", at, err)
		}
	}

	ctx := cmd.Context()
	backend, err := bootstrap.Open(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer backend.Close()

	if cfg.App.StoreBackend == config.StoreMemory {
		if err := backend.Seed(ctx, now); err != nil {
			return err
		}
	}

	svc := services.NewReminderService(backend.Patients, backend.Appointments, backend.ReminderStates, cfg.Reminders.UpcomingWindowDays)
	svc.SetClock(func() time.Time { return now })
	return fn(ctx, svc)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
