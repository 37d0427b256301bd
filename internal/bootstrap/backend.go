// Package bootstrap assembles the storage, cache, search and event bus
// adapters selected by configuration. Binaries share it so the API server,
// the seeder and the reminders CLI see the same data.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/clinic-reminders/backend/internal/adapters/cache"
	"github.com/zatekoja/clinic-reminders/backend/internal/adapters/database"
	"github.com/zatekoja/clinic-reminders/backend/internal/adapters/events"
	"github.com/zatekoja/clinic-reminders/backend/internal/adapters/memory"
	"github.com/zatekoja/clinic-reminders/backend/internal/adapters/search"
	"github.com/zatekoja/clinic-reminders/backend/internal/domain/entities"
	"github.com/zatekoja/clinic-reminders/backend/internal/domain/providers"
	"github.com/zatekoja/clinic-reminders/backend/internal/domain/repositories"
	"github.com/zatekoja/clinic-reminders/backend/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/clinic-reminders/backend/internal/infrastructure/clients/redis"
	"github.com/zatekoja/clinic-reminders/backend/internal/infrastructure/clients/typesense"
	"github.com/zatekoja/clinic-reminders/backend/internal/infrastructure/observability"
	"github.com/zatekoja/clinic-reminders/backend/pkg/config"
	apperrors "github.com/zatekoja/clinic-reminders/backend/pkg/errors"
)

const cacheKeyPrefix = "clinic:"

// Backend holds the repositories and optional infrastructure a process runs on.
// Search and Cache are nil when not configured; EventBus is never nil.
type Backend struct {
	Patients       repositories.PatientRepository
	Appointments   repositories.AppointmentRepository
	ReminderStates repositories.ReminderStateRepository
	Search         repositories.PatientSearchRepository
	Cache          providers.CacheProvider
	EventBus       providers.EventBus

	pg      *postgres.Client
	memory  *memory.Store
	closers []func() error
}

// Open connects the configured backends. Redis and Typesense are optional:
// a failure to reach them is logged and the process continues without them.
func Open(ctx context.Context, cfg *config.Config, metrics *observability.Metrics) (*Backend, error) {
	b := &Backend{}

	switch cfg.App.StoreBackend {
	case config.StorePostgres:
		pg, err := postgres.NewClient(ctx, &cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PostgreSQL client: %w", err)
		}
		if err := database.Migrate(ctx, pg); err != nil {
			pg.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		b.pg = pg
		b.closers = append(b.closers, pg.Close)
		b.Patients = database.NewPatientAdapter(pg)
		b.Appointments = database.NewAppointmentAdapter(pg)
		b.ReminderStates = database.NewReminderStateAdapter(pg)
		log.Info().Str("database", cfg.Database.Database).Msg("PostgreSQL store initialized")
	default:
		b.memory = memory.NewStore()
		b.Patients = b.memory.Patients()
		b.Appointments = b.memory.Appointments()
		b.ReminderStates = b.memory.ReminderStates()
		log.Info().Msg("In-memory store initialized")
	}

	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(ctx, &cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable; running without cache and with an in-process event bus")
		} else {
			b.closers = append(b.closers, redisClient.Close)
			b.Cache = cache.NewRedisAdapter(redisClient, cacheKeyPrefix)
			b.EventBus = events.NewRedisEventBus(redisClient)
			b.Patients = database.NewCachedPatientAdapter(b.Patients, b.Cache, cfg.Reminders.PatientCacheTTL, metrics)
			log.Info().Str("addr", cfg.Redis.RedisAddr()).Msg("Redis cache and event bus initialized")
		}
	}
	if b.EventBus == nil {
		b.EventBus = memory.NewEventBus()
	}
	// Closed before the clients it depends on.
	b.closers = append([]func() error{b.EventBus.Close}, b.closers...)

	if cfg.Typesense.Enabled {
		tsClient, err := typesense.NewClient(ctx, &cfg.Typesense)
		if err != nil {
			log.Warn().Err(err).Msg("Typesense unavailable; patient search scans the store")
		} else {
			adapter := search.NewTypesensePatientAdapter(tsClient)
			if err := adapter.InitSchema(ctx); err != nil {
				log.Warn().Err(err).Msg("Failed to init Typesense schema")
			}
			b.Search = adapter
			log.Info().Str("url", cfg.Typesense.URL).Msg("Typesense patient search initialized")
		}
	}

	return b, nil
}

// Seed loads the demo dataset, dated relative to now. Records that already
// exist are left untouched.
func (b *Backend) Seed(ctx context.Context, now time.Time) error {
	patients, appointments := memory.SeedFixtures(now)

	if b.memory != nil {
		if err := b.memory.Load(patients, appointments); err != nil {
			return fmt.Errorf("failed to load fixtures: %w", err)
		}
	} else {
		for i := range patients {
			if err := b.Patients.Create(ctx, &patients[i]); err != nil && apperrors.TypeOf(err) != apperrors.ErrorTypeConflict {
				return fmt.Errorf("failed to seed patient %s: %w", patients[i].ID, err)
			}
		}
		for i := range appointments {
			if err := b.Appointments.Create(ctx, &appointments[i]); err != nil && apperrors.TypeOf(err) != apperrors.ErrorTypeConflict {
				return fmt.Errorf("failed to seed appointment %s: %w", appointments[i].ID, err)
			}
		}
	}

	indexed := b.Reindex(ctx, patients)
	log.Info().Int("patients", len(patients)).Int("appointments", len(appointments)).Int("indexed", indexed).Msg("Seeded demo clinic data")
	return nil
}

// Reindex pushes patients into the search index and returns how many were indexed
func (b *Backend) Reindex(ctx context.Context, patients []entities.Patient) int {
	if b.Search == nil {
		return 0
	}
	indexed := 0
	for i := range patients {
		if err := b.Search.Index(ctx, &patients[i]); err != nil {
			log.Warn().Err(err).Str("patient_id", patients[i].ID).Msg("Failed to index patient")
			continue
		}
		indexed++
	}
	return indexed
}

// Reset empties the store
func (b *Backend) Reset(ctx context.Context) error {
	if b.memory != nil {
		b.memory.Reset()
		return nil
	}
	return database.Truncate(ctx, b.pg)
}

// Close releases every connection in reverse order of acquisition
func (b *Backend) Close() error {
	var errs []error
	for _, closeFn := range b.closers {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
