package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/clinic-reminders/backend/internal/api/handlers"
	"github.com/zatekoja/clinic-reminders/backend/internal/api/routes"
	"github.com/zatekoja/clinic-reminders/backend/internal/application/services"
	"github.com/zatekoja/clinic-reminders/backend/internal/bootstrap"
	"github.com/zatekoja/clinic-reminders/backend/internal/infrastructure/observability"
	"github.com/zatekoja/clinic-reminders/backend/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLoggerWithLevel(cfg.OTEL.ServiceName, cfg.App.Env, cfg.App.LogLevel, os.Stdout)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// OTLP push when a collector is configured, otherwise a Prometheus scrape endpoint.
	var metricsHandler http.Handler
	var shutdownTelemetry func(context.Context) error
	switch {
	case cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "":
		shutdownTelemetry, err = observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			log.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	case cfg.OTEL.MetricsEnabled:
		metricsHandler, shutdownTelemetry, err = observability.SetupPrometheus()
		if err != nil {
			log.Warn().Err(err).Msg("Failed to set up Prometheus exporter")
		} else {
			log.Info().Msg("Prometheus metrics exposed at /metrics")
		}
	}
	if shutdownTelemetry != nil {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTelemetry(ctx); err != nil {
				log.Error().Err(err).Msg("Error shutting down telemetry")
			}
		}()
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize metrics")
	}

	backend, err := bootstrap.Open(ctx, cfg, metrics)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize storage")
	}
	defer backend.Close()

	if cfg.App.SeedOnStart {
		if err := backend.Seed(ctx, time.Now().UTC()); err != nil {
			log.Fatal().Err(err).Msg("Failed to seed demo data")
		}
	}

	clinicService := services.NewClinicService(backend.Patients, backend.Appointments)
	clinicService.SetEventBus(backend.EventBus)
	if backend.Search != nil {
		clinicService.SetSearch(backend.Search)
	}

	reminderService := services.NewReminderService(
		backend.Patients,
		backend.Appointments,
		backend.ReminderStates,
		cfg.Reminders.UpcomingWindowDays,
	)
	reminderService.SetEventBus(backend.EventBus)
	reminderService.SetMetrics(metrics)

	var cacheInvalidationService *services.CacheInvalidationService
	var cacheWarmingService *services.CacheWarmingService
	if backend.Cache != nil {
		cacheWarmingService = services.NewCacheWarmingService(backend.Patients, backend.Cache, cfg.Reminders.PatientCacheTTL)
		cacheWarmingService.StartPeriodicWarming(cfg.Reminders.CacheWarmInterval)

		cacheInvalidationService = services.NewCacheInvalidationService(backend.Cache, backend.EventBus)
		if err := cacheInvalidationService.Start(); err != nil {
			log.Warn().Err(err).Msg("Failed to start cache invalidation service")
			cacheInvalidationService = nil
		}
	}

	router := routes.NewRouter(
		handlers.NewPatientHandler(clinicService),
		handlers.NewAppointmentHandler(clinicService),
		handlers.NewReminderHandler(reminderService),
		handlers.NewSSEHandler(backend.EventBus),
		metrics,
		cfg.Server,
	)
	router.SetDashboardHandler(handlers.NewDashboardHandler(
		services.NewDashboardService(backend.Patients, backend.Appointments, reminderService),
	))
	if metricsHandler != nil {
		router.SetMetricsHandler(metricsHandler)
	}

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           router.SetupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// No write timeout: /api/stream/clinic holds connections open.
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", serverAddr).Str("store", cfg.App.StoreBackend).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Server shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during server shutdown")
	}
	if cacheInvalidationService != nil {
		cacheInvalidationService.Stop()
	}
	if cacheWarmingService != nil {
		cacheWarmingService.Stop()
	}

	log.Info().Msg("Server stopped")
}
