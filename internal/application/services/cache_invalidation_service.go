package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/clinic-reminders/backend/internal/adapters/database"
	"github.com/zatekoja/clinic-reminders/backend/internal/domain/entities"
	"github.com/zatekoja/clinic-reminders/backend/internal/domain/providers"
)

// CacheInvalidationService evicts cached patients when clinic events arrive.
// Writes through CachedPatientAdapter already invalidate locally; this covers
// writes made by other instances sharing the cache and event bus.
type CacheInvalidationService struct {
	cache    providers.CacheProvider
	eventBus providers.EventBus
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewCacheInvalidationService creates a new cache invalidation service
func NewCacheInvalidationService(cache providers.CacheProvider, eventBus providers.EventBus) *CacheInvalidationService {
	ctx, cancel := context.WithCancel(context.Background())
	return &CacheInvalidationService{
		cache:    cache,
		eventBus: eventBus,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins listening for events and invalidating cache
func (s *CacheInvalidationService) Start() error {
	eventChan, err := s.eventBus.Subscribe(s.ctx, providers.EventChannelClinicUpdates)
	if err != nil {
		return fmt.Errorf("failed to subscribe to clinic updates: %w", err)
	}

	s.wg.Add(1)
	go s.processEvents(eventChan)
	log.Info().Msg("Cache invalidation service started")
	return nil
}

// Stop stops the service and waits for the event loop to exit
func (s *CacheInvalidationService) Stop() {
	s.cancel()
	s.wg.Wait()
	log.Info().Msg("Cache invalidation service stopped")
}

func (s *CacheInvalidationService) processEvents(eventChan <-chan *entities.ClinicEvent) {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			if event != nil {
				s.handleEvent(event)
			}
		}
	}
}

func (s *CacheInvalidationService) handleEvent(event *entities.ClinicEvent) {
	keys := invalidationKeys(event)
	if len(keys) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.cache.Delete(ctx, keys...); err != nil {
		log.Warn().Err(err).Str("event_id", event.ID).Strs("keys", keys).Msg("Failed to invalidate patient cache")
		return
	}
	log.Debug().Str("event_type", string(event.EventType)).Strs("keys", keys).Msg("Invalidated patient cache")
}

// invalidationKeys returns the cache keys made stale by event. Appointment
// no-shows and sent emergency reminders change the patient row too.
func invalidationKeys(event *entities.ClinicEvent) []string {
	switch event.EventType {
	case entities.ClinicEventPatientCreated, entities.ClinicEventPatientUpdated, entities.ClinicEventPatientDeleted:
		return []string{database.PatientCacheKey(event.EntityID)}
	}
	if event.PatientID == "" {
		return nil
	}
	return []string{database.PatientCacheKey(event.PatientID)}
}
