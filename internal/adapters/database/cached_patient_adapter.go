package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/clinic-reminders/backend/internal/domain/entities"
	"github.com/zatekoja/clinic-reminders/backend/internal/domain/providers"
	"github.com/zatekoja/clinic-reminders/backend/internal/domain/repositories"
	"github.com/zatekoja/clinic-reminders/backend/internal/infrastructure/observability"
)

// DefaultPatientCacheTTL is used when no TTL is configured (seconds)
const DefaultPatientCacheTTL = 300

// PatientCacheKey returns the cache key of a single patient
func PatientCacheKey(id string) string {
	return fmt.Sprintf("patient:%s", id)
}

// CachedPatientAdapter wraps a PatientRepository with read-through caching of GetByID.
// Every write through the adapter drops the cached entry.
type CachedPatientAdapter struct {
	adapter repositories.PatientRepository
	cache   providers.CacheProvider
	metrics *observability.Metrics
	ttl     int
}

// NewCachedPatientAdapter creates a new cached patient adapter
func NewCachedPatientAdapter(adapter repositories.PatientRepository, cache providers.CacheProvider, ttlSeconds int, metrics *observability.Metrics) *CachedPatientAdapter {
	if ttlSeconds <= 0 {
		ttlSeconds = DefaultPatientCacheTTL
	}
	return &CachedPatientAdapter{
		adapter: adapter,
		cache:   cache,
		metrics: metrics,
		ttl:     ttlSeconds,
	}
}

var _ repositories.PatientRepository = (*CachedPatientAdapter)(nil)

// GetByID retrieves a patient by ID with caching
func (a *CachedPatientAdapter) GetByID(ctx context.Context, id string) (*entities.Patient, error) {
	cacheKey := PatientCacheKey(id)

	cached, err := a.cache.Get(ctx, cacheKey)
	switch {
	case err == nil:
		var patient entities.Patient
		if err := json.Unmarshal(cached, &patient); err == nil {
			observability.RecordCacheHit(ctx, a.metrics, "patient")
			return &patient, nil
		}
		log.Warn().Err(err).Str("patient_id", id).Msg("Failed to unmarshal cached patient")
	case !errors.Is(err, providers.ErrCacheMiss):
		log.Warn().Err(err).Str("patient_id", id).Msg("Patient cache read failed")
	}
	observability.RecordCacheMiss(ctx, a.metrics, "patient")

	patient, err := a.adapter.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(patient); err == nil {
		if err := a.cache.Set(ctx, cacheKey, data, a.ttl); err != nil {
			log.Warn().Err(err).Str("patient_id", id).Msg("Failed to cache patient")
		}
	}
	return patient, nil
}

// Create creates a patient; nothing is cached until the first read
func (a *CachedPatientAdapter) Create(ctx context.Context, patient *entities.Patient) error {
	return a.adapter.Create(ctx, patient)
}

// Update updates a patient and drops its cache entry
func (a *CachedPatientAdapter) Update(ctx context.Context, patient *entities.Patient) error {
	if err := a.adapter.Update(ctx, patient); err != nil {
		return err
	}
	a.invalidate(ctx, patient.ID)
	return nil
}

// Delete deletes a patient and drops its cache entry
func (a *CachedPatientAdapter) Delete(ctx context.Context, id string) error {
	if err := a.adapter.Delete(ctx, id); err != nil {
		return err
	}
	a.invalidate(ctx, id)
	return nil
}

// List is not cached; derivation needs the current patient set
func (a *CachedPatientAdapter) List(ctx context.Context, filter repositories.PatientFilter) ([]entities.Patient, error) {
	return a.adapter.List(ctx, filter)
}

// IncrementMissedAppointments bumps the counter and drops the cache entry
func (a *CachedPatientAdapter) IncrementMissedAppointments(ctx context.Context, id string) error {
	if err := a.adapter.IncrementMissedAppointments(ctx, id); err != nil {
		return err
	}
	a.invalidate(ctx, id)
	return nil
}

// SetEmergencyContactNotified records the call and drops the cache entry
func (a *CachedPatientAdapter) SetEmergencyContactNotified(ctx context.Context, id string, at time.Time) error {
	if err := a.adapter.SetEmergencyContactNotified(ctx, id, at); err != nil {
		return err
	}
	a.invalidate(ctx, id)
	return nil
}

func (a *CachedPatientAdapter) invalidate(ctx context.Context, id string) {
	if err := a.cache.Delete(ctx, PatientCacheKey(id)); err != nil {
		log.Warn().Err(err).Str("patient_id", id).Msg("Failed to invalidate patient cache")
	}
}
