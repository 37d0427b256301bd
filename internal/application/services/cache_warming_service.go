package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/clinic-reminders/backend/internal/adapters/database"
	"github.com/zatekoja/clinic-reminders/backend/internal/domain/providers"
	"github.com/zatekoja/clinic-reminders/backend/internal/domain/repositories"
)

const warmPageSize = 100

// CacheWarmingService preloads patient records into the cache so reminder
// derivation for a single patient starts from a warm read path.
type CacheWarmingService struct {
	patients repositories.PatientRepository
	cache    providers.CacheProvider
	ttl      int

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewCacheWarmingService creates a new cache warming service
func NewCacheWarmingService(patients repositories.PatientRepository, cache providers.CacheProvider, ttlSeconds int) *CacheWarmingService {
	if ttlSeconds <= 0 {
		ttlSeconds = database.DefaultPatientCacheTTL
	}
	return &CacheWarmingService{
		patients: patients,
		cache:    cache,
		ttl:      ttlSeconds,
	}
}

// WarmCache writes every patient under its cache key and returns how many were cached
func (s *CacheWarmingService) WarmCache(ctx context.Context) (int, error) {
	warmed := 0
	for offset := 0; ; offset += warmPageSize {
		page, err := s.patients.List(ctx, repositories.PatientFilter{Limit: warmPageSize, Offset: offset})
		if err != nil {
			return warmed, fmt.Errorf("failed to list patients: %w", err)
		}

		for i := range page {
			data, err := json.Marshal(&page[i])
			if err != nil {
				log.Warn().Err(err).Str("patient_id", page[i].ID).Msg("Failed to marshal patient")
				continue
			}
			if err := s.cache.Set(ctx, database.PatientCacheKey(page[i].ID), data, s.ttl); err != nil {
				return warmed, fmt.Errorf("failed to cache patient %s: %w", page[i].ID, err)
			}
			warmed++
		}

		if len(page) < warmPageSize {
			break
		}
	}

	log.Debug().Int("patients", warmed).Msg("Patient cache warmed")
	return warmed, nil
}

// StartPeriodicWarming warms once and then again every interval until Stop
func (s *CacheWarmingService) StartPeriodicWarming(interval time.Duration) {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	if _, err := s.WarmCache(ctx); err != nil {
		log.Warn().Err(err).Msg("Initial cache warming failed")
	}
	if interval <= 0 {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.WarmCache(ctx); err != nil {
					log.Warn().Err(err).Msg("Periodic cache warming failed")
				}
			}
		}
	}()
	log.Info().Dur("interval", interval).Msg("Started periodic cache warming")
}

// Stop halts periodic warming
func (s *CacheWarmingService) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}
