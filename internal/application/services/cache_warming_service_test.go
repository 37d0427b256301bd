package services_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/clinic-reminders/backend/internal/adapters/database"
	"github.com/zatekoja/clinic-reminders/backend/internal/application/services"
	"github.com/zatekoja/clinic-reminders/backend/internal/domain/entities"
	"github.com/zatekoja/clinic-reminders/backend/internal/domain/providers"
)

type mapCache struct {
	mu    sync.Mutex
	items map[string][]byte
	ttls  map[string]int
}

func newMapCache() *mapCache {
	return &mapCache{items: map[string][]byte{}, ttls: map[string]int{}}
}

func (c *mapCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[key]
	if !ok {
		return nil, providers.ErrCacheMiss
	}
	return v, nil
}

func (c *mapCache) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = value
	c.ttls[key] = expirationSeconds
	return nil
}

func (c *mapCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.items, k)
	}
	return nil
}

func TestCacheWarmingService_WarmCache(t *testing.T) {
	store := newSeededStore(t)
	cache := newMapCache()
	svc := services.NewCacheWarmingService(store.Patients(), cache, 60)

	warmed, err := svc.WarmCache(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, warmed)

	raw, err := cache.Get(context.Background(), database.PatientCacheKey("pat-4"))
	require.NoError(t, err)
	var p entities.Patient
	require.NoError(t, json.Unmarshal(raw, &p))
	assert.Equal(t, "Taylor", p.LastName)
	assert.Equal(t, 2, p.MissedAppointments)
	assert.Equal(t, 60, cache.ttls[database.PatientCacheKey("pat-4")])
}

func TestCacheWarmingService_DefaultTTLAndStop(t *testing.T) {
	cache := newMapCache()
	svc := services.NewCacheWarmingService(newSeededStore(t).Patients(), cache, 0)

	svc.StartPeriodicWarming(0)
	svc.Stop()

	assert.Len(t, cache.items, 5)
	assert.Equal(t, database.DefaultPatientCacheTTL, cache.ttls[database.PatientCacheKey("pat-1")])
}
