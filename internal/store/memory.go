package store

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryCache is a process-local TTL cache.
type MemoryCache struct {
	cache *cache.Cache
}

func NewMemoryCache(defaultTTL time.Duration) *MemoryCache {
	// purge expired items every 10 minutes
	return &MemoryCache{cache: cache.New(defaultTTL, 10*time.Minute)}
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	if x, found := m.cache.Get(key); found {
		b, _ := x.([]byte)
		return append([]byte(nil), b...), true, nil
	}
	return nil, false, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = cache.DefaultExpiration
	}
	m.cache.Set(key, append([]byte(nil), value...), ttl)
	return nil
}
