package common

import (
	"encoding/json"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/GrantWise/factory-board-sub001/internal/logging"
)

// CacheService is the in-memory cache, used when no Redis is configured and in tests
type CacheService struct {
	cache *cache.Cache
}

// Ensure CacheService implements CacheInterface
var _ CacheInterface = (*CacheService)(nil)

func NewCacheService(defaultExpirationSeconds, cleanUpIntervalSeconds int) *CacheService {
	defaultExpiration := time.Duration(defaultExpirationSeconds) * time.Second
	cleanUpInterval := time.Duration(cleanUpIntervalSeconds) * time.Second
	c := cache.New(defaultExpiration, cleanUpInterval)
	return &CacheService{cache: c}
}

func (cs *CacheService) Set(key string, value interface{}, duration time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		logging.Warn("Memory cache: failed to marshal value", "key", key, "error", err.Error())
		return
	}
	cs.cache.Set(key, data, duration)
}

func (cs *CacheService) Get(key string, dst interface{}) bool {
	val, found := cs.cache.Get(key)
	if !found {
		return false
	}
	data, ok := val.([]byte)
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		logging.Warn("Memory cache: failed to unmarshal value", "key", key, "error", err.Error())
		return false
	}
	return true
}

func (cs *CacheService) Delete(key string) {
	cs.cache.Delete(key)
}

// ItemCount is the number of live entries, expired ones included until the janitor runs
func (cs *CacheService) ItemCount() int {
	return cs.cache.ItemCount()
}

// Close closes the cache (no-op for in-memory cache)
func (cs *CacheService) Close() error {
	return nil
}
