package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	// ErrCacheMiss indicates the requested key was not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is invalid or corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Manager handles caching operations with a memory layer and an optional
// Redis layer.
type Manager struct {
	memory    *gocache.Cache
	memoryTTL time.Duration
	redis     *redis.Client
}

// NewManager creates a cache manager. redisClient may be nil, in which case
// only the memory layer is used. memoryTTL caps how long entries stay in
// memory.
func NewManager(redisClient *redis.Client, memoryTTL time.Duration) *Manager {
	if memoryTTL <= 0 {
		memoryTTL = time.Minute
	}
	return &Manager{
		memory:    gocache.New(memoryTTL, 2*memoryTTL),
		memoryTTL: memoryTTL,
		redis:     redisClient,
	}
}

// HasRedis reports whether the Redis layer is enabled.
func (m *Manager) HasRedis() bool {
	return m.redis != nil
}

// Get retrieves a cache entry by key.
// Returns ErrCacheMiss if the key doesn't exist or entry is expired.
func (m *Manager) Get(ctx context.Context, key CacheKey) (*CacheEntry, error) {
	cacheKey := key.String()

	if v, ok := m.memory.Get(cacheKey); ok {
		if entry, ok := v.(*CacheEntry); ok && !entry.IsExpired() {
			CacheHits.WithLabelValues("memory").Inc()
			return entry, nil
		}
		m.memory.Delete(cacheKey)
	}

	if m.redis == nil {
		CacheMisses.Inc()
		return nil, ErrCacheMiss
	}

	data, err := m.redis.Get(ctx, cacheKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			CacheMisses.Inc()
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	if entry.IsExpired() {
		_ = m.Delete(ctx, key)
		CacheMisses.Inc()
		return nil, ErrCacheMiss
	}

	CacheHits.WithLabelValues("redis").Inc()
	m.setMemory(cacheKey, &entry)

	return &entry, nil
}

// Set stores a cache entry with TTL based on the entry's Expires field.
// Entries that are already expired are not stored.
func (m *Manager) Set(ctx context.Context, key CacheKey, entry *CacheEntry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}

	ttl := entry.TTL()
	if ttl <= 0 {
		return nil
	}

	cacheKey := key.String()
	m.setMemory(cacheKey, entry)

	if m.redis == nil {
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := m.redis.Set(ctx, cacheKey, data, ttl).Err(); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	CacheSize.WithLabelValues("redis").Add(float64(len(data)))

	return nil
}

// Delete removes a cache entry from both layers.
func (m *Manager) Delete(ctx context.Context, key CacheKey) error {
	cacheKey := key.String()
	m.memory.Delete(cacheKey)

	if m.redis == nil {
		return nil
	}
	if err := m.redis.Del(ctx, cacheKey).Err(); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}

	return nil
}

func (m *Manager) setMemory(cacheKey string, entry *CacheEntry) {
	ttl := entry.TTL()
	if ttl <= 0 {
		return
	}
	if ttl > m.memoryTTL {
		ttl = m.memoryTTL
	}
	m.memory.Set(cacheKey, entry, ttl)
	CacheSize.WithLabelValues("memory").Add(float64(len(entry.Data)))
}
