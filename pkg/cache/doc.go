// Package cache stores raw market-data provider responses.
//
// The manager has two layers: an in-process memory layer that is always
// present and an optional Redis layer shared between processes. Reads try
// memory first, then Redis; a Redis hit is copied back into memory.
//
// # Basic Usage
//
//	manager := cache.NewManager(redisClient, time.Minute) // redisClient may be nil
//
//	key := cache.CacheKey{
//		Endpoint:    "/api/v2/Chaos/5057",
//		QueryParams: url.Values{"listings": []string{"20"}},
//	}
//
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch from the provider, then
//		entry, _ = cache.ResponseToEntry(resp, time.Minute)
//		_ = manager.Set(ctx, key, entry)
//	}
//
// # Metrics
//
//   - marketlist_cache_hits_total{layer} - Cache hits by layer (memory, redis)
//   - marketlist_cache_misses_total - Cache misses
//   - marketlist_cache_size_bytes{layer} - Bytes written per layer
//   - marketlist_cache_errors_total{operation} - Cache operation errors
//
// Price data goes stale quickly, so TTLs are short and only raw responses
// are cached; reports themselves are never stored.
package cache
