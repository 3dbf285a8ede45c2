package cache

import (
	"net/http"
	"time"
)

// CacheEntry is a stored provider response.
type CacheEntry struct {
	Data       []byte      `json:"data"`
	StatusCode int         `json:"status_code"`
	Headers    http.Header `json:"headers"`
	Expires    time.Time   `json:"expires"`
	CachedAt   time.Time   `json:"cached_at"`
}

// IsExpired reports whether the entry is stale now.
func (e *CacheEntry) IsExpired() bool {
	return e.ExpiredAt(time.Now())
}

// ExpiredAt reports whether the entry is stale at t.
func (e *CacheEntry) ExpiredAt(t time.Time) bool {
	return !t.Before(e.Expires)
}

// TTL is the remaining lifetime, never negative.
func (e *CacheEntry) TTL() time.Duration {
	return max(time.Until(e.Expires), 0)
}

// Age is how long ago the response was stored.
func (e *CacheEntry) Age(now time.Time) time.Duration {
	if e.CachedAt.IsZero() {
		return 0
	}
	return now.Sub(e.CachedAt)
}
