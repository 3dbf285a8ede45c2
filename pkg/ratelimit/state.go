package ratelimit

import (
	"time"
)

// Redis keys for shared cooldown state.
const (
	RedisKeyCooldownUntil = "universalis:rate_limit:cooldown_until"
	RedisKeyThrottleHits  = "universalis:rate_limit:throttle_hits"
	RedisKeyLastUpdate    = "universalis:rate_limit:last_update"
)

// DefaultCooldown applies when a 429 response carries no usable Retry-After.
const DefaultCooldown = 5 * time.Second

// CooldownState is the provider throttling state shared via Redis.
type CooldownState struct {
	// CooldownUntil is when requests may resume. Zero means no cooldown.
	CooldownUntil time.Time `json:"cooldown_until"`

	// ThrottleHits counts 429 responses seen since the key was created.
	ThrottleHits int `json:"throttle_hits"`

	// LastUpdate is when a 429 was last recorded.
	LastUpdate time.Time `json:"last_update"`
}

// Active reports whether requests must wait at now.
func (s *CooldownState) Active(now time.Time) bool {
	return now.Before(s.CooldownUntil)
}

// Remaining returns how long the cooldown lasts past now, or 0.
func (s *CooldownState) Remaining(now time.Time) time.Duration {
	d := s.CooldownUntil.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// IsStale returns true if the state is older than maxAge at now.
func (s *CooldownState) IsStale(now time.Time, maxAge time.Duration) bool {
	return now.Sub(s.LastUpdate) > maxAge
}
