package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	providerCooldownsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketlist_provider_cooldowns_total",
		Help: "Total number of provider cooldowns started by HTTP 429 responses",
	})

	providerBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketlist_provider_blocks_total",
		Help: "Total number of requests refused during a provider cooldown",
	})
)

// Tracker records provider cooldowns in Redis and gates requests on them.
type Tracker struct {
	redis  *redis.Client
	logger zerolog.Logger
	clock  Clock
}

// NewTracker creates a new cooldown tracker.
func NewTracker(redisClient *redis.Client, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:  redisClient,
		logger: logger,
		clock:  SystemClock{},
	}
}

// GetState retrieves the current cooldown state. Missing keys yield a zero
// state, meaning requests are allowed.
func (t *Tracker) GetState(ctx context.Context) (*CooldownState, error) {
	state := &CooldownState{}

	untilMillis, err := t.redis.Get(ctx, RedisKeyCooldownUntil).Int64()
	switch {
	case errors.Is(err, redis.Nil):
	case err != nil:
		return nil, fmt.Errorf("get cooldown: %w", err)
	default:
		state.CooldownUntil = time.UnixMilli(untilMillis)
	}

	hits, err := t.redis.Get(ctx, RedisKeyThrottleHits).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get throttle hits: %w", err)
	}
	state.ThrottleHits = hits

	lastUpdate, err := t.redis.Get(ctx, RedisKeyLastUpdate).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
	case err != nil:
		return nil, fmt.Errorf("get last update: %w", err)
	default:
		if err := json.Unmarshal(lastUpdate, &state.LastUpdate); err != nil {
			return nil, fmt.Errorf("parse last update: %w", err)
		}
	}

	return state, nil
}

// UpdateFromResponse starts a cooldown when statusCode is 429. Other
// status codes are ignored.
func (t *Tracker) UpdateFromResponse(ctx context.Context, statusCode int, headers http.Header) error {
	if statusCode != http.StatusTooManyRequests {
		return nil
	}

	now := t.clock.Now()
	cooldown := ParseRetryAfter(headers.Get("Retry-After"), now)
	until := now.Add(cooldown)

	lastUpdateJSON, err := json.Marshal(now)
	if err != nil {
		return fmt.Errorf("marshal last update: %w", err)
	}

	pipe := t.redis.Pipeline()
	pipe.Set(ctx, RedisKeyCooldownUntil, until.UnixMilli(), cooldown)
	pipe.Incr(ctx, RedisKeyThrottleHits)
	pipe.Set(ctx, RedisKeyLastUpdate, lastUpdateJSON, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store cooldown in redis: %w", err)
	}

	providerCooldownsTotal.Inc()
	t.logger.Warn().
		Dur("cooldown", cooldown).
		Time("cooldown_until", until).
		Msg("Provider returned 429 - cooling down")

	return nil
}

// ShouldAllowRequest returns false while a cooldown is active.
func (t *Tracker) ShouldAllowRequest(ctx context.Context) (bool, error) {
	state, err := t.GetState(ctx)
	if err != nil {
		return false, fmt.Errorf("get cooldown state: %w", err)
	}

	now := t.clock.Now()
	if state.Active(now) {
		t.logger.Debug().
			Dur("remaining", state.Remaining(now)).
			Msg("Provider cooldown active - blocking request")
		providerBlocksTotal.Inc()
		return false, nil
	}

	return true, nil
}

// ParseRetryAfter converts a Retry-After header (delta seconds or HTTP date)
// to a duration. Missing, invalid or non-positive values yield DefaultCooldown.
func ParseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return DefaultCooldown
	}

	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds <= 0 {
			return DefaultCooldown
		}
		return time.Duration(seconds) * time.Second
	}

	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}

	return DefaultCooldown
}
