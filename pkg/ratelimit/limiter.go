// Package ratelimit throttles requests to the market-data provider.
//
// Two concerns live here. A Limiter paces batches of concurrent fetches
// issued by one process. A Tracker shares provider cooldowns (HTTP 429)
// between processes through Redis.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Clock abstracts time so limiters can be tested without sleeping.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// After returns time.After(d).
func (SystemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Limiter paces batches of requests.
type Limiter interface {
	// Wait blocks until a batch of n requests may start.
	Wait(ctx context.Context, n int) error
	// Done records that the current batch has settled.
	Done()
}

// Pause enforces a fixed delay between the end of one batch and the start
// of the next. The first batch starts immediately.
type Pause struct {
	interval time.Duration
	clock    Clock

	mu       sync.Mutex
	lastDone time.Time
}

// NewPause creates a Pause limiter. A nil clock means SystemClock.
func NewPause(interval time.Duration, clock Clock) *Pause {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Pause{interval: interval, clock: clock}
}

// Wait sleeps for whatever remains of the interval since the last Done.
func (p *Pause) Wait(ctx context.Context, _ int) error {
	p.mu.Lock()
	last := p.lastDone
	p.mu.Unlock()

	if last.IsZero() || p.interval <= 0 {
		return nil
	}
	return sleep(ctx, p.clock, p.interval-p.clock.Now().Sub(last))
}

// Done marks the end of a batch.
func (p *Pause) Done() {
	p.mu.Lock()
	p.lastDone = p.clock.Now()
	p.mu.Unlock()
}

// TokenBucket admits up to batchSize requests per interval, with a burst of
// one full batch.
type TokenBucket struct {
	limiter *rate.Limiter
	burst   int
	clock   Clock
}

// NewTokenBucket creates a token bucket refilling batchSize tokens every
// interval. A non-positive interval disables limiting.
func NewTokenBucket(batchSize int, interval time.Duration, clock Clock) *TokenBucket {
	if clock == nil {
		clock = SystemClock{}
	}
	if batchSize <= 0 {
		batchSize = 1
	}

	limit := rate.Inf
	if interval > 0 {
		limit = rate.Limit(float64(batchSize) / interval.Seconds())
	}

	return &TokenBucket{
		limiter: rate.NewLimiter(limit, batchSize),
		burst:   batchSize,
		clock:   clock,
	}
}

// Wait reserves n tokens (capped at the burst) and sleeps until they are
// available.
func (b *TokenBucket) Wait(ctx context.Context, n int) error {
	if n > b.burst {
		n = b.burst
	}
	if n <= 0 {
		return nil
	}

	now := b.clock.Now()
	res := b.limiter.ReserveN(now, n)
	if !res.OK() {
		return fmt.Errorf("reserve %d tokens: exceeds burst %d", n, b.burst)
	}

	if err := sleep(ctx, b.clock, res.DelayFrom(now)); err != nil {
		res.CancelAt(b.clock.Now())
		return err
	}
	return nil
}

// Done is a no-op; the bucket refills with time alone.
func (b *TokenBucket) Done() {}

func sleep(ctx context.Context, clock Clock, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-clock.After(d):
		return nil
	}
}
