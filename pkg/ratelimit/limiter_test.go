package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeClock advances instantly when slept on and records every sleep.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	c.sleeps = append(c.sleeps, d)
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

// blockingClock never fires.
type blockingClock struct{ now time.Time }

func (c *blockingClock) Now() time.Time                       { return c.now }
func (c *blockingClock) After(time.Duration) <-chan time.Time { return make(chan time.Time) }

func TestPause_FirstBatchStartsImmediately(t *testing.T) {
	clock := newFakeClock()
	p := NewPause(500*time.Millisecond, clock)

	if err := p.Wait(context.Background(), 8); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if sleeps := clock.Sleeps(); len(sleeps) != 0 {
		t.Errorf("Expected no sleep before first batch, got %v", sleeps)
	}
}

func TestPause_WaitsFullIntervalAfterDone(t *testing.T) {
	clock := newFakeClock()
	p := NewPause(500*time.Millisecond, clock)
	ctx := context.Background()

	for batch := 0; batch < 3; batch++ {
		if err := p.Wait(ctx, 8); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
		clock.Advance(2 * time.Second) // fetches take a while
		p.Done()
	}

	sleeps := clock.Sleeps()
	if len(sleeps) != 2 {
		t.Fatalf("Expected 2 pauses for 3 batches, got %d (%v)", len(sleeps), sleeps)
	}
	for i, d := range sleeps {
		if d != 500*time.Millisecond {
			t.Errorf("Pause %d = %v, want 500ms", i, d)
		}
	}
}

func TestPause_ElapsedTimeCountsTowardInterval(t *testing.T) {
	clock := newFakeClock()
	p := NewPause(500*time.Millisecond, clock)

	p.Done()
	clock.Advance(200 * time.Millisecond)

	if err := p.Wait(context.Background(), 1); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	sleeps := clock.Sleeps()
	if len(sleeps) != 1 || sleeps[0] != 300*time.Millisecond {
		t.Errorf("Sleeps = %v, want [300ms]", sleeps)
	}
}

func TestPause_ZeroInterval(t *testing.T) {
	clock := newFakeClock()
	p := NewPause(0, clock)

	p.Done()
	if err := p.Wait(context.Background(), 1); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if len(clock.Sleeps()) != 0 {
		t.Error("Zero interval should never sleep")
	}
}

func TestPause_ContextCancelled(t *testing.T) {
	clock := &blockingClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	p := NewPause(time.Second, clock)
	p.Done()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Wait(ctx, 1)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Wait() error = %v, want context.Canceled", err)
	}
}

func TestTokenBucket_BurstThenRefill(t *testing.T) {
	clock := newFakeClock()
	b := NewTokenBucket(8, 500*time.Millisecond, clock)
	ctx := context.Background()

	// A full batch fits the initial burst.
	if err := b.Wait(ctx, 8); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if len(clock.Sleeps()) != 0 {
		t.Fatalf("First batch should not wait, slept %v", clock.Sleeps())
	}

	// The next full batch must wait for a complete refill.
	if err := b.Wait(ctx, 8); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	sleeps := clock.Sleeps()
	if len(sleeps) != 1 {
		t.Fatalf("Expected one sleep, got %v", sleeps)
	}
	if diff := sleeps[0] - 500*time.Millisecond; diff < -time.Millisecond || diff > time.Millisecond {
		t.Errorf("Sleep = %v, want ~500ms", sleeps[0])
	}
}

func TestTokenBucket_PartialBatchWaitsLess(t *testing.T) {
	clock := newFakeClock()
	b := NewTokenBucket(8, 800*time.Millisecond, clock)
	ctx := context.Background()

	if err := b.Wait(ctx, 8); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if err := b.Wait(ctx, 2); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	sleeps := clock.Sleeps()
	if len(sleeps) != 1 {
		t.Fatalf("Expected one sleep, got %v", sleeps)
	}
	if diff := sleeps[0] - 200*time.Millisecond; diff < -time.Millisecond || diff > time.Millisecond {
		t.Errorf("Sleep = %v, want ~200ms", sleeps[0])
	}
}

func TestTokenBucket_OversizedBatchIsCapped(t *testing.T) {
	clock := newFakeClock()
	b := NewTokenBucket(4, time.Second, clock)

	if err := b.Wait(context.Background(), 100); err != nil {
		t.Errorf("Wait() with n > burst error = %v", err)
	}
}

func TestTokenBucket_NoInterval(t *testing.T) {
	clock := newFakeClock()
	b := NewTokenBucket(8, 0, clock)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := b.Wait(ctx, 8); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
	}
	if len(clock.Sleeps()) != 0 {
		t.Errorf("Unlimited bucket slept %v", clock.Sleeps())
	}
}

func TestTokenBucket_ContextCancelled(t *testing.T) {
	clock := &blockingClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	b := NewTokenBucket(2, time.Second, clock)

	if err := b.Wait(context.Background(), 2); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := b.Wait(ctx, 2); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait() error = %v, want context.Canceled", err)
	}
}
