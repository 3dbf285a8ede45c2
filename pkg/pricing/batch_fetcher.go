package pricing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Sternrassler/market-list/pkg/catalog"
	"github.com/Sternrassler/market-list/pkg/client"
	"github.com/Sternrassler/market-list/pkg/logging"
	"github.com/Sternrassler/market-list/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// Fetch outcomes used as metric labels.
const (
	outcomeOK     = "ok"
	outcomeNoData = "no_data"
	outcomeError  = "error"
)

var (
	fetchBatchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketlist_fetch_batches_total",
		Help: "Total number of price lookup batches executed",
	})

	fetchResultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketlist_fetch_results_total",
		Help: "Total number of per-item price lookups by outcome",
	}, []string{"outcome"})

	fetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "marketlist_fetch_duration_seconds",
		Help:    "Per-item price lookup duration in seconds",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15},
	})
)

// Config holds batch fetcher configuration.
type Config struct {
	// BatchSize is the number of concurrent lookups per batch.
	BatchSize int
	// Interval is the pause between batches.
	Interval time.Duration
	// Timeout per item lookup.
	Timeout time.Duration
}

// DefaultConfig returns the default batching: 8 items per batch, 500ms
// between batches.
func DefaultConfig() Config {
	return Config{
		BatchSize: 8,
		Interval:  500 * time.Millisecond,
		Timeout:   15 * time.Second,
	}
}

// Source is the market-data provider a BatchFetcher queries.
type Source interface {
	LowestPrice(ctx context.Context, itemID uint32, scope string) (*client.Quote, error)
}

// PriceResult is the cheapest listing found for one requested item.
type PriceResult struct {
	ItemID      catalog.ItemID
	ItemName    string
	Market      string
	LowestPrice decimal.Decimal
	Quantity    int
}

// BatchFetcher fetches prices for many items in paced batches.
type BatchFetcher struct {
	source  Source
	config  Config
	limiter ratelimit.Limiter
	logger  zerolog.Logger
}

// NewBatchFetcher creates a new batch fetcher. A nil limiter pauses
// config.Interval between batches.
func NewBatchFetcher(source Source, config Config, limiter ratelimit.Limiter) *BatchFetcher {
	defaults := DefaultConfig()
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if config.Interval < 0 {
		config.Interval = 0
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if limiter == nil {
		limiter = ratelimit.NewPause(config.Interval, ratelimit.SystemClock{})
	}

	return &BatchFetcher{
		source:  source,
		config:  config,
		limiter: limiter,
		logger:  logging.NewLogger("pricing"),
	}
}

// Config returns the effective configuration.
func (bf *BatchFetcher) Config() Config {
	return bf.config
}

// BatchCount returns how many batches of size it takes to cover n items.
func BatchCount(n, size int) int {
	if n <= 0 {
		return 0
	}
	if size <= 0 {
		size = 1
	}
	return (n + size - 1) / size
}

// FetchAll looks up the lowest price of every item within scope. Results
// are in completion order; items whose lookup failed are omitted. A
// non-nil error means ctx ended; the results gathered so far are returned
// with it.
func (bf *BatchFetcher) FetchAll(ctx context.Context, items []catalog.ResolvedItem, scope string) ([]PriceResult, error) {
	start := time.Now()
	batches := lo.Chunk(items, bf.config.BatchSize)

	bf.logger.Info().
		Int("items", len(items)).
		Int("batches", len(batches)).
		Str("scope", scope).
		Msg("Starting price lookup")

	results := make([]PriceResult, 0, len(items))

	for i, batch := range batches {
		if err := bf.limiter.Wait(ctx, len(batch)); err != nil {
			return results, fmt.Errorf("wait for batch %d/%d: %w", i+1, len(batches), err)
		}

		found := bf.fetchBatch(ctx, batch, scope)
		bf.limiter.Done()
		fetchBatchesTotal.Inc()
		results = append(results, found...)

		bf.logger.Debug().
			Int("batch", i+1).
			Int("size", len(batch)).
			Int("found", len(found)).
			Msg("Batch complete")

		if err := ctx.Err(); err != nil {
			return results, fmt.Errorf("after batch %d/%d: %w", i+1, len(batches), err)
		}
	}

	bf.logger.Info().
		Int("items", len(items)).
		Int("found", len(results)).
		Dur("duration", time.Since(start)).
		Msg("Price lookup complete")

	return results, nil
}

// fetchBatch runs one lookup per item concurrently and returns once all of
// them have settled.
func (bf *BatchFetcher) fetchBatch(ctx context.Context, batch []catalog.ResolvedItem, scope string) []PriceResult {
	out := make(chan PriceResult, len(batch))

	var wg sync.WaitGroup
	for _, item := range batch {
		item := item // per-iteration copy; go.mod targets go1.21 loop semantics
		wg.Add(1)
		go func() {
			defer wg.Done()
			if result, ok := bf.fetchOne(ctx, item, scope); ok {
				out <- result
			}
		}()
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	found := make([]PriceResult, 0, len(batch))
	for result := range out {
		found = append(found, result)
	}
	return found
}

func (bf *BatchFetcher) fetchOne(ctx context.Context, item catalog.ResolvedItem, scope string) (PriceResult, bool) {
	fetchCtx, cancel := context.WithTimeout(ctx, bf.config.Timeout)
	defer cancel()

	start := time.Now()
	quote, err := bf.source.LowestPrice(fetchCtx, uint32(item.Item.ID), scope)
	fetchDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		outcome := outcomeError
		if errors.Is(err, client.ErrNoListings) {
			outcome = outcomeNoData
		}
		fetchResultsTotal.WithLabelValues(outcome).Inc()
		bf.logger.Debug().
			Err(err).
			Uint32("item_id", uint32(item.Item.ID)).
			Str("name", item.Item.Name).
			Msg("Price lookup failed")
		return PriceResult{}, false
	}

	if quote == nil || quote.Market == "" || !quote.Price.IsPositive() {
		fetchResultsTotal.WithLabelValues(outcomeNoData).Inc()
		bf.logger.Debug().
			Uint32("item_id", uint32(item.Item.ID)).
			Str("name", item.Item.Name).
			Msg("No usable price")
		return PriceResult{}, false
	}

	fetchResultsTotal.WithLabelValues(outcomeOK).Inc()
	return PriceResult{
		ItemID:      item.Item.ID,
		ItemName:    item.Item.Name,
		Market:      quote.Market,
		LowestPrice: quote.Price,
		Quantity:    item.Quantity,
	}, true
}
