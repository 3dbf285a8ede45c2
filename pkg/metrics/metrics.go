// Package metrics exposes the Prometheus registry used by market-list.
// Metrics are defined next to the code that records them (client, cache,
// ratelimit, pricing) and registered via promauto.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry.
var Registry = prometheus.DefaultRegisterer

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Metrics Documentation
//
// Pipeline Metrics (pkg/pricing):
//   - marketlist_fetch_batches_total (Counter): Batches executed
//   - marketlist_fetch_results_total{outcome} (Counter): Per-item fetches by outcome (ok, no_data, error)
//   - marketlist_fetch_duration_seconds (Histogram): Per-item fetch duration
//
// Provider Metrics (pkg/client):
//   - marketlist_provider_requests_total{status} (Counter): Requests by HTTP status, "cached", "cooldown" or "network_error"
//   - marketlist_provider_request_duration_seconds (Histogram): Request duration
//   - marketlist_provider_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Cooldown Metrics (pkg/ratelimit):
//   - marketlist_provider_cooldowns_total (Counter): Cooldowns started by HTTP 429
//   - marketlist_provider_blocks_total (Counter): Requests refused during a cooldown
//
// Cache Metrics (pkg/cache):
//   - marketlist_cache_hits_total{layer} (Counter): Hits by layer (memory, redis)
//   - marketlist_cache_misses_total (Counter): Misses
//   - marketlist_cache_size_bytes{layer} (Gauge): Bytes written per layer
//   - marketlist_cache_errors_total{operation} (Counter): Cache operation errors
//
// Example Prometheus Queries:
//
//   # Share of items priced
//   sum(rate(marketlist_fetch_results_total{outcome="ok"}[1h])) /
//   sum(rate(marketlist_fetch_results_total[1h]))
//
//   # Cache hit rate
//   sum(rate(marketlist_cache_hits_total[5m])) /
//   (sum(rate(marketlist_cache_hits_total[5m])) + sum(rate(marketlist_cache_misses_total[5m])))
