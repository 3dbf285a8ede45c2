// Package client provides the Universalis market-data HTTP client with
// response caching, provider cooldown tracking, and error classification.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/market-list/pkg/cache"
	"github.com/Sternrassler/market-list/pkg/logging"
	"github.com/Sternrassler/market-list/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultBaseURL is the public Universalis API.
const DefaultBaseURL = "https://universalis.app"

// Prometheus metrics for provider requests.
var (
	providerRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketlist_provider_requests_total",
		Help: "Total market-data provider requests by status",
	}, []string{"status"})

	providerRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "marketlist_provider_request_duration_seconds",
		Help:    "Market-data provider request duration in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	})

	providerErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketlist_provider_errors_total",
		Help: "Total market-data provider errors by class",
	}, []string{"class"})
)

// Client is the Universalis client.
type Client struct {
	httpClient *http.Client
	tracker    *ratelimit.Tracker
	cache      *cache.Manager
	baseURL    *url.URL
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// Redis client for the shared cache layer and cooldown state.
	// Optional: without it the client caches in memory only and does not
	// share cooldowns.
	Redis *redis.Client

	// User-Agent header sent with every request (required).
	UserAgent string

	// BaseURL of the provider API.
	BaseURL string

	// Timeout for a single HTTP request.
	Timeout time.Duration

	// CacheTTL is how long successful responses are cached (0 disables).
	CacheTTL time.Duration

	// Listings is the number of listings requested per item.
	Listings int
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(redis *redis.Client, userAgent string) Config {
	return Config{
		Redis:     redis,
		UserAgent: userAgent,
		BaseURL:   DefaultBaseURL,
		Timeout:   30 * time.Second,
		CacheTTL:  60 * time.Second,
		Listings:  20,
	}
}

// New creates a new Universalis client.
func New(cfg Config) (*Client, error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	baseURL, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || (baseURL.Scheme != "http" && baseURL.Scheme != "https") || baseURL.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}

	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be > 0 (got %s)", cfg.Timeout)
	}

	if cfg.CacheTTL < 0 {
		return nil, fmt.Errorf("cache ttl must be >= 0 (got %s)", cfg.CacheTTL)
	}

	if cfg.Listings <= 0 {
		cfg.Listings = 20
	}

	logger := logging.NewLogger("universalis-client")

	var tracker *ratelimit.Tracker
	if cfg.Redis != nil {
		tracker = ratelimit.NewTracker(cfg.Redis, logger)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		tracker: tracker,
		cache:   cache.NewManager(cfg.Redis, cfg.CacheTTL),
		baseURL: baseURL,
		config:  cfg,
		logger:  logger,
	}, nil
}

// Do performs an HTTP request with cooldown gating and caching. Each
// request is attempted once. Non-2xx responses are returned to the caller
// as-is; only transport failures produce an error.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	endpoint := req.URL.Path

	startTime := time.Now()
	defer func() {
		providerRequestDuration.Observe(time.Since(startTime).Seconds())
	}()

	if c.tracker != nil {
		allowed, err := c.tracker.ShouldAllowRequest(ctx)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Cooldown check failed")
		} else if !allowed {
			providerRequestsTotal.WithLabelValues("cooldown").Inc()
			return nil, ErrCooldown
		}
	}

	cacheable := req.Method == http.MethodGet && c.config.CacheTTL > 0
	cacheKey := cache.CacheKey{
		Endpoint:    endpoint,
		QueryParams: req.URL.Query(),
	}

	if cacheable {
		entry, err := c.cache.Get(ctx, cacheKey)
		switch {
		case err == nil:
			c.logger.Debug().
				Str("endpoint", endpoint).
				Dur("age", entry.Age(time.Now())).
				Msg("Serving cached response")
			providerRequestsTotal.WithLabelValues("cached").Inc()
			return cache.EntryToResponse(entry), nil
		case !errors.Is(err, cache.ErrCacheMiss):
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Cache get error")
		}
	}

	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("method", req.Method).
		Msg("Executing provider request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		providerErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		providerRequestsTotal.WithLabelValues("network_error").Inc()
		c.logger.Debug().Err(err).Str("endpoint", endpoint).Msg("HTTP request failed")
		return nil, &APIError{
			ErrorClass: ErrorClassNetwork,
			Message:    "request failed",
			Err:        err,
		}
	}

	providerRequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	if c.tracker != nil {
		if err := c.tracker.UpdateFromResponse(ctx, resp.StatusCode, resp.Header); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to record provider cooldown")
		}
	}

	if class := classifyStatus(resp.StatusCode); class != "" {
		providerErrorsTotal.WithLabelValues(string(class)).Inc()
		c.logger.Debug().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("error_class", string(class)).
			Msg("Provider request error")
		return resp, nil
	}

	if cacheable && resp.StatusCode == http.StatusOK {
		entry, err := cache.ResponseToEntry(resp, c.config.CacheTTL)
		if err != nil {
			return nil, &APIError{
				StatusCode: resp.StatusCode,
				ErrorClass: ErrorClassNetwork,
				Message:    "read response body",
				Err:        err,
			}
		}
		if err := c.cache.Set(ctx, cacheKey, entry); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to cache response")
		}
	}

	return resp, nil
}

// Get performs a GET request to a provider endpoint.
func (c *Client) Get(ctx context.Context, endpoint string, query url.Values) (*http.Response, error) {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + endpoint
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	return c.Do(req)
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// GetCache returns the cache manager (for testing).
func (c *Client) GetCache() *cache.Manager {
	return c.cache
}
