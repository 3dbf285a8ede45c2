package marketlist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/market-list/pkg/catalog"
	"github.com/Sternrassler/market-list/pkg/client"
	"github.com/Sternrassler/market-list/pkg/config"
	"github.com/Sternrassler/market-list/pkg/logging"
	"github.com/Sternrassler/market-list/pkg/pricing"
	"github.com/Sternrassler/market-list/pkg/ratelimit"
	"github.com/redis/go-redis/v9"
)

// App owns the long-lived collaborators of a Service.
type App struct {
	Service *Service
	Client  *client.Client
	Catalog *catalog.Repository
	Redis   *redis.Client
	Scope   string
}

// Open connects to Redis (when configured), loads the catalog file and
// assembles the pipeline.
func Open(ctx context.Context, cfg config.Config) (*App, error) {
	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		redisClient = redis.NewClient(opts)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			redisClient.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
	}

	repo, err := catalog.LoadFile(cfg.Market.CatalogPath)
	if err != nil {
		if redisClient != nil {
			redisClient.Close()
		}
		return nil, err
	}

	app, err := NewApp(cfg, repo, redisClient)
	if err != nil {
		repo.Close()
		if redisClient != nil {
			redisClient.Close()
		}
		return nil, err
	}
	return app, nil
}

// NewApp assembles the pipeline around an already loaded catalog.
// redisClient may be nil.
func NewApp(cfg config.Config, repo *catalog.Repository, redisClient *redis.Client) (*App, error) {
	clientCfg := client.DefaultConfig(redisClient, cfg.Provider.UserAgent)
	clientCfg.BaseURL = cfg.Provider.BaseURL
	clientCfg.Timeout = cfg.Provider.Timeout
	clientCfg.CacheTTL = cfg.Provider.CacheTTL
	clientCfg.Listings = cfg.Provider.Listings

	c, err := client.New(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}

	fetchCfg := pricing.Config{
		BatchSize: cfg.Market.BatchSize,
		Interval:  cfg.Market.BatchInterval,
		Timeout:   cfg.Market.FetchTimeout,
	}
	fetcher := pricing.NewBatchFetcher(c, fetchCfg, NewLimiter(cfg.Market, ratelimit.SystemClock{}))
	resolver := catalog.NewResolver(repo, logging.NewLogger("catalog"))

	return &App{
		Service: NewService(resolver, fetcher, logging.NewLogger("marketlist")),
		Client:  c,
		Catalog: repo,
		Redis:   redisClient,
		Scope:   cfg.Market.Scope,
	}, nil
}

// NewLimiter builds the batch limiter selected by m.Limiter.
func NewLimiter(m config.Market, clock ratelimit.Clock) ratelimit.Limiter {
	if m.Limiter == config.LimiterTokenBucket {
		return ratelimit.NewTokenBucket(m.BatchSize, m.BatchInterval, clock)
	}
	return ratelimit.NewPause(m.BatchInterval, clock)
}

// Run runs the pipeline; an empty scope means the configured one.
func (a *App) Run(ctx context.Context, text, scope string) (*Report, error) {
	if scope == "" {
		scope = a.Scope
	}
	return a.Service.Run(ctx, text, scope)
}

// Close releases the client, the catalog and the Redis connection.
func (a *App) Close() error {
	var errs []error
	if err := a.Client.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := a.Catalog.Close(); err != nil && !errors.Is(err, catalog.ErrCatalogClosed) {
		errs = append(errs, err)
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
