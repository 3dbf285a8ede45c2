// Package config loads market-list settings from the environment.
//
// An optional .env file in the working directory is read first; variables
// already set in the environment take precedence.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Limiter kinds.
const (
	LimiterPause       = "pause"
	LimiterTokenBucket = "token_bucket"
)

// Config is the complete application configuration.
type Config struct {
	Market   Market
	Provider Provider
	Redis    Redis
	Log      Log
	Server   Server
}

// Market controls what is priced and how lookups are paced.
type Market struct {
	CatalogPath   string        `env:"MARKETLIST_CATALOG" envDefault:"Item.csv" validate:"required"`
	Scope         string        `env:"MARKETLIST_SCOPE" envDefault:"Aether" validate:"required"`
	BatchSize     int           `env:"MARKETLIST_BATCH_SIZE" envDefault:"8" validate:"min=1"`
	BatchInterval time.Duration `env:"MARKETLIST_BATCH_INTERVAL" envDefault:"500ms" validate:"gte=0s"`
	FetchTimeout  time.Duration `env:"MARKETLIST_FETCH_TIMEOUT" envDefault:"15s" validate:"gt=0s"`
	Limiter       string        `env:"MARKETLIST_LIMITER" envDefault:"pause" validate:"oneof=pause token_bucket"`
}

// Provider configures the Universalis client.
type Provider struct {
	BaseURL   string        `env:"UNIVERSALIS_URL" envDefault:"https://universalis.app" validate:"required,url"`
	UserAgent string        `env:"USER_AGENT" envDefault:"market-list/1.0" validate:"required"`
	Timeout   time.Duration `env:"UNIVERSALIS_TIMEOUT" envDefault:"30s" validate:"gt=0s"`
	CacheTTL  time.Duration `env:"CACHE_TTL" envDefault:"60s" validate:"gte=0s"`
	Listings  int           `env:"UNIVERSALIS_LISTINGS" envDefault:"20" validate:"min=1,max=100"`
}

// Redis is optional; an empty URL disables the shared cache and cooldown
// tracking.
type Redis struct {
	URL string `env:"REDIS_URL" validate:"omitempty,url"`
}

// Log configures zerolog.
type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn warning error disabled"`
	Pretty bool   `env:"LOG_PRETTY" envDefault:"false"`
}

// Server configures the HTTP mode of the command.
type Server struct {
	Addr string `env:"MARKETLIST_LISTEN"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads .env (if present) and the environment, applies defaults and
// validates the result.
func Load() (Config, error) {
	_ = godotenv.Load()

	return Parse(env.Options{})
}

// Parse reads the configuration using opts. Tests pass opts.Environment
// instead of touching the process environment.
func Parse(opts env.Options) (Config, error) {
	var cfg Config

	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("env.Parse: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
