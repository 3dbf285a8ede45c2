// Package marketlist runs the shopping-list pipeline: parse the list,
// resolve items in the catalog, look up prices in batches, group by market
// and format the report.
package marketlist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Sternrassler/market-list/pkg/catalog"
	"github.com/Sternrassler/market-list/pkg/itemlist"
	"github.com/Sternrassler/market-list/pkg/pricing"
	"github.com/Sternrassler/market-list/pkg/report"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrNoScope is returned when a run has no market scope.
var ErrNoScope = errors.New("market scope is required")

// Summary counts what each pipeline stage produced.
type Summary struct {
	RunID    uuid.UUID
	Scope    string
	Parsed   int
	Dropped  int
	Resolved int
	Batches  int
	Priced   int
	Markets  int
	Duration time.Duration
}

// Report is the outcome of one run.
type Report struct {
	Text    string
	Groups  report.Groups
	Summary Summary
}

// Service wires the pipeline stages together.
type Service struct {
	resolver *catalog.Resolver
	fetcher  *pricing.BatchFetcher
	logger   zerolog.Logger
}

// NewService creates a pipeline over the given resolver and fetcher.
func NewService(resolver *catalog.Resolver, fetcher *pricing.BatchFetcher, logger zerolog.Logger) *Service {
	return &Service{
		resolver: resolver,
		fetcher:  fetcher,
		logger:   logger,
	}
}

// Run produces the report for the list in text, pricing items within scope.
// Every stage completes before the next starts. Lines and items that fail
// along the way are dropped; the only errors are a missing scope and the
// end of ctx. On cancellation the partial report is returned with the error.
func (s *Service) Run(ctx context.Context, text, scope string) (*Report, error) {
	scope = strings.TrimSpace(scope)
	if scope == "" {
		return nil, ErrNoScope
	}

	start := time.Now()
	summary := Summary{RunID: uuid.New(), Scope: scope}
	logger := s.logger.With().Str("run_id", summary.RunID.String()).Logger()

	entries, stats := itemlist.ParseWithStats(text)
	summary.Parsed = len(entries)
	summary.Dropped = stats.Dropped
	logger.Info().
		Int("lines", stats.Lines).
		Int("items", summary.Parsed).
		Int("dropped", summary.Dropped).
		Msg("Parsed shopping list")

	resolved := s.resolver.Resolve(entries)
	summary.Resolved = len(resolved)
	summary.Batches = pricing.BatchCount(len(resolved), s.fetcher.Config().BatchSize)
	logger.Info().
		Int("items", summary.Resolved).
		Int("batches", summary.Batches).
		Msgf("Need to lookup %d items in %d batches", summary.Resolved, summary.Batches)

	results, fetchErr := s.fetcher.FetchAll(ctx, resolved, scope)
	summary.Priced = len(results)
	logger.Info().Int("items", summary.Priced).Msg("Found prices")

	groups := report.Group(results)
	summary.Markets = len(groups)
	logger.Info().Int("markets", summary.Markets).Msg("Found markets")

	summary.Duration = time.Since(start)
	rep := &Report{
		Text:    report.Format(groups),
		Groups:  groups,
		Summary: summary,
	}

	if fetchErr != nil {
		logger.Warn().Err(fetchErr).Msg("Run interrupted")
		return rep, fmt.Errorf("run %s: %w", summary.RunID, fetchErr)
	}

	logger.Info().Dur("duration", summary.Duration).Msg("Report ready")
	return rep, nil
}
