package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/Sternrassler/market-list/pkg/marketlist"
	"github.com/Sternrassler/market-list/pkg/metrics"
	"github.com/Sternrassler/market-list/pkg/report"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	readHeaderTimeout = 5 * time.Second
	maxListBytes      = 1 << 20
)

// Runner produces a report for a shopping list.
type Runner interface {
	Run(ctx context.Context, text, scope string) (*marketlist.Report, error)
}

// Server exposes the pipeline over HTTP.
type Server struct {
	addr   string
	runner Runner
	redis  *redis.Client
	logger zerolog.Logger
}

// NewServer creates an HTTP server for runner. redisClient may be nil.
func NewServer(addr string, runner Runner, redisClient *redis.Client, logger zerolog.Logger) *Server {
	return &Server{addr: addr, runner: runner, redis: redisClient, logger: logger}
}

// Router builds the route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler)
	r.Get("/ready", readyHandler(s.redis))
	r.Post("/report", s.reportHandler)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	return r
}

// Run serves until ctx ends, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		<-ctx.Done()
		if err := httpServer.Shutdown(context.WithoutCancel(ctx)); err != nil {
			s.logger.Error().Err(err).Msg("HTTP server shutdown failed")
		}
	}()

	s.logger.Info().Str("addr", s.addr).Msg("HTTP server started")

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen: %w", err)
	}

	s.logger.Info().Msg("HTTP server stopped")
	return nil
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

// readyHandler reports whether the shared Redis layer, when configured, is
// reachable.
func readyHandler(redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if redisClient != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := redisClient.Ping(ctx).Err(); err != nil {
				http.Error(w, fmt.Sprintf("redis unavailable: %v", err), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	}
}

// reportResponse is the JSON form of a report (?format=json).
type reportResponse struct {
	RunID    string         `json:"run_id"`
	Scope    string         `json:"scope"`
	Parsed   int            `json:"parsed"`
	Dropped  int            `json:"dropped"`
	Resolved int            `json:"resolved"`
	Batches  int            `json:"batches"`
	Priced   int            `json:"priced"`
	Markets  int            `json:"markets"`
	Report   string         `json:"report"`
	Groups   []marketOutput `json:"groups"`
}

type marketOutput struct {
	Market string       `json:"market"`
	Items  []itemOutput `json:"items"`
}

type itemOutput struct {
	ItemID   uint32 `json:"item_id"`
	Name     string `json:"name"`
	Price    string `json:"price"`
	Quantity int    `json:"quantity"`
}

func (s *Server) reportHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxListBytes))
	if err != nil {
		http.Error(w, "list too large or unreadable", http.StatusRequestEntityTooLarge)
		return
	}

	rep, err := s.runner.Run(r.Context(), string(body), r.URL.Query().Get("scope"))
	switch {
	case errors.Is(err, marketlist.ErrNoScope):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		s.logger.Warn().Err(err).Str("request_id", middleware.GetReqID(r.Context())).Msg("Report run failed")
		http.Error(w, "report interrupted", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("X-Run-ID", rep.Summary.RunID.String())

	if r.URL.Query().Get("format") != "json" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		io.WriteString(w, rep.Text)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(toResponse(rep)); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to write report")
	}
}

func toResponse(rep *marketlist.Report) reportResponse {
	sum := rep.Summary
	resp := reportResponse{
		RunID:    sum.RunID.String(),
		Scope:    sum.Scope,
		Parsed:   sum.Parsed,
		Dropped:  sum.Dropped,
		Resolved: sum.Resolved,
		Batches:  sum.Batches,
		Priced:   sum.Priced,
		Markets:  sum.Markets,
		Report:   rep.Text,
		Groups:   []marketOutput{},
	}

	for _, market := range report.Markets(rep.Groups) {
		out := marketOutput{Market: market}
		for _, item := range rep.Groups[market] {
			out.Items = append(out.Items, itemOutput{
				ItemID:   uint32(item.ItemID),
				Name:     item.ItemName,
				Price:    item.LowestPrice.String(),
				Quantity: item.Quantity,
			})
		}
		resp.Groups = append(resp.Groups, out)
	}

	return resp
}
