// Command marketlist prices a shopping list on the Universalis market board
// and prints the items grouped by the world where each is cheapest.
//
// One-shot mode reads the list from -in (or stdin) and writes the report to
// -out (or stdout). With -listen it serves the same pipeline over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/Sternrassler/market-list/pkg/config"
	"github.com/Sternrassler/market-list/pkg/logging"
	"github.com/Sternrassler/market-list/pkg/marketlist"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type options struct {
	in     string
	out    string
	listen string
	scope  string
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var opts options
	flag.StringVar(&opts.in, "in", "", "read the list from this file (default: stdin)")
	flag.StringVar(&opts.out, "out", "", "write the report to this file (default: stdout)")
	flag.StringVar(&opts.listen, "listen", "", "serve HTTP on this address instead of running once")
	flag.StringVar(&opts.scope, "scope", "", "world, data center or region to price in (default: MARKETLIST_SCOPE)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "marketlist: %v\n", err)
		os.Exit(2)
	}

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.Log.Level),
		Pretty: cfg.Log.Pretty,
		Output: os.Stderr,
	})

	if err := run(ctx, cfg, opts, logger); err != nil {
		logger.Error().Err(err).Msg("marketlist failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, opts options, logger zerolog.Logger) error {
	app, err := marketlist.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	logger.Info().
		Int("catalog_items", app.Catalog.Len()).
		Bool("redis", app.Redis != nil).
		Str("scope", app.Scope).
		Msg("Pipeline ready")

	if opts.scope != "" {
		app.Scope = opts.scope
	}

	listen := opts.listen
	if listen == "" {
		listen = cfg.Server.Addr
	}
	if listen != "" {
		return serve(ctx, app, listen, logger)
	}

	return runOnce(ctx, app, opts)
}

func runOnce(ctx context.Context, app *marketlist.App, opts options) error {
	text, err := readInput(opts.in)
	if err != nil {
		return err
	}

	rep, err := app.Run(ctx, text, "")
	if err != nil {
		return err
	}

	return writeOutput(opts.out, rep.Text)
}

func serve(ctx context.Context, app *marketlist.App, addr string, logger zerolog.Logger) error {
	g, ctx := errgroup.WithContext(ctx)

	srv := NewServer(addr, app, app.Redis, logger)
	g.Go(func() error {
		return srv.Run(ctx)
	})

	return g.Wait()
}

func readInput(path string) (string, error) {
	var r io.Reader = os.Stdin
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return "", fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		r = f
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return string(data), nil
}

func writeOutput(path, text string) error {
	if path == "" {
		_, err := io.WriteString(os.Stdout, text)
		return err
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
