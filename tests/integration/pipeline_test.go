//go:build integration

package integration

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/Sternrassler/market-list/internal/testutil"
	"github.com/Sternrassler/market-list/pkg/catalog"
	"github.com/Sternrassler/market-list/pkg/config"
	"github.com/Sternrassler/market-list/pkg/marketlist"
	"github.com/caarlos0/env/v10"
)

// TestPipeline_EndToEnd runs a list of 17 items against the mock provider
// with a Redis-backed client: 3 batches, never more than 8 requests in
// flight, items grouped by their cheapest world.
func TestPipeline_EndToEnd(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockUniversalis()
	defer mock.Close()

	var (
		items []catalog.Item
		list  strings.Builder
	)
	worlds := []string{"Gilgamesh", "Cactuar", "Jenova"}
	for i := 1; i <= 17; i++ {
		id := uint32(5000 + i)
		name := fmt.Sprintf("Material %02d", i)
		items = append(items, catalog.Item{ID: catalog.ItemID(id), Name: name, Tradable: true})
		fmt.Fprintf(&list, "%dx %s\n", i, name)

		mock.SetListings("Aether", id,
			testutil.MockListing{World: worlds[i%3], Price: fmt.Sprint(100 + i)},
			testutil.MockListing{World: "Sargatanas", Price: fmt.Sprint(500 + i)},
		)
	}
	list.WriteString("2x Not In Catalog\ngarbage line\n")

	cfg, err := config.Parse(env.Options{Environment: map[string]string{
		"MARKETLIST_SCOPE":          "Aether",
		"MARKETLIST_BATCH_INTERVAL": "10ms",
		"UNIVERSALIS_URL":           mock.URL(),
	}})
	if err != nil {
		t.Fatalf("config.Parse failed: %v", err)
	}

	app, err := marketlist.NewApp(cfg, catalog.NewRepository(items), redisClient)
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	defer app.Close()

	rep, err := app.Run(context.Background(), list.String(), "")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	s := rep.Summary
	if s.Parsed != 18 || s.Dropped != 1 || s.Resolved != 17 || s.Batches != 3 || s.Priced != 17 || s.Markets != 3 {
		t.Errorf("Summary = %+v", s)
	}

	if got := mock.GetMaxInFlight(); got > 8 {
		t.Errorf("Max concurrent requests = %d, want <= 8", got)
	}

	for _, world := range []string{"Cactuar", "Gilgamesh", "Jenova"} {
		if !strings.Contains(rep.Text, world+"\n") {
			t.Errorf("Report missing market %s:\n%s", world, rep.Text)
		}
	}
	if strings.Contains(rep.Text, "Sargatanas") {
		t.Errorf("Report lists a market that is never cheapest:\n%s", rep.Text)
	}
	if !strings.Contains(rep.Text, "Material 03 - 103 (3)\n") {
		t.Errorf("Report missing expected line:\n%s", rep.Text)
	}
	if strings.Index(rep.Text, "Cactuar") > strings.Index(rep.Text, "Gilgamesh") {
		t.Errorf("Markets not sorted:\n%s", rep.Text)
	}

	// A second run is served from the cache.
	before := mock.GetRequestCount()
	if _, err := app.Run(context.Background(), list.String(), ""); err != nil {
		t.Fatalf("Second run failed: %v", err)
	}
	if mock.GetRequestCount() != before {
		t.Errorf("Second run made %d provider requests, want 0", mock.GetRequestCount()-before)
	}
}
