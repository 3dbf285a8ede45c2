package client

import (
	"context"
	"errors"
	"testing"

	"github.com/Sternrassler/market-list/internal/testutil"
	"github.com/shopspring/decimal"
)

func TestCheapest(t *testing.T) {
	price := func(s string) decimal.Decimal { return decimal.RequireFromString(s) }

	tests := []struct {
		name       string
		data       marketData
		scope      string
		wantMarket string
		wantPrice  string
		wantErr    error
	}{
		{
			name: "lowest across worlds",
			data: marketData{Listings: []listing{
				{PricePerUnit: price("1800"), WorldName: "Cactuar"},
				{PricePerUnit: price("1500"), WorldName: "Gilgamesh"},
				{PricePerUnit: price("1650"), WorldName: "Adamantoise"},
			}},
			scope:      "Aether",
			wantMarket: "Gilgamesh",
			wantPrice:  "1500",
		},
		{
			name: "first listing wins ties",
			data: marketData{Listings: []listing{
				{PricePerUnit: price("200"), WorldName: "Faerie"},
				{PricePerUnit: price("200"), WorldName: "Sargatanas"},
			}},
			scope:      "Aether",
			wantMarket: "Faerie",
			wantPrice:  "200",
		},
		{
			name: "non-positive prices ignored",
			data: marketData{Listings: []listing{
				{PricePerUnit: price("0"), WorldName: "Cactuar"},
				{PricePerUnit: price("12.5"), WorldName: "Jenova"},
			}},
			scope:      "Aether",
			wantMarket: "Jenova",
			wantPrice:  "12.5",
		},
		{
			name: "world scope uses response world name",
			data: marketData{WorldName: "Gilgamesh", Listings: []listing{
				{PricePerUnit: price("99")},
			}},
			scope:      "Gilgamesh",
			wantMarket: "Gilgamesh",
			wantPrice:  "99",
		},
		{
			name:       "falls back to scope",
			data:       marketData{Listings: []listing{{PricePerUnit: price("7")}}},
			scope:      "Lich",
			wantMarket: "Lich",
			wantPrice:  "7",
		},
		{
			name:    "no listings",
			data:    marketData{},
			scope:   "Aether",
			wantErr: ErrNoListings,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			quote, err := cheapest(tt.data, tt.scope)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Expected %v, got %v", tt.wantErr, err)
				}
				return
			}

			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if quote.Market != tt.wantMarket {
				t.Errorf("Market = %q, want %q", quote.Market, tt.wantMarket)
			}
			if quote.Price.String() != tt.wantPrice {
				t.Errorf("Price = %s, want %s", quote.Price, tt.wantPrice)
			}
		})
	}
}

func TestLowestPrice(t *testing.T) {
	mock := testutil.NewMockUniversalis()
	defer mock.Close()
	mock.SetListings("Aether", 5057,
		testutil.MockListing{World: "Cactuar", Price: "1800"},
		testutil.MockListing{World: "Gilgamesh", Price: "1500"},
	)

	c := newTestClient(t, mock, 0)

	quote, err := c.LowestPrice(context.Background(), 5057, "Aether")
	if err != nil {
		t.Fatalf("LowestPrice() failed: %v", err)
	}

	if quote.Market != "Gilgamesh" {
		t.Errorf("Market = %q, want Gilgamesh", quote.Market)
	}
	if !quote.Price.Equal(decimal.NewFromInt(1500)) {
		t.Errorf("Price = %s, want 1500", quote.Price)
	}
}

func TestLowestPrice_NoListings(t *testing.T) {
	mock := testutil.NewMockUniversalis()
	defer mock.Close()

	c := newTestClient(t, mock, 0)

	_, err := c.LowestPrice(context.Background(), 4242, "Aether")
	if !errors.Is(err, ErrNoListings) {
		t.Errorf("Expected ErrNoListings, got %v", err)
	}
}

func TestLowestPrice_ErrorStatus(t *testing.T) {
	tests := []struct {
		name      string
		resp      testutil.MockResponse
		wantClass ErrorClass
	}{
		{"not found", testutil.NewNotFoundResponse(), ErrorClassClient},
		{"server error", testutil.NewServerErrorResponse(), ErrorClassServer},
		{"rate limited", testutil.NewRateLimitResponse("1"), ErrorClassRateLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockUniversalis()
			defer mock.Close()
			mock.SetResponse(testutil.ItemPath("Aether", 5057), tt.resp)

			c := newTestClient(t, mock, 0)

			_, err := c.LowestPrice(context.Background(), 5057, "Aether")

			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("Expected *APIError, got %v", err)
			}
			if apiErr.ErrorClass != tt.wantClass {
				t.Errorf("ErrorClass = %q, want %q", apiErr.ErrorClass, tt.wantClass)
			}
			if apiErr.StatusCode != tt.resp.StatusCode {
				t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, tt.resp.StatusCode)
			}
		})
	}
}

func TestLowestPrice_MalformedBody(t *testing.T) {
	mock := testutil.NewMockUniversalis()
	defer mock.Close()
	mock.SetResponse(testutil.ItemPath("Aether", 5057), testutil.MockResponse{
		StatusCode: 200,
		Body:       `{"listings": [`,
	})

	c := newTestClient(t, mock, 0)

	if _, err := c.LowestPrice(context.Background(), 5057, "Aether"); err == nil {
		t.Error("Expected decode error")
	}
}

func TestLowestPrice_RequiresScope(t *testing.T) {
	mock := testutil.NewMockUniversalis()
	defer mock.Close()

	c := newTestClient(t, mock, 0)

	if _, err := c.LowestPrice(context.Background(), 5057, "  "); err == nil {
		t.Error("Expected error for empty scope")
	}
	if mock.GetRequestCount() != 0 {
		t.Errorf("RequestCount = %d, want 0", mock.GetRequestCount())
	}
}
