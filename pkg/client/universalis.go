package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Quote is the cheapest current listing of an item within a scope.
type Quote struct {
	// Market is the world offering the lowest price.
	Market string
	// Price is the price per unit.
	Price decimal.Decimal
}

// marketData is the subset of the /api/v2/{scope}/{itemID} response we use.
type marketData struct {
	ItemID    uint32    `json:"itemID"`
	WorldName string    `json:"worldName"`
	Listings  []listing `json:"listings"`
}

type listing struct {
	PricePerUnit decimal.Decimal `json:"pricePerUnit"`
	Quantity     int             `json:"quantity"`
	WorldName    string          `json:"worldName"`
	HQ           bool            `json:"hq"`
}

// LowestPrice returns the cheapest listing of itemID across the worlds in
// scope (a world, data center or region name). Items without listings
// yield ErrNoListings; non-200 responses yield *APIError.
func (c *Client) LowestPrice(ctx context.Context, itemID uint32, scope string) (*Quote, error) {
	scope = strings.TrimSpace(scope)
	if scope == "" {
		return nil, fmt.Errorf("scope is required")
	}

	endpoint := fmt.Sprintf("/api/v2/%s/%d", scope, itemID)
	query := url.Values{
		"listings": []string{strconv.Itoa(c.config.Listings)},
		"entries":  []string{"0"},
	}

	resp, err := c.Get(ctx, endpoint, query)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: classifyStatus(resp.StatusCode),
			Message:    resp.Status,
		}
	}

	var data marketData
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode market data for item %d: %w", itemID, err)
	}

	return cheapest(data, scope)
}

// cheapest picks the lowest positive unit price. Listings of a single-world
// query carry no world name; the response or the scope names the market.
func cheapest(data marketData, scope string) (*Quote, error) {
	var best *listing
	for i := range data.Listings {
		l := &data.Listings[i]
		if !l.PricePerUnit.IsPositive() {
			continue
		}
		if best == nil || l.PricePerUnit.LessThan(best.PricePerUnit) {
			best = l
		}
	}
	if best == nil {
		return nil, ErrNoListings
	}

	market := best.WorldName
	if market == "" {
		market = data.WorldName
	}
	if market == "" {
		market = scope
	}

	return &Quote{Market: market, Price: best.PricePerUnit}, nil
}
