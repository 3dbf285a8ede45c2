package catalog

import (
	"testing"

	"github.com/Sternrassler/market-list/pkg/itemlist"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver(items ...Item) *Resolver {
	return NewResolver(NewRepository(items), zerolog.Nop())
}

func TestResolver_PicksFirstTradableMatch(t *testing.T) {
	r := newTestResolver(
		Item{ID: 9001, Name: "Gold Ingot", Tradable: false},
		Item{ID: 5057, Name: "Gold Ingot", Tradable: true},
		Item{ID: 7000, Name: "Gold Ingot", Tradable: true},
	)

	got, ok := r.ResolveOne("Gold Ingot", 3)
	require.True(t, ok)
	assert.Equal(t, ItemID(5057), got.Item.ID)
	assert.Equal(t, 3, got.Quantity)
}

func TestResolver_Resolve(t *testing.T) {
	r := newTestResolver(
		Item{ID: 5057, Name: "Gold Ingot", Tradable: true},
		Item{ID: 9001, Name: "Gold Ingot", Tradable: false},
		Item{ID: 2, Name: "Quest Key", Tradable: false},
		Item{ID: 5058, Name: "Cobalt Rivets", Tradable: true},
	)

	got := r.Resolve([]itemlist.Entry{
		{Name: "Gold Ingot", Quantity: 3},
		{Name: "Unknown Thing", Quantity: 1},
		{Name: "Quest Key", Quantity: 1},
		{Name: "Cobalt Rivets", Quantity: 8},
	})

	want := []ResolvedItem{
		{Item: Item{ID: 5057, Name: "Gold Ingot", Tradable: true}, Quantity: 3},
		{Item: Item{ID: 5058, Name: "Cobalt Rivets", Tradable: true}, Quantity: 8},
	}
	assert.Equal(t, want, got)
}

func TestResolver_EmptyInput(t *testing.T) {
	r := newTestResolver()
	assert.Empty(t, r.Resolve(nil))
}
