package catalog

import (
	"github.com/Sternrassler/market-list/pkg/itemlist"
	"github.com/rs/zerolog"
)

// NameLookup finds catalog items by exact display name.
type NameLookup interface {
	LookupByName(name string) []Item
}

// ResolvedItem is a tradable catalog item paired with the requested quantity.
type ResolvedItem struct {
	Item     Item
	Quantity int
}

// Resolver maps list entries to tradable catalog items.
type Resolver struct {
	lookup NameLookup
	logger zerolog.Logger
}

// NewResolver creates a resolver backed by lookup.
func NewResolver(lookup NameLookup, logger zerolog.Logger) *Resolver {
	return &Resolver{
		lookup: lookup,
		logger: logger,
	}
}

// ResolveOne returns the first tradable item named name.
func (r *Resolver) ResolveOne(name string, quantity int) (ResolvedItem, bool) {
	for _, item := range r.lookup.LookupByName(name) {
		if item.Tradable {
			return ResolvedItem{Item: item, Quantity: quantity}, true
		}
	}
	return ResolvedItem{}, false
}

// Resolve resolves entries in order. Entries without a tradable match
// are dropped.
func (r *Resolver) Resolve(entries []itemlist.Entry) []ResolvedItem {
	resolved := make([]ResolvedItem, 0, len(entries))
	for _, entry := range entries {
		item, ok := r.ResolveOne(entry.Name, entry.Quantity)
		if !ok {
			r.logger.Debug().Str("name", entry.Name).Msg("No tradable catalog match")
			continue
		}
		resolved = append(resolved, item)
	}
	return resolved
}
