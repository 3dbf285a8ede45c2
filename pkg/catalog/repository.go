// Package catalog provides the item catalog used to resolve list entries
// to tradable market items.
package catalog

import (
	"errors"
	"sync"
)

// ErrCatalogClosed is returned when a closed repository is used.
var ErrCatalogClosed = errors.New("catalog closed")

// ItemID is the numeric identity of a catalog item.
type ItemID uint32

// Item is a catalog entry.
type Item struct {
	ID       ItemID
	Name     string
	Tradable bool
}

// Repository is an in-memory, read-only item catalog indexed by id and name.
// Items sharing a display name are kept in insertion order.
type Repository struct {
	mu     sync.RWMutex
	byID   map[ItemID]Item
	byName map[string][]Item
	closed bool
}

// NewRepository builds a repository from items. Later items with an
// already-seen id replace the earlier one in the id index only.
func NewRepository(items []Item) *Repository {
	r := &Repository{
		byID:   make(map[ItemID]Item, len(items)),
		byName: make(map[string][]Item),
	}
	for _, item := range items {
		r.byID[item.ID] = item
		r.byName[item.Name] = append(r.byName[item.Name], item)
	}
	return r
}

// LookupByID returns the item with the given id.
func (r *Repository) LookupByID(id ItemID) (Item, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.byID[id]
	return item, ok
}

// LookupByName returns all items whose name matches exactly, in insertion
// order. The returned slice is a copy.
func (r *Repository) LookupByName(name string) []Item {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matches := r.byName[name]
	if len(matches) == 0 {
		return nil
	}
	out := make([]Item, len(matches))
	copy(out, matches)
	return out
}

// Len returns the number of distinct item ids.
func (r *Repository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// Close releases the indices. Lookups after Close find nothing.
func (r *Repository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrCatalogClosed
	}
	r.byID = nil
	r.byName = nil
	r.closed = true
	return nil
}
