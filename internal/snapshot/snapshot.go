// Package snapshot holds the immutable per-generation view of the media
// catalog: the items, their full-text indexes and the derived trigger set,
// published together behind a single atomic pointer.
package snapshot

import (
	"sync/atomic"
	"time"

	"github.com/voxplay/voxplay/internal/catalog"
	"github.com/voxplay/voxplay/internal/search"
	"github.com/voxplay/voxplay/internal/trigger"
)

// Generation is one completed catalog rebuild. All fields are read-only
// after Publish; the next rebuild supersedes the whole generation rather
// than mutating it, so an in-flight query that captured a generation keeps
// a consistent view of items, indexes and triggers.
type Generation struct {
	BuiltAt time.Time
	Items   []*catalog.Item
	OnDeck  []*catalog.Item
	Recent  []*catalog.Item

	Indexes  *search.IndexSet
	Triggers *trigger.Set

	byKey map[string]*catalog.Item
}

// NewGeneration assembles a generation from its parts and builds the key
// lookup table. Key uniqueness holds only within this generation.
func NewGeneration(items, onDeck, recent []*catalog.Item, indexes *search.IndexSet, triggers *trigger.Set) *Generation {
	byKey := make(map[string]*catalog.Item, len(items))
	for _, item := range items {
		byKey[item.Key] = item
	}
	return &Generation{
		BuiltAt:  time.Now(),
		Items:    items,
		OnDeck:   onDeck,
		Recent:   recent,
		Indexes:  indexes,
		Triggers: triggers,
		byKey:    byKey,
	}
}

// ItemByKey resolves a key to its item within this generation.
func (g *Generation) ItemByKey(key string) (*catalog.Item, bool) {
	item, ok := g.byKey[key]
	return item, ok
}

// ItemsByType returns the items of one media type, in catalog order.
func (g *Generation) ItemsByType(t catalog.MediaType) []*catalog.Item {
	var out []*catalog.Item
	for _, item := range g.Items {
		if item.Type == t {
			out = append(out, item)
		}
	}
	return out
}

// Empty reports whether the generation holds no items at all.
func (g *Generation) Empty() bool {
	return g == nil || len(g.Items) == 0
}

// Store publishes generations atomically. Readers take whichever generation
// is current when their flow starts and are unaffected by later publishes.
type Store struct {
	current atomic.Pointer[Generation]
}

// NewStore creates an empty store. Current returns nil until the first
// Publish.
func NewStore() *Store {
	return &Store{}
}

// Current returns the latest published generation, or nil before the first
// rebuild completes.
func (s *Store) Current() *Generation {
	return s.current.Load()
}

// Publish atomically replaces the current generation and returns the one it
// superseded, if any. The caller owns closing the superseded generation's
// indexes once no flow can still hold it.
func (s *Store) Publish(g *Generation) *Generation {
	return s.current.Swap(g)
}
