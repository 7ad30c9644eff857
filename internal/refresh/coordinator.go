// Package refresh rebuilds the catalog snapshot: it fans out one fetch per
// media subset, tolerates individual fetch failures, and publishes the new
// generation atomically.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/voxplay/voxplay/internal/catalog"
	"github.com/voxplay/voxplay/internal/search"
	"github.com/voxplay/voxplay/internal/snapshot"
	"github.com/voxplay/voxplay/internal/trigger"
)

// ErrCatalogUnavailable reports that every fetch of a rebuild failed,
// which usually means no media server is reachable. It is surfaced once;
// there is no automatic retry.
var ErrCatalogUnavailable = errors.New("media catalog unavailable")

// defaultSettleDelay is how long RefreshLibrary waits after firing the
// upstream library refresh before re-reading the catalog. The upstream
// gives no completion signal, so this is a heuristic window, not a
// guarantee.
const defaultSettleDelay = 15 * time.Second

// CatalogSource fetches raw catalog subsets from the media server.
type CatalogSource interface {
	FetchByType(ctx context.Context, t catalog.MediaType) ([]catalog.RawItem, error)
	FetchOnDeck(ctx context.Context) ([]catalog.RawItem, error)
	FetchRecentlyAdded(ctx context.Context) ([]catalog.RawItem, error)
	RequestLibraryRefresh(ctx context.Context) error
}

// Coordinator serializes catalog rebuilds. Concurrent Refresh calls join
// the in-flight rebuild and share its outcome instead of racing a second
// fetch cycle.
type Coordinator struct {
	source   CatalogSource
	store    *snapshot.Store
	triggers trigger.Port
	logger   zerolog.Logger
	settle   time.Duration
	group    singleflight.Group
}

// NewCoordinator creates a coordinator. The trigger port may be nil when no
// speech collaborator is attached.
func NewCoordinator(source CatalogSource, store *snapshot.Store, triggers trigger.Port, logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		source:   source,
		store:    store,
		triggers: triggers,
		logger:   logger.With().Str("component", "refresh").Logger(),
		settle:   defaultSettleDelay,
	}
}

// SetSettleDelay overrides the post-refresh settle window.
func (c *Coordinator) SetSettleDelay(d time.Duration) {
	c.settle = d
}

// Refresh rebuilds and publishes a new generation. Implements the voice
// engine's Refresher.
func (c *Coordinator) Refresh(ctx context.Context) error {
	_, err := c.Rebuild(ctx)
	return err
}

// Rebuild performs one single-flight fetch-and-rebuild cycle and returns
// the generation it published (or joined).
func (c *Coordinator) Rebuild(ctx context.Context) (*snapshot.Generation, error) {
	v, err, shared := c.group.Do("rebuild", func() (interface{}, error) {
		return c.rebuild(ctx)
	})
	if shared {
		c.logger.Debug().Msg("Joined in-flight rebuild")
	}
	if err != nil {
		return nil, err
	}
	return v.(*snapshot.Generation), nil
}

// RefreshLibrary asks the upstream catalog to rescan its library, waits the
// settle window, then rebuilds from the (hopefully regenerated) catalog.
func (c *Coordinator) RefreshLibrary(ctx context.Context) (*snapshot.Generation, error) {
	if err := c.source.RequestLibraryRefresh(ctx); err != nil {
		// Fire-and-forget side effect; the rebuild can still succeed
		// against the current upstream state.
		c.logger.Warn().Err(err).Msg("Upstream library refresh request failed")
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(c.settle):
	}

	return c.Rebuild(ctx)
}

// fetchResult is one completed sub-fetch of a rebuild cycle.
type fetchResult struct {
	name      string
	mediaType catalog.MediaType
	onDeck    bool
	recent    bool
	items     []catalog.RawItem
	err       error
}

func (c *Coordinator) rebuild(ctx context.Context) (*snapshot.Generation, error) {
	start := time.Now()
	c.logger.Info().Msg("Rebuilding media cache")

	results := c.fetchAll(ctx)

	var (
		failed    int
		rawItems  []catalog.RawItem
		rawOnDeck []catalog.RawItem
		rawRecent []catalog.RawItem
	)
	for _, res := range results {
		if res.err != nil {
			failed++
			c.logger.Warn().Str("fetch", res.name).Err(res.err).
				Msg("Fetch failed, excluding subset from new generation")
			continue
		}
		switch {
		case res.onDeck:
			rawOnDeck = res.items
		case res.recent:
			rawRecent = res.items
		default:
			rawItems = append(rawItems, res.items...)
		}
	}
	if failed == len(results) {
		return nil, fmt.Errorf("%w: all %d fetches failed", ErrCatalogUnavailable, failed)
	}

	gen, err := c.build(rawItems, rawOnDeck, rawRecent)
	if err != nil {
		return nil, err
	}

	// Single atomic publish; in-flight queries keep the generation they
	// started with. The superseded generation is left to the GC once the
	// last such flow drops it.
	old := c.store.Publish(gen)

	c.logger.Info().
		Int("items", len(gen.Items)).
		Int("onDeck", len(gen.OnDeck)).
		Int("recent", len(gen.Recent)).
		Int("failedFetches", failed).
		Dur("took", time.Since(start)).
		Msg("Media cache updated")

	c.swapTriggers(ctx, old, gen)
	return gen, nil
}

// fetchAll starts every sub-fetch concurrently and collects all outcomes,
// failures included.
func (c *Coordinator) fetchAll(ctx context.Context) []fetchResult {
	fetches := make([]func() fetchResult, 0, len(catalog.SupportedTypes)+2)
	for _, t := range catalog.SupportedTypes {
		mediaType := t
		fetches = append(fetches, func() fetchResult {
			items, err := c.source.FetchByType(ctx, mediaType)
			return fetchResult{name: string(mediaType), mediaType: mediaType, items: items, err: err}
		})
	}
	fetches = append(fetches, func() fetchResult {
		items, err := c.source.FetchOnDeck(ctx)
		return fetchResult{name: "ondeck", onDeck: true, items: items, err: err}
	})
	fetches = append(fetches, func() fetchResult {
		items, err := c.source.FetchRecentlyAdded(ctx)
		return fetchResult{name: "recent", recent: true, items: items, err: err}
	})

	out := make(chan fetchResult, len(fetches))
	var wg sync.WaitGroup
	for _, fetch := range fetches {
		wg.Add(1)
		go func(fetch func() fetchResult) {
			defer wg.Done()
			out <- fetch()
		}(fetch)
	}
	wg.Wait()
	close(out)

	results := make([]fetchResult, 0, len(fetches))
	for res := range out {
		results = append(results, res)
	}
	return results
}

// build normalizes raw items and assembles the generation's items, indexes
// and trigger set.
func (c *Coordinator) build(rawItems, rawOnDeck, rawRecent []catalog.RawItem) (*snapshot.Generation, error) {
	indexes := search.NewIndexSet()
	triggers := trigger.NewSet()

	items := make([]*catalog.Item, 0, len(rawItems))
	for _, raw := range rawItems {
		item := catalog.NewItem(raw)
		items = append(items, item)

		if err := indexes.Add(string(item.Type), item); err != nil {
			return nil, err
		}
		if item.ViewCount == 0 {
			if err := indexes.Add(search.CategoryNeverWatched, item); err != nil {
				return nil, err
			}
		}
		triggers.AddItem(item)
	}

	onDeck, err := c.buildSubset(indexes, search.CategoryOnDeck, rawOnDeck)
	if err != nil {
		return nil, err
	}
	recent, err := c.buildSubset(indexes, search.CategoryRecent, rawRecent)
	if err != nil {
		return nil, err
	}

	return snapshot.NewGeneration(items, onDeck, recent, indexes, triggers), nil
}

func (c *Coordinator) buildSubset(indexes *search.IndexSet, category string, raws []catalog.RawItem) ([]*catalog.Item, error) {
	items := make([]*catalog.Item, 0, len(raws))
	for _, raw := range raws {
		item := catalog.NewItem(raw)
		items = append(items, item)
		if err := indexes.Add(category, item); err != nil {
			return nil, err
		}
	}
	return items, nil
}

// swapTriggers replaces the speech collaborator's phrase set after a
// successful publish. Registration failure degrades future recognition but
// never invalidates the already-published generation.
func (c *Coordinator) swapTriggers(ctx context.Context, old, current *snapshot.Generation) {
	if c.triggers == nil {
		return
	}

	if old != nil && old.Triggers.Len() > 0 {
		if err := c.triggers.UnregisterAll(ctx, old.Triggers.IDs()); err != nil {
			c.logger.Warn().Err(err).Msg("Unregistering previous trigger set failed")
		}
	}
	if err := c.triggers.RegisterBatch(ctx, current.Triggers.Phrases()); err != nil {
		c.logger.Error().Err(err).Int("phrases", current.Triggers.Len()).
			Msg("Trigger registration failed; voice recognition will be degraded until the next refresh")
		return
	}
	c.logger.Info().Int("phrases", current.Triggers.Len()).Msg("Voice triggers registered")
}
