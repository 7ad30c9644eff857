// Package search provides the per-generation full-text indexes used to
// resolve voice phrases against the media catalog.
package search

import (
	"fmt"
	"strconv"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/voxplay/voxplay/internal/catalog"
)

// Well-known index categories. Type categories ("movie", "episode") are
// created lazily on first insert; these two are derived views.
const (
	CategoryNeverWatched = "neverwatched"
	CategoryOnDeck       = "ondeck"
	CategoryRecent       = "recent"
)

// Result is one ranked index hit. MatchText carries the stored display
// title of the hit, which downstream resolution compares against.
type Result struct {
	Key       string
	Score     float64
	MatchText string
}

// document is the indexed projection of a catalog item. The compound
// episode index is indexed as text so a spoken "title 2006" phrase matches
// it as a token.
type document struct {
	Title                string `json:"title"`
	EpisodeTitle         string `json:"episodeTitle"`
	EpisodeIndex         string `json:"episodeIndex"`
	CompoundEpisodeIndex string `json:"compoundEpisodeIndex"`
	VerboseSearchTitle   string `json:"verboseSearchTitle"`
	Season               string `json:"season"`
	Key                  string `json:"key"`
}

// fieldBoosts ranks fields by how strongly a match should score. Title and
// the verbose episode title dominate, the episode title helps, and the
// remaining fields are tie-breakers.
var fieldBoosts = []struct {
	field string
	boost float64
}{
	{"title", 10},
	{"verboseSearchTitle", 10},
	{"episodeTitle", 5},
	{"compoundEpisodeIndex", 3},
	{"episodeIndex", 1},
	{"season", 1},
	{"key", 1},
}

const maxResults = 25

// IndexSet holds the full-text indexes for one catalog generation: one per
// category plus an autocomplete index spanning every insert. An IndexSet is
// write-once; after the owning generation publishes it is only read.
type IndexSet struct {
	indexes      map[string]bleve.Index
	autocomplete bleve.Index
}

// NewIndexSet creates an empty index set.
func NewIndexSet() *IndexSet {
	return &IndexSet{indexes: make(map[string]bleve.Index)}
}

// Add inserts an item into the named category index and the shared
// autocomplete index. Category indexes are created on first use.
func (s *IndexSet) Add(category string, item *catalog.Item) error {
	idx, err := s.category(category)
	if err != nil {
		return err
	}

	doc := toDocument(item)
	if err := idx.Index(item.Key, doc); err != nil {
		return fmt.Errorf("index %s item %s: %w", category, item.Key, err)
	}

	if s.autocomplete == nil {
		s.autocomplete, err = newMemIndex()
		if err != nil {
			return err
		}
	}
	if err := s.autocomplete.Index(item.Key, doc); err != nil {
		return fmt.Errorf("index autocomplete item %s: %w", item.Key, err)
	}
	return nil
}

// Search runs a ranked query against one category. Results come back in
// descending score order; an unknown category yields no results.
func (s *IndexSet) Search(category, queryText string) ([]Result, error) {
	idx, ok := s.indexes[category]
	if !ok {
		return nil, nil
	}
	return runSearch(idx, queryText)
}

// Autocomplete searches the all-categories index. Used for interactive
// suggestions only, outside the disambiguation flow.
func (s *IndexSet) Autocomplete(queryText string) ([]Result, error) {
	if s.autocomplete == nil {
		return nil, nil
	}
	return runSearch(s.autocomplete, queryText)
}

// Close releases every index in the set. Called when the owning generation
// is superseded.
func (s *IndexSet) Close() error {
	var firstErr error
	for _, idx := range s.indexes {
		if err := idx.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.autocomplete != nil {
		if err := s.autocomplete.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *IndexSet) category(name string) (bleve.Index, error) {
	if idx, ok := s.indexes[name]; ok {
		return idx, nil
	}
	idx, err := newMemIndex()
	if err != nil {
		return nil, err
	}
	s.indexes[name] = idx
	return idx, nil
}

func newMemIndex() (bleve.Index, error) {
	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create memory index: %w", err)
	}
	return idx, nil
}

func toDocument(item *catalog.Item) document {
	doc := document{
		Title:              item.Title,
		EpisodeTitle:       item.EpisodeTitle,
		EpisodeIndex:       item.EpisodeIndex,
		VerboseSearchTitle: item.VerboseSearchTitle,
		Season:             item.Season,
		Key:                item.Key,
	}
	if item.Type == catalog.TypeEpisode {
		doc.CompoundEpisodeIndex = strconv.Itoa(item.CompoundEpisodeIndex)
	}
	return doc
}

func runSearch(idx bleve.Index, queryText string) ([]Result, error) {
	queries := make([]query.Query, 0, len(fieldBoosts))
	for _, fb := range fieldBoosts {
		mq := bleve.NewMatchQuery(queryText)
		mq.SetField(fb.field)
		mq.SetBoost(fb.boost)
		queries = append(queries, mq)
	}

	req := bleve.NewSearchRequest(bleve.NewDisjunctionQuery(queries...))
	req.Size = maxResults
	req.Fields = []string{"title", "verboseSearchTitle"}

	res, err := idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", queryText, err)
	}

	results := make([]Result, 0, len(res.Hits))
	for _, hit := range res.Hits {
		r := Result{Key: hit.ID, Score: hit.Score}
		if title, ok := hit.Fields["verboseSearchTitle"].(string); ok && title != "" {
			r.MatchText = title
		} else if title, ok := hit.Fields["title"].(string); ok {
			r.MatchText = title
		}
		results = append(results, r)
	}
	return results, nil
}
