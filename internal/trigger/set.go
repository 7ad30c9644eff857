package trigger

import (
	"context"

	"github.com/voxplay/voxplay/internal/catalog"
)

// mediaImportance is the recognition weight given to media phrases.
const mediaImportance = 0.7

// Phrase is one registered trigger: an ID plus the spoken phrases that
// resolve to it.
type Phrase struct {
	ID         ID
	Importance float64
	Phrases    []string
}

// Port is the speech collaborator boundary. RegisterBatch replaces phrase
// recognition for the given set; UnregisterAll removes previously
// registered IDs.
type Port interface {
	UnregisterAll(ctx context.Context, ids []string) error
	RegisterBatch(ctx context.Context, phrases []Phrase) error
}

// Set holds the trigger phrases for one catalog generation. A set is
// rebuilt whole on every refresh; there is no incremental patching, which
// keeps stale phrases from leaking across generations.
type Set struct {
	phrases []Phrase
}

// NewSet creates an empty trigger set.
func NewSet() *Set {
	return &Set{}
}

// AddItem derives the spoken phrases for a catalog item and records them.
// The item's titles are already normalized, so the phrases match what the
// query path produces.
func (s *Set) AddItem(item *catalog.Item) {
	var phrases []string

	if item.Type == catalog.TypeEpisode {
		phrases = append(phrases, item.Title+" "+item.Season+" "+item.EpisodeIndex)
	}
	if item.EpisodeTitle != "" {
		phrases = append(phrases, item.Title+" "+item.EpisodeTitle)
	}
	if item.Title != "" {
		phrases = append(phrases, item.Title)
	}
	if item.PrimaryTitle != "" && item.PrimaryTitle != item.Title {
		phrases = append(phrases, item.PrimaryTitle)
	}
	if item.SecondaryTitle != "" {
		phrases = append(phrases, item.SecondaryTitle)
	}
	if item.TitleSort != "" {
		phrases = append(phrases, item.TitleSort)
	}

	s.phrases = append(s.phrases, Phrase{
		ID:         MediaID(item),
		Importance: mediaImportance,
		Phrases:    phrases,
	})
}

// Phrases returns the derived phrase set.
func (s *Set) Phrases() []Phrase {
	return s.phrases
}

// IDs returns the wire-form IDs of every phrase in the set, as needed for a
// later UnregisterAll.
func (s *Set) IDs() []string {
	ids := make([]string, len(s.phrases))
	for i, p := range s.phrases {
		ids[i] = p.ID.String()
	}
	return ids
}

// Len returns the number of registered phrases.
func (s *Set) Len() int {
	return len(s.phrases)
}
