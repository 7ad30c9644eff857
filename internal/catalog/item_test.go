package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewItemMovie(t *testing.T) {
	item := NewItem(RawItem{
		Key:       "inception-key",
		Type:      "movie",
		Title:     "Inception",
		TitleSort: "Inception",
	})

	assert.Equal(t, TypeMovie, item.Type)
	assert.Equal(t, "Inception", item.Title)
	assert.Equal(t, "Inception", item.PrimaryTitle)
	assert.Empty(t, item.SecondaryTitle)
	assert.Zero(t, item.CompoundEpisodeIndex)
	assert.Empty(t, item.VerboseSearchTitle)
}

func TestNewItemMovieWithSubtitle(t *testing.T) {
	item := NewItem(RawItem{
		Key:   "tf3",
		Type:  "movie",
		Title: "Transformers: Dark of the Moon",
	})

	assert.Equal(t, "Transformers Dark of the Moon", item.Title)
	assert.Equal(t, "Transformers", item.PrimaryTitle)
	assert.Equal(t, "Dark of the Moon", item.SecondaryTitle)
}

func TestNewItemEpisode(t *testing.T) {
	item := NewItem(RawItem{
		Key:              "office-s2e5",
		Type:             "episode",
		Title:            "Halloween",
		GrandparentTitle: "The Office",
		Index:            5,
		ParentIndex:      2,
		ViewCount:        1,
	})

	require.Equal(t, TypeEpisode, item.Type)
	assert.Equal(t, "The Office", item.Title)
	assert.Equal(t, "Halloween", item.EpisodeTitle)
	assert.Equal(t, "season 2", item.Season)
	assert.Equal(t, "episode 5", item.EpisodeIndex)
	assert.Equal(t, 2005, item.CompoundEpisodeIndex)
	assert.Equal(t, "The Office season 2 episode 5", item.VerboseSearchTitle)
}

// Episode titles that just restate "episode" carry no voice signal.
func TestNewItemEpisodeTitleBlanked(t *testing.T) {
	item := NewItem(RawItem{
		Key:              "s1e1",
		Type:             "episode",
		Title:            "Episode 1",
		GrandparentTitle: "Broadchurch",
		Index:            1,
		ParentIndex:      1,
	})

	assert.Empty(t, item.EpisodeTitle)
}

func TestCompoundEpisodeIndex(t *testing.T) {
	assert.Equal(t, 2005, CompoundEpisodeIndex(2, 5))
	assert.Equal(t, 1001, CompoundEpisodeIndex(1, 1))

	// Ordering by compound index matches (season, episode) lexicographic order.
	pairs := [][2]int{{1, 1}, {1, 2}, {1, 10}, {2, 1}, {3, 7}}
	prev := -1
	for _, p := range pairs {
		cur := CompoundEpisodeIndex(p[0], p[1])
		assert.Greater(t, cur, prev)
		prev = cur
	}
}
