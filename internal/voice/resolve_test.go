package voice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxplay/voxplay/internal/catalog"
	"github.com/voxplay/voxplay/internal/search"
)

func TestLongestMatches(t *testing.T) {
	candidates := []Candidate{
		{Match: "transformers", Ref: "tf1"},
		{Match: "transformers dark of the moon", Ref: "tf3"},
		{Match: "transformers", Ref: "tf2"},
	}

	longest := LongestMatches(candidates)
	require.Len(t, longest, 1)
	assert.Equal(t, "tf3", longest[0].Ref)
}

func TestLongestMatchesKeepsTies(t *testing.T) {
	candidates := []Candidate{
		{Match: "the office", Ref: "a"},
		{Match: "the office", Ref: "b"},
		{Match: "office", Ref: "c"},
	}

	longest := LongestMatches(candidates)
	require.Len(t, longest, 2)
	assert.Equal(t, "a", longest[0].Ref)
	assert.Equal(t, "b", longest[1].Ref)
}

func TestLongestMatchesSingleInput(t *testing.T) {
	in := []Candidate{{Match: "x", Ref: "only"}}
	assert.Equal(t, in, LongestMatches(in))
	assert.Empty(t, LongestMatches(nil))
}

func TestBestResult(t *testing.T) {
	results := []search.Result{
		{Key: "a", Score: 0.4},
		{Key: "b", Score: 0.9},
		{Key: "c", Score: 0.9},
	}

	best := BestResult(results)
	require.NotNil(t, best)
	assert.Equal(t, "b", best.Key)

	assert.Nil(t, BestResult(nil))
}

func TestItemsFromResults(t *testing.T) {
	selection := []*catalog.Item{
		{Key: "a", Type: catalog.TypeEpisode},
		{Key: "b", Type: catalog.TypeEpisode},
	}
	results := []search.Result{{Key: "b", Score: 1.5}, {Key: "z", Score: 2.0}}

	got := itemsFromResults(results, selection)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].Key)
	assert.Equal(t, 1.5, got[0].Score)
}
