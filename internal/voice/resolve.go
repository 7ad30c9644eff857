package voice

import (
	"github.com/voxplay/voxplay/internal/catalog"
	"github.com/voxplay/voxplay/internal/search"
)

// LongestMatches keeps only the candidates whose matched text length equals
// the maximum across the input. Longer recognized text means a more
// specific match; ties are kept together. A single-element input comes back
// unchanged.
func LongestMatches(candidates []Candidate) []Candidate {
	if len(candidates) < 2 {
		return candidates
	}

	var longest []Candidate
	control := 0
	for _, c := range candidates {
		switch {
		case len(c.Match) > control:
			longest = longest[:0]
			longest = append(longest, c)
			control = len(c.Match)
		case len(c.Match) == control:
			longest = append(longest, c)
		}
	}
	return longest
}

// BestResult returns the highest-scoring index result, first encountered
// winning ties. Nil for an empty input.
func BestResult(results []search.Result) *search.Result {
	var best *search.Result
	for i := range results {
		if best == nil || results[i].Score > best.Score {
			best = &results[i]
		}
	}
	return best
}

// itemsFromResults joins index results back into a selection by key,
// annotating each matched item with its relevance score. The selection's
// order and type are preserved.
func itemsFromResults(results []search.Result, selection []*catalog.Item) []*catalog.Item {
	scores := make(map[string]float64, len(results))
	for _, r := range results {
		scores[r.Key] = r.Score
	}

	var out []*catalog.Item
	for _, item := range selection {
		if score, ok := scores[item.Key]; ok {
			item.Score = score
			out = append(out, item)
		}
	}
	return out
}

// candidatesToItems resolves candidate refs against a generation's key
// table, dropping refs that no longer resolve.
func candidatesToItems(candidates []Candidate, lookup func(string) (*catalog.Item, bool)) []*catalog.Item {
	var out []*catalog.Item
	for _, c := range candidates {
		if item, ok := lookup(c.Ref); ok {
			out = append(out, item)
		}
	}
	return out
}
