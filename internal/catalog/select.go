package catalog

import "strings"

// FilterByField returns the items whose named field equals value,
// case-insensitively. Unknown fields and empty values match nothing.
func FilterByField(field, value string, items []*Item) []*Item {
	var out []*Item
	if value == "" {
		return out
	}
	for _, item := range items {
		got := item.FieldValue(field)
		if got != "" && strings.EqualFold(got, value) {
			out = append(out, item)
		}
	}
	return out
}

// FieldValue returns the named string field of an item, or "" when the
// field is unknown. Used by clarification answers which match against
// user-visible title fields.
func (i *Item) FieldValue(field string) string {
	switch field {
	case "title":
		return i.Title
	case "primaryTitle":
		return i.PrimaryTitle
	case "secondaryTitle":
		return i.SecondaryTitle
	case "episodeTitle":
		return i.EpisodeTitle
	case "titleSort":
		return i.TitleSort
	case "type":
		return string(i.Type)
	case "key":
		return i.Key
	}
	return ""
}

// FieldValues collects the lowercase values of the named field across a
// selection, skipping items where the field is empty.
func FieldValues(field string, items []*Item) []string {
	var out []string
	for _, item := range items {
		if v := item.FieldValue(field); v != "" {
			out = append(out, strings.ToLower(v))
		}
	}
	return out
}

// LowestEpisode returns the item with the smallest compound episode index.
// Ties keep the first item encountered. Returns nil for an empty selection.
func LowestEpisode(items []*Item) *Item {
	var lowest *Item
	for _, item := range items {
		if lowest == nil || item.CompoundEpisodeIndex < lowest.CompoundEpisodeIndex {
			lowest = item
		}
	}
	return lowest
}

// NewestEpisode returns the item with the largest compound episode index.
// Ties keep the first item encountered. Returns nil for an empty selection.
func NewestEpisode(items []*Item) *Item {
	var newest *Item
	for _, item := range items {
		if newest == nil || item.CompoundEpisodeIndex > newest.CompoundEpisodeIndex {
			newest = item
		}
	}
	return newest
}

// IntersectByKey returns the members of candidates whose key appears in the
// selection, preserving candidate order.
func IntersectByKey(selection, candidates []*Item) []*Item {
	keys := make(map[string]struct{}, len(selection))
	for _, item := range selection {
		keys[item.Key] = struct{}{}
	}
	var out []*Item
	for _, item := range candidates {
		if _, ok := keys[item.Key]; ok {
			out = append(out, item)
		}
	}
	return out
}
