package catalog

import (
	"fmt"
	"strings"
)

// MediaType identifies the kind of catalog entry.
type MediaType string

// Supported media types.
const (
	TypeMovie   MediaType = "movie"
	TypeEpisode MediaType = "episode"
)

// SupportedTypes lists the media types fetched during a catalog rebuild.
var SupportedTypes = []MediaType{TypeMovie, TypeEpisode}

// RawItem is the collaborator-defined shape of a catalog entry as returned
// by a CatalogSource, before normalization. Field names follow the media
// server's metadata container.
type RawItem struct {
	Key              string
	Type             string
	Title            string
	GrandparentTitle string
	TitleSort        string
	Index            int
	ParentIndex      int
	ViewCount        int
	ViewOffset       int64
}

// Item is one normalized catalog entry. Items are created during a cache
// rebuild and immutable afterward, except for Score which is a
// last-search-relevance annotation overwritten on each index query.
type Item struct {
	Key            string
	Type           MediaType
	Title          string
	PrimaryTitle   string
	SecondaryTitle string
	TitleSort      string

	// Episode-only fields.
	EpisodeTitle         string
	Season               string // "season N"
	EpisodeIndex         string // "episode N"
	CompoundEpisodeIndex int    // season*1000 + episode
	VerboseSearchTitle   string

	ViewOffset int64
	ViewCount  int
	Score      float64
}

// CompoundEpisodeIndex folds a (season, episode) pair into a single
// comparable integer. It strictly orders episodes within a series as long
// as season and episode numbers stay below 1000.
func CompoundEpisodeIndex(season, episode int) int {
	return season*1000 + episode
}

// NewItem builds a normalized catalog item from a raw entry. All title
// canonicalization happens here, once, so the indexing path and the voice
// trigger path see identical strings.
func NewItem(raw RawItem) *Item {
	item := &Item{
		Key:        raw.Key,
		Type:       MediaType(raw.Type),
		Title:      raw.Title,
		TitleSort:  raw.TitleSort,
		ViewOffset: raw.ViewOffset,
		ViewCount:  raw.ViewCount,
	}

	if item.Type == TypeEpisode {
		item.Title = raw.GrandparentTitle
		item.EpisodeTitle = cleanEpisodeTitle(raw.Title)
		item.Season = fmt.Sprintf("season %d", raw.ParentIndex)
		item.EpisodeIndex = fmt.Sprintf("episode %d", raw.Index)
		item.CompoundEpisodeIndex = CompoundEpisodeIndex(raw.ParentIndex, raw.Index)
	}

	item.PrimaryTitle, item.SecondaryTitle = SplitTitle(item.Title)
	item.Title = strings.Replace(item.Title, ": ", " ", 1)

	item.Title = Normalize(item.Title)
	item.PrimaryTitle = Normalize(item.PrimaryTitle)
	if item.SecondaryTitle != "" {
		item.SecondaryTitle = Normalize(item.SecondaryTitle)
	}

	if item.Type == TypeEpisode {
		item.VerboseSearchTitle = item.Title + " " + item.Season + " " + item.EpisodeIndex
	}

	return item
}
