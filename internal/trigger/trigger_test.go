package trigger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxplay/voxplay/internal/catalog"
)

func TestIDRoundTrip(t *testing.T) {
	tests := []struct {
		wire string
		want ID
	}{
		{"media|movie|inception-key", ID{Kind: KindMedia, MediaType: catalog.TypeMovie, Key: "inception-key"}},
		{"media|episode|office-s2e5", ID{Kind: KindMedia, MediaType: catalog.TypeEpisode, Key: "office-s2e5"}},
		{"command|watch", ID{Kind: KindCommand, Name: "watch"}},
		{"type|movie", ID{Kind: KindType, Name: "movie"}},
		{"server|living-room", ID{Kind: KindServer, Name: "living-room"}},
	}

	for _, tt := range tests {
		got, err := ParseID(tt.wire)
		require.NoError(t, err, tt.wire)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, tt.wire, got.String())
	}
}

func TestParseIDRejectsMalformed(t *testing.T) {
	for _, wire := range []string{"", "watch", "media|movie", "bogus|x"} {
		_, err := ParseID(wire)
		assert.Error(t, err, wire)
	}
}

func TestSetAddItemMovie(t *testing.T) {
	set := NewSet()
	set.AddItem(catalog.NewItem(catalog.RawItem{
		Key:       "tf3",
		Type:      "movie",
		Title:     "Transformers: Dark of the Moon",
		TitleSort: "Transformers Dark of the Moon",
	}))

	require.Equal(t, 1, set.Len())
	p := set.Phrases()[0]
	assert.Equal(t, "media|movie|tf3", p.ID.String())
	assert.Equal(t, mediaImportance, p.Importance)
	assert.Equal(t, []string{
		"Transformers Dark of the Moon",
		"Transformers",
		"Dark of the Moon",
		"Transformers Dark of the Moon",
	}, p.Phrases)
}

func TestSetAddItemEpisode(t *testing.T) {
	set := NewSet()
	set.AddItem(catalog.NewItem(catalog.RawItem{
		Key:              "office-s2e5",
		Type:             "episode",
		Title:            "Halloween",
		GrandparentTitle: "The Office",
		ParentIndex:      2,
		Index:            5,
	}))

	p := set.Phrases()[0]
	assert.Contains(t, p.Phrases, "The Office season 2 episode 5")
	assert.Contains(t, p.Phrases, "The Office Halloween")
	assert.Contains(t, p.Phrases, "The Office")
}

func TestSetIDs(t *testing.T) {
	set := NewSet()
	set.AddItem(catalog.NewItem(catalog.RawItem{Key: "a", Type: "movie", Title: "A"}))
	set.AddItem(catalog.NewItem(catalog.RawItem{Key: "b", Type: "movie", Title: "B"}))

	assert.Equal(t, []string{"media|movie|a", "media|movie|b"}, set.IDs())
}
