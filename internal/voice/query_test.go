package voice

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxplay/voxplay/internal/catalog"
)

func TestBuildQuery(t *testing.T) {
	q := BuildQuery("watch the office", []string{"living room"}, nil, []Recognized{
		{ID: "command|watch", Text: "watch"},
		{ID: "type|episode", Text: "series"},
		{ID: "media|episode|office-s2e5", Text: "the office"},
		{ID: "garbage", Text: "ignored"},
	}, zerolog.Nop())

	assert.Equal(t, "watch the office", q.Transcript)
	assert.Equal(t, []string{"watch"}, q.Commands)
	assert.Equal(t, []string{"episode"}, q.Types)
	require.Len(t, q.Media, 1)
	assert.Equal(t, Candidate{Match: "the office", Type: catalog.TypeEpisode, Ref: "office-s2e5"}, q.Media[0])
}

func TestSpeechQueryHelpers(t *testing.T) {
	q := SpeechQuery{Commands: []string{"watch", "random"}, Types: []string{"movie", "episode"}}

	assert.True(t, q.HasCommand("watch"))
	assert.False(t, q.HasCommand("pause"))
	assert.True(t, q.HasType("movie"))
	assert.Equal(t, "episode", q.LastType())

	empty := SpeechQuery{}
	assert.Empty(t, empty.LastType())
}
