package voice

import (
	"github.com/rs/zerolog"

	"github.com/voxplay/voxplay/internal/catalog"
	"github.com/voxplay/voxplay/internal/playback"
	"github.com/voxplay/voxplay/internal/trigger"
)

// Voice command names, as registered with the speech collaborator.
const (
	CommandWatch            = "watch"
	CommandPause            = "pause"
	CommandContinue         = "continue"
	CommandStop             = "stop"
	CommandRefresh          = "refresh"
	CommandCurrentlyPlaying = "currentlyplaying"
	CommandNextEpisode      = "watchnextepisode"
	CommandPreviousEpisode  = "watchpreviousepisode"
	CommandRandom           = "random"
	CommandLatest           = "latest"
	CommandFirst            = "first"
)

// Candidate is one media item the speech collaborator recognized in the
// utterance: the matched text plus the item reference it was registered
// under.
type Candidate struct {
	Match string
	Type  catalog.MediaType
	Ref   string
}

// Recognized is one fired trigger as delivered by the collaborator: the
// wire-form trigger ID plus the utterance fragment that fired it.
type Recognized struct {
	ID   string
	Text string
}

// SpeechQuery is the parsed form of one spoken request.
type SpeechQuery struct {
	Transcript string
	Zones      []string
	Commands   []string
	Types      []string
	Media      []Candidate
	Devices    []playback.Device
}

// HasCommand reports whether the named command was recognized.
func (q *SpeechQuery) HasCommand(name string) bool {
	for _, c := range q.Commands {
		if c == name {
			return true
		}
	}
	return false
}

// HasType reports whether the named media type hint was recognized.
func (q *SpeechQuery) HasType(name string) bool {
	for _, t := range q.Types {
		if t == name {
			return true
		}
	}
	return false
}

// LastType returns the most recent type hint, or "" when none was
// recognized.
func (q *SpeechQuery) LastType() string {
	if len(q.Types) == 0 {
		return ""
	}
	return q.Types[len(q.Types)-1]
}

// BuildQuery parses fired triggers into a SpeechQuery. Trigger IDs are
// decoded here, once, at the collaborator boundary; malformed IDs are
// logged and skipped.
func BuildQuery(transcript string, zones []string, devices []playback.Device, triggers []Recognized, logger zerolog.Logger) SpeechQuery {
	q := SpeechQuery{
		Transcript: transcript,
		Zones:      zones,
		Devices:    devices,
	}

	for _, rec := range triggers {
		id, err := trigger.ParseID(rec.ID)
		if err != nil {
			logger.Warn().Str("trigger", rec.ID).Err(err).Msg("Skipping malformed trigger id")
			continue
		}

		switch id.Kind {
		case trigger.KindCommand:
			q.Commands = append(q.Commands, id.Name)
		case trigger.KindType:
			q.Types = append(q.Types, id.Name)
		case trigger.KindMedia:
			q.Media = append(q.Media, Candidate{
				Match: rec.Text,
				Type:  id.MediaType,
				Ref:   id.Key,
			})
		case trigger.KindServer:
			// Server switching by voice is not supported.
		}
	}

	return q
}
