// Package voice turns a recognized speech query into exactly one playback
// command, asking clarifying questions when several catalog candidates
// remain plausible.
package voice

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/voxplay/voxplay/internal/catalog"
)

// Ask outcomes that are not answers. Both take the same path as an answer
// outside the allowed set: the flow voices an apology and aborts.
var (
	ErrCancelled = errors.New("clarification cancelled")
	ErrTimedOut  = errors.New("clarification timed out")
)

// errFlowSuperseded marks an answer that arrived after a newer speech query
// took over. The stale flow is dropped silently.
var errFlowSuperseded = errors.New("voice flow superseded")

// Question is one clarification round trip. FlowID ties the eventual
// answer back to the flow that asked; AllowedAnswers constrains the reply
// when non-nil.
type Question struct {
	FlowID         uuid.UUID
	Text           string
	AllowedAnswers []string
}

// Output voices text at the user.
type Output interface {
	Say(ctx context.Context, text string) error
}

// Input asks the user a clarifying question and returns the transcribed
// answer, ErrCancelled or ErrTimedOut.
type Input interface {
	Ask(ctx context.Context, q Question) (string, error)
}

// SessionSource reports the media items currently playing on the server.
type SessionSource interface {
	ActiveSessions(ctx context.Context) ([]catalog.RawItem, error)
}

// Refresher triggers a catalog rebuild, used by the "refresh" voice
// command.
type Refresher interface {
	Refresh(ctx context.Context) error
}
