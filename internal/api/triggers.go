package api

import (
	"context"
	"net/http"
	"sort"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/voxplay/voxplay/internal/trigger"
)

// TriggerRegistry implements trigger.Port for a speech recognizer that
// syncs its phrase vocabulary over HTTP. The refresh coordinator replaces
// the set after every catalog publish; the recognizer polls
// GET /api/v1/voice/triggers and reloads when the version stamp moves.
type TriggerRegistry struct {
	logger zerolog.Logger

	mu      sync.RWMutex
	phrases map[string]trigger.Phrase
	version int64
}

// NewTriggerRegistry creates an empty registry.
func NewTriggerRegistry(logger zerolog.Logger) *TriggerRegistry {
	return &TriggerRegistry{
		logger:  logger.With().Str("component", "triggers").Logger(),
		phrases: make(map[string]trigger.Phrase),
	}
}

// UnregisterAll implements trigger.Port. Unknown IDs are ignored so a
// retried swap stays safe.
func (r *TriggerRegistry) UnregisterAll(_ context.Context, ids []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range ids {
		delete(r.phrases, id)
	}
	r.version++
	return nil
}

// RegisterBatch implements trigger.Port. Phrases are keyed by wire-form
// ID; re-registering an ID replaces its phrases.
func (r *TriggerRegistry) RegisterBatch(_ context.Context, phrases []trigger.Phrase) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range phrases {
		r.phrases[p.ID.String()] = p
	}
	r.version++

	r.logger.Info().Int("phrases", len(phrases)).Int64("version", r.version).
		Msg("Trigger vocabulary replaced")
	return nil
}

type registeredTrigger struct {
	ID         string   `json:"id"`
	Importance float64  `json:"importance"`
	Phrases    []string `json:"phrases"`
}

type triggerListResponse struct {
	Version  int64               `json:"version"`
	Triggers []registeredTrigger `json:"triggers"`
}

// List serves the current vocabulary, ordered by ID for stable diffing on
// the recognizer side.
// GET /api/v1/voice/triggers
func (r *TriggerRegistry) List(c echo.Context) error {
	r.mu.RLock()
	version := r.version
	out := make([]registeredTrigger, 0, len(r.phrases))
	for id, p := range r.phrases {
		out = append(out, registeredTrigger{
			ID:         id,
			Importance: p.Importance,
			Phrases:    p.Phrases,
		})
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return c.JSON(http.StatusOK, triggerListResponse{Version: version, Triggers: out})
}
