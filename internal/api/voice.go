package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/voxplay/voxplay/internal/playback"
	"github.com/voxplay/voxplay/internal/voice"
)

// ErrNoPendingQuestion reports an answer that matches no parked question.
var ErrNoPendingQuestion = errors.New("no matching pending question")

const defaultAskTimeout = 60 * time.Second

// Bridge adapts the voice engine's say/ask contract to HTTP. It serves one
// utterance at a time: Say output accumulates for the current flow, Ask
// parks a question until the client answers it or the wait times out.
type Bridge struct {
	logger  zerolog.Logger
	timeout time.Duration

	mu      sync.Mutex
	said    []string
	pending *pendingAsk
}

type pendingAsk struct {
	question voice.Question
	answer   chan string
}

// NewBridge creates a bridge with the default clarification timeout.
func NewBridge(logger zerolog.Logger) *Bridge {
	return &Bridge{
		logger:  logger.With().Str("component", "voicebridge").Logger(),
		timeout: defaultAskTimeout,
	}
}

// SetAskTimeout overrides how long Ask waits for an answer.
func (b *Bridge) SetAskTimeout(d time.Duration) {
	b.timeout = d
}

// Say implements voice.Output.
func (b *Bridge) Say(_ context.Context, text string) error {
	b.mu.Lock()
	b.said = append(b.said, text)
	b.mu.Unlock()

	b.logger.Info().Str("text", text).Msg("Voice output")
	return nil
}

// Ask implements voice.Input. The question is exposed via Question until
// Answer delivers a reply or the timeout elapses.
func (b *Bridge) Ask(ctx context.Context, q voice.Question) (string, error) {
	ask := &pendingAsk{question: q, answer: make(chan string, 1)}

	b.mu.Lock()
	b.pending = ask
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		if b.pending == ask {
			b.pending = nil
		}
		b.mu.Unlock()
	}()

	select {
	case answer := <-ask.answer:
		return answer, nil
	case <-time.After(b.timeout):
		return "", voice.ErrTimedOut
	case <-ctx.Done():
		return "", voice.ErrCancelled
	}
}

// Question returns the currently parked clarification, if any.
func (b *Bridge) Question() (voice.Question, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pending == nil {
		return voice.Question{}, false
	}
	return b.pending.question, true
}

// Answer delivers a reply to the parked question with the given flow ID.
func (b *Bridge) Answer(flowID uuid.UUID, text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pending == nil || b.pending.question.FlowID != flowID {
		return ErrNoPendingQuestion
	}
	b.pending.answer <- text
	b.pending = nil
	return nil
}

// resetSaid clears the spoken-output capture before a new flow.
func (b *Bridge) resetSaid() {
	b.mu.Lock()
	b.said = nil
	b.mu.Unlock()
}

// drainSaid returns and clears everything voiced since the last reset.
func (b *Bridge) drainSaid() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	said := b.said
	b.said = nil
	return said
}

// VoiceHandlers exposes the disambiguation engine over HTTP.
type VoiceHandlers struct {
	engine  *voice.Engine
	bridge  *Bridge
	devices playback.Directory
	logger  zerolog.Logger
}

// NewVoiceHandlers creates the voice endpoint handlers.
func NewVoiceHandlers(engine *voice.Engine, bridge *Bridge, devices playback.Directory, logger zerolog.Logger) *VoiceHandlers {
	return &VoiceHandlers{
		engine:  engine,
		bridge:  bridge,
		devices: devices,
		logger:  logger.With().Str("component", "voiceapi").Logger(),
	}
}

// RegisterRoutes registers voice routes on an Echo group.
func (h *VoiceHandlers) RegisterRoutes(g *echo.Group) {
	g.POST("/speech", h.Speech)
	g.GET("/question", h.PendingQuestion)
	g.POST("/answer", h.Answer)
}

type recognizedTrigger struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type speechRequest struct {
	Transcript string              `json:"transcript"`
	Zones      []string            `json:"zones"`
	Recognized []recognizedTrigger `json:"recognized"`
}

type speechResponse struct {
	Said []string `json:"said"`
}

// Speech resolves one spoken request. The response carries everything the
// engine voiced while handling it; a clarification round trip happens
// through the question/answer endpoints while this request is in flight.
// POST /api/v1/voice/speech
func (h *VoiceHandlers) Speech(c echo.Context) error {
	var req speechRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	recognized := make([]voice.Recognized, 0, len(req.Recognized))
	for _, r := range req.Recognized {
		recognized = append(recognized, voice.Recognized{ID: r.ID, Text: r.Text})
	}

	q := voice.BuildQuery(req.Transcript, req.Zones, h.zoneDevices(req.Zones), recognized, h.logger)

	h.bridge.resetSaid()
	h.engine.HandleSpeech(c.Request().Context(), q)

	return c.JSON(http.StatusOK, speechResponse{Said: h.bridge.drainSaid()})
}

type questionResponse struct {
	Pending        bool     `json:"pending"`
	FlowID         string   `json:"flowId,omitempty"`
	Text           string   `json:"text,omitempty"`
	AllowedAnswers []string `json:"allowedAnswers,omitempty"`
}

// PendingQuestion returns the clarification currently waiting for a reply.
// GET /api/v1/voice/question
func (h *VoiceHandlers) PendingQuestion(c echo.Context) error {
	q, ok := h.bridge.Question()
	if !ok {
		return c.JSON(http.StatusOK, questionResponse{})
	}
	return c.JSON(http.StatusOK, questionResponse{
		Pending:        true,
		FlowID:         q.FlowID.String(),
		Text:           q.Text,
		AllowedAnswers: q.AllowedAnswers,
	})
}

type answerRequest struct {
	FlowID string `json:"flowId"`
	Answer string `json:"answer"`
}

// Answer replies to a pending clarification.
// POST /api/v1/voice/answer
func (h *VoiceHandlers) Answer(c echo.Context) error {
	var req answerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	flowID, err := uuid.Parse(req.FlowID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid flow id")
	}

	if err := h.bridge.Answer(flowID, req.Answer); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// zoneDevices maps spoken zone names to installed devices by name.
func (h *VoiceHandlers) zoneDevices(zones []string) []playback.Device {
	if h.devices == nil || len(zones) == 0 {
		return nil
	}

	installed := h.devices.InstalledDevices("")
	var out []playback.Device
	for _, zone := range zones {
		for _, dev := range installed {
			if strings.EqualFold(dev.Name, zone) {
				out = append(out, dev)
			}
		}
	}
	return out
}
