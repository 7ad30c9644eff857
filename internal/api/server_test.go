package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxplay/voxplay/internal/catalog"
	"github.com/voxplay/voxplay/internal/config"
	"github.com/voxplay/voxplay/internal/playback"
	"github.com/voxplay/voxplay/internal/refresh"
	"github.com/voxplay/voxplay/internal/search"
	"github.com/voxplay/voxplay/internal/snapshot"
	"github.com/voxplay/voxplay/internal/trigger"
	"github.com/voxplay/voxplay/internal/voice"
)

type fakePort struct {
	mu       sync.Mutex
	requests []playback.Request
}

func (f *fakePort) Dispatch(_ context.Context, req playback.Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return nil
}

func (f *fakePort) dispatched() []playback.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]playback.Request(nil), f.requests...)
}

type fakeDirectory struct {
	devices []playback.Device
}

func (f *fakeDirectory) InstalledDevices(class string) []playback.Device {
	out := make([]playback.Device, 0, len(f.devices))
	for _, d := range f.devices {
		if class == "" || d.Class == class {
			out = append(out, d)
		}
	}
	return out
}

func (f *fakeDirectory) LastSession(string) (*catalog.Item, bool) {
	return nil, false
}

type fakeCatalogSource struct {
	movies []catalog.RawItem
}

func (f *fakeCatalogSource) FetchByType(_ context.Context, t catalog.MediaType) ([]catalog.RawItem, error) {
	if t == catalog.TypeMovie {
		return f.movies, nil
	}
	return nil, nil
}

func (f *fakeCatalogSource) FetchOnDeck(context.Context) ([]catalog.RawItem, error) {
	return nil, nil
}

func (f *fakeCatalogSource) FetchRecentlyAdded(context.Context) ([]catalog.RawItem, error) {
	return nil, nil
}

func (f *fakeCatalogSource) RequestLibraryRefresh(context.Context) error {
	return nil
}

func buildGeneration(t *testing.T, raws []catalog.RawItem) *snapshot.Generation {
	t.Helper()

	indexes := search.NewIndexSet()
	triggers := trigger.NewSet()
	items := make([]*catalog.Item, 0, len(raws))
	for _, raw := range raws {
		item := catalog.NewItem(raw)
		items = append(items, item)
		require.NoError(t, indexes.Add(string(item.Type), item))
		triggers.AddItem(item)
	}
	return snapshot.NewGeneration(items, nil, nil, indexes, triggers)
}

type fixture struct {
	server *Server
	store  *snapshot.Store
	bridge *Bridge
	port   *fakePort
}

func newFixture(t *testing.T, raws []catalog.RawItem) *fixture {
	t.Helper()

	store := snapshot.NewStore()
	if raws != nil {
		store.Publish(buildGeneration(t, raws))
	}

	port := &fakePort{}
	dispatcher := playback.NewDispatcher(zerolog.Nop())
	dispatcher.RegisterClass(playback.ClassChromecast, port)

	devices := &fakeDirectory{devices: []playback.Device{
		{ID: "cc-1", Name: "Living Room TV", Class: playback.ClassChromecast},
	}}

	bridge := NewBridge(zerolog.Nop())
	bridge.SetAskTimeout(2 * time.Second)
	engine := voice.NewEngine(store, nil, dispatcher, devices, bridge, bridge, zerolog.Nop())

	server := NewServer(config.Default(), Dependencies{
		Store:   store,
		Engine:  engine,
		Bridge:  bridge,
		Devices: devices,
	}, zerolog.Nop())

	return &fixture{server: server, store: store, bridge: bridge, port: port}
}

func (f *fixture) request(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	f.server.Echo().ServeHTTP(rec, req)
	return rec
}

func catalogFixture() []catalog.RawItem {
	return []catalog.RawItem{
		{Key: "inception-key", Type: "movie", Title: "Inception"},
		{Key: "tf1", Type: "movie", Title: "Transformers"},
		{Key: "tf3", Type: "movie", Title: "Transformers: Dark of the Moon"},
		{Key: "office-s2e5", Type: "episode", Title: "Halloween",
			GrandparentTitle: "The Office", ParentIndex: 2, Index: 5},
	}
}

func TestHealthCheck(t *testing.T) {
	f := newFixture(t, catalogFixture())

	rec := f.request(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestStatusReportsCacheCounts(t *testing.T) {
	f := newFixture(t, catalogFixture())

	rec := f.request(t, http.MethodGet, "/api/v1/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var status map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, float64(4), status["itemCount"])
	assert.NotEmpty(t, status["cacheBuiltAt"])
}

func TestAutocomplete(t *testing.T) {
	f := newFixture(t, catalogFixture())

	rec := f.request(t, http.MethodGet, "/api/v1/search/autocomplete?query=inception", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var suggestions []suggestion
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &suggestions))
	require.Len(t, suggestions, 1)
	assert.Equal(t, "inception-key", suggestions[0].Key)
	assert.Equal(t, "Inception", suggestions[0].Name)
}

func TestAutocompleteEpisodeShaping(t *testing.T) {
	f := newFixture(t, catalogFixture())

	rec := f.request(t, http.MethodGet, "/api/v1/search/autocomplete?query=office&type=episode", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var suggestions []suggestion
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &suggestions))
	require.Len(t, suggestions, 1)
	assert.Equal(t, "The Office season 2 episode 5", suggestions[0].Name)
}

func TestAutocompleteRequiresQuery(t *testing.T) {
	f := newFixture(t, catalogFixture())

	rec := f.request(t, http.MethodGet, "/api/v1/search/autocomplete", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSpeechDirectPlay(t *testing.T) {
	f := newFixture(t, catalogFixture())

	body := `{
		"transcript": "watch inception",
		"recognized": [
			{"id": "command|watch", "text": "watch"},
			{"id": "media|movie|inception-key", "text": "inception"}
		]
	}`
	rec := f.request(t, http.MethodPost, "/api/v1/voice/speech", body)
	require.Equal(t, http.StatusOK, rec.Code)

	dispatched := f.port.dispatched()
	require.Len(t, dispatched, 1)
	assert.Equal(t, playback.CommandPlayItem, dispatched[0].Command)
	assert.Equal(t, "inception-key", dispatched[0].Item.Key)
	assert.Equal(t, "Living Room TV", dispatched[0].Device.Name)
}

func TestSpeechEmptyCatalog(t *testing.T) {
	f := newFixture(t, nil)

	body := `{"transcript": "watch inception", "recognized": [{"id": "command|watch", "text": "watch"}]}`
	rec := f.request(t, http.MethodPost, "/api/v1/voice/speech", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp speechResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Said, 1)
	assert.Equal(t, "I couldn't find any media items", resp.Said[0])
}

// A clarification travels through the question and answer endpoints while
// the original speech request stays in flight.
func TestSpeechClarificationRoundTrip(t *testing.T) {
	f := newFixture(t, catalogFixture())

	body := `{
		"transcript": "watch transformers",
		"recognized": [
			{"id": "command|watch", "text": "watch"},
			{"id": "media|movie|tf1", "text": "transformers"},
			{"id": "media|movie|tf3", "text": "transformers"}
		]
	}`

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		done <- f.request(t, http.MethodPost, "/api/v1/voice/speech", body)
	}()

	// Wait for the engine to park its question.
	var q questionResponse
	require.Eventually(t, func() bool {
		rec := f.request(t, http.MethodGet, "/api/v1/voice/question", "")
		if rec.Code != http.StatusOK {
			return false
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &q); err != nil {
			return false
		}
		return q.Pending
	}, 2*time.Second, 10*time.Millisecond)

	assert.Contains(t, q.Text, "matching results")
	require.NotEmpty(t, q.AllowedAnswers)

	answer := `{"flowId": "` + q.FlowID + `", "answer": "dark of the moon"}`
	rec := f.request(t, http.MethodPost, "/api/v1/voice/answer", answer)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	select {
	case rec := <-done:
		require.Equal(t, http.StatusOK, rec.Code)
	case <-time.After(3 * time.Second):
		t.Fatal("speech request did not finish")
	}

	dispatched := f.port.dispatched()
	require.Len(t, dispatched, 1)
	assert.Equal(t, "tf3", dispatched[0].Item.Key)
}

func TestAnswerWithoutQuestion(t *testing.T) {
	f := newFixture(t, catalogFixture())

	body := `{"flowId": "1b671a64-40d5-491e-99b0-da01ff1f3341", "answer": "series"}`
	rec := f.request(t, http.MethodPost, "/api/v1/voice/answer", body)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRefreshEndpoint(t *testing.T) {
	store := snapshot.NewStore()
	source := &fakeCatalogSource{movies: []catalog.RawItem{
		{Key: "inception-key", Type: "movie", Title: "Inception"},
	}}
	coordinator := refresh.NewCoordinator(source, store, nil, zerolog.Nop())

	server := NewServer(config.Default(), Dependencies{
		Store:       store,
		Coordinator: coordinator,
	}, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/refresh", nil)
	rec := httptest.NewRecorder()
	server.Echo().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, float64(1), resp["items"])
	assert.NotNil(t, store.Current())
}

// A rebuild wired to the registry must leave the new generation's phrase
// vocabulary readable over HTTP, replacing the previous generation's.
func TestTriggersEndpointTracksRefresh(t *testing.T) {
	store := snapshot.NewStore()
	source := &fakeCatalogSource{movies: []catalog.RawItem{
		{Key: "inception-key", Type: "movie", Title: "Inception"},
	}}
	registry := NewTriggerRegistry(zerolog.Nop())
	coordinator := refresh.NewCoordinator(source, store, registry, zerolog.Nop())

	server := NewServer(config.Default(), Dependencies{
		Store:       store,
		Coordinator: coordinator,
		Triggers:    registry,
	}, zerolog.Nop())
	f := &fixture{server: server, store: store}

	rec := f.request(t, http.MethodPost, "/api/v1/refresh", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.request(t, http.MethodGet, "/api/v1/voice/triggers", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var listed triggerListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed.Triggers, 1)
	assert.Equal(t, "media|movie|inception-key", listed.Triggers[0].ID)
	assert.Contains(t, listed.Triggers[0].Phrases, "Inception")
	firstVersion := listed.Version

	// The next generation carries a different catalog; the old vocabulary
	// must not survive the swap.
	source.movies = []catalog.RawItem{
		{Key: "tf1", Type: "movie", Title: "Transformers"},
	}
	rec = f.request(t, http.MethodPost, "/api/v1/refresh", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.request(t, http.MethodGet, "/api/v1/voice/triggers", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed.Triggers, 1)
	assert.Equal(t, "media|movie|tf1", listed.Triggers[0].ID)
	assert.Greater(t, listed.Version, firstVersion)
}

func TestTriggerRegistryUnregisterIsSelective(t *testing.T) {
	registry := NewTriggerRegistry(zerolog.Nop())

	set := trigger.NewSet()
	for _, raw := range catalogFixture() {
		set.AddItem(catalog.NewItem(raw))
	}
	require.NoError(t, registry.RegisterBatch(context.Background(), set.Phrases()))
	require.NoError(t, registry.UnregisterAll(context.Background(), []string{"media|movie|tf1", "media|movie|tf3"}))

	rec := httptest.NewRecorder()
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, registry.List(c))

	var listed triggerListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed.Triggers, 2)
	assert.Equal(t, "media|episode|office-s2e5", listed.Triggers[0].ID)
	assert.Equal(t, "media|movie|inception-key", listed.Triggers[1].ID)
}

func TestBridgeAskTimesOut(t *testing.T) {
	bridge := NewBridge(zerolog.Nop())
	bridge.SetAskTimeout(20 * time.Millisecond)

	_, err := bridge.Ask(context.Background(), voice.Question{Text: "which one?"})
	assert.ErrorIs(t, err, voice.ErrTimedOut)
}

func TestBridgeAnswerWrongFlow(t *testing.T) {
	bridge := NewBridge(zerolog.Nop())
	bridge.SetAskTimeout(100 * time.Millisecond)

	go func() {
		time.Sleep(10 * time.Millisecond)
		// Stale flow IDs never reach the parked question.
		assert.ErrorIs(t, bridge.Answer(uuid.New(), "ignored"), ErrNoPendingQuestion)
	}()

	_, err := bridge.Ask(context.Background(), voice.Question{FlowID: uuid.New(), Text: "which one?"})
	assert.ErrorIs(t, err, voice.ErrTimedOut)
}
