package voice

import (
	"context"
	"errors"
	"math/rand"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/voxplay/voxplay/internal/catalog"
	"github.com/voxplay/voxplay/internal/playback"
	"github.com/voxplay/voxplay/internal/search"
	"github.com/voxplay/voxplay/internal/snapshot"
)

// Engine is the disambiguation state machine. Each HandleSpeech call is one
// flow: it captures the current catalog generation at entry and uses it
// throughout, so a concurrent rebuild never splices old and new state into
// the same resolution.
type Engine struct {
	store     *snapshot.Store
	sessions  SessionSource
	player    *playback.Dispatcher
	devices   playback.Directory
	refresher Refresher
	in        Input
	out       Output
	logger    zerolog.Logger

	mu         sync.Mutex
	activeFlow uuid.UUID

	randIntn func(n int) int
}

// NewEngine creates a disambiguation engine.
func NewEngine(store *snapshot.Store, sessions SessionSource, player *playback.Dispatcher, devices playback.Directory, in Input, out Output, logger zerolog.Logger) *Engine {
	return &Engine{
		store:    store,
		sessions: sessions,
		player:   player,
		devices:  devices,
		in:       in,
		out:      out,
		logger:   logger.With().Str("component", "voice").Logger(),
		randIntn: rand.Intn,
	}
}

// SetRefresher wires the catalog refresher used by the "refresh" command.
func (e *Engine) SetRefresher(r Refresher) {
	e.refresher = r
}

// HandleSpeech resolves one spoken request. It terminates with exactly one
// of: a dispatched playback command, a voiced clarification exchange, or a
// voiced failure message.
func (e *Engine) HandleSpeech(ctx context.Context, q SpeechQuery) {
	flow := e.beginFlow()

	gen := e.store.Current()
	if gen.Empty() {
		e.say(ctx, "I couldn't find any media items")
		return
	}

	if len(q.Devices) == 0 {
		if !e.pickDefaultDevice(ctx, &q) {
			return
		}
	}

	switch {
	case q.HasCommand(CommandPause):
		e.dispatch(ctx, q, playback.CommandPause, nil)
	case q.HasCommand(CommandContinue):
		e.dispatch(ctx, q, playback.CommandPlay, nil)
	case q.HasCommand(CommandStop):
		e.dispatch(ctx, q, playback.CommandStop, nil)
	case q.HasCommand(CommandRefresh):
		e.runRefresh(ctx)
	case q.HasCommand(CommandCurrentlyPlaying):
		e.describeCurrent(ctx, q)
	case q.HasCommand(CommandWatch):
		e.resolveWatch(ctx, flow, gen, q)
	default:
		e.logger.Debug().Strs("commands", q.Commands).Msg("No actionable command recognized")
	}
}

// resolveWatch handles the "watch" intent. Branches are evaluated in strict
// precedence order; the first one that applies terminates the flow.
func (e *Engine) resolveWatch(ctx context.Context, flow uuid.UUID, gen *snapshot.Generation, q SpeechQuery) {
	if q.HasCommand(CommandNextEpisode) {
		e.playAdjacentEpisode(ctx, gen, q, +1)
		return
	}
	if q.HasCommand(CommandPreviousEpisode) {
		e.playAdjacentEpisode(ctx, gen, q, -1)
		return
	}

	if len(q.Media) == 0 && q.HasCommand(CommandRandom) && q.HasType(string(catalog.TypeMovie)) {
		movies := gen.ItemsByType(catalog.TypeMovie)
		if len(movies) == 0 {
			e.say(ctx, "I couldn't find any media items")
			return
		}
		e.say(ctx, "Playing random movie from your collection!")
		e.playItem(ctx, q, movies[e.randIntn(len(movies))])
		return
	}

	switch {
	case len(q.Media) == 1:
		item, ok := gen.ItemByKey(q.Media[0].Ref)
		if !ok {
			e.logger.Error().Str("ref", q.Media[0].Ref).Msg("Recognized media ref missing from generation")
			e.say(ctx, apology)
			return
		}
		e.logger.Info().Str("title", item.Title).Msg("Single candidate, playing directly")
		e.playItem(ctx, q, item)

	case len(q.Media) > 1:
		e.narrowCandidates(ctx, flow, gen, q)

	default:
		if len(q.Types) == 0 {
			unknown := strings.TrimSpace(strings.Replace(q.Transcript, "watch", "", 1))
			e.say(ctx, "Sorry, I don't know what you mean with "+unknown)
		}
	}
}

// narrowCandidates applies longest-match narrowing, type partitioning and,
// when nothing else settles it, the "movie or series?" question.
func (e *Engine) narrowCandidates(ctx context.Context, flow uuid.UUID, gen *snapshot.Generation, q SpeechQuery) {
	longest := LongestMatches(q.Media)
	e.logger.Debug().
		Int("candidates", len(q.Media)).
		Int("longest", len(longest)).
		Msg("Narrowed candidates by match length")

	if len(longest) == 1 {
		if item, ok := gen.ItemByKey(longest[0].Ref); ok {
			e.playItem(ctx, q, item)
			return
		}
	}

	selection := candidatesToItems(longest, gen.ItemByKey)
	series := catalog.FilterByField("type", string(catalog.TypeEpisode), selection)
	movies := catalog.FilterByField("type", string(catalog.TypeMovie), selection)
	lastType := q.LastType()

	if lastType == string(catalog.TypeMovie) && len(movies) == 1 {
		e.playItem(ctx, q, movies[0])
		return
	}
	if lastType == string(catalog.TypeEpisode) && len(series) == 1 {
		e.playItem(ctx, q, series[0])
		return
	}

	if q.HasCommand(CommandRandom) {
		if lastType == string(catalog.TypeEpisode) && len(series) > 0 {
			e.playItem(ctx, q, series[e.randIntn(len(series))])
			return
		}
		if lastType == string(catalog.TypeMovie) && len(movies) > 0 {
			e.playItem(ctx, q, movies[e.randIntn(len(movies))])
			return
		}
	}

	var remaining []*catalog.Item
	if len(series) == 0 || len(movies) == 0 {
		remaining = series
		if len(remaining) == 0 {
			remaining = movies
		}
		if lastType == "" && len(remaining) > 0 {
			if len(series) > 0 {
				lastType = string(catalog.TypeEpisode)
			} else {
				lastType = string(catalog.TypeMovie)
			}
		}
	}

	if len(remaining) == 0 && lastType == "" {
		// Mixed movie/episode result with no type hint: the user decides.
		answer, ok := e.askConstrained(ctx, flow,
			"Would you like to watch a movie or a series?",
			[]string{"movie", "series"})
		if !ok {
			return
		}
		if answer == "movie" {
			remaining = movies
		} else {
			remaining = series
		}
		e.resolveSingle(ctx, flow, gen, remaining, q)
		return
	}

	switch lastType {
	case string(catalog.TypeMovie):
		e.resolveSingle(ctx, flow, gen, movies, q)
	case string(catalog.TypeEpisode):
		e.resolveSingle(ctx, flow, gen, series, q)
	}
}

// resolveSingle reduces a homogeneous-type selection to one item. The
// selection is all movies or all episodes.
func (e *Engine) resolveSingle(ctx context.Context, flow uuid.UUID, gen *snapshot.Generation, selection []*catalog.Item, q SpeechQuery) {
	if len(selection) == 0 {
		e.logger.Error().Msg("Empty selection in single-result resolution; trigger registration is likely inconsistent")
		return
	}
	if len(selection) == 1 {
		e.playItem(ctx, q, selection[0])
		return
	}

	speechMatch := ""
	if longest := LongestMatches(q.Media); len(longest) > 0 {
		speechMatch = longest[0].Match
	}

	if selection[0].Type == catalog.TypeMovie {
		e.resolveMovies(ctx, flow, selection, speechMatch, q)
		return
	}
	e.resolveEpisodes(ctx, flow, gen, selection, speechMatch, q)
}

// resolveMovies asks which of several same-phrase movies to play,
// enumerating secondary titles ("dark of the moon", "revenge of the
// fallen", ...) as the spoken options.
func (e *Engine) resolveMovies(ctx context.Context, flow uuid.UUID, selection []*catalog.Item, speechMatch string, q SpeechQuery) {
	var titles []string
	if len(selection) < 5 {
		titles = catalog.FieldValues("title", selection)
	}

	secondary := catalog.FieldValues("secondaryTitle", selection)
	secondary = append(secondary, speechMatch)

	question := "I found " + strconv.Itoa(len(selection)) + " matching results for " + speechMatch +
		". Which would you like to watch? " + strings.Join(secondary, ",") + "?"

	answer, ok := e.askConstrained(ctx, flow, question, append(titles, secondary...))
	if !ok {
		return
	}

	selected := catalog.FilterByField("title", answer, selection)
	if len(selected) == 0 {
		selected = catalog.FilterByField("secondaryTitle", answer, selection)
	}
	if len(selected) == 0 {
		e.say(ctx, "Sorry, I couldn't find a match for "+answer+". Please start over")
		return
	}
	e.playItem(ctx, q, selected[0])
}

// resolveEpisodes works through the episode tie-break ladder: explicit
// latest/first/random commands, the on-deck subset, the recently-added
// subset, the never-watched index, and finally an open question.
func (e *Engine) resolveEpisodes(ctx context.Context, flow uuid.UUID, gen *snapshot.Generation, selection []*catalog.Item, speechMatch string, q SpeechQuery) {
	if q.HasCommand(CommandLatest) {
		if newest := catalog.NewestEpisode(selection); newest != nil {
			e.say(ctx, "Okay, playing the most recent episode of "+speechMatch)
			e.playItem(ctx, q, newest)
			return
		}
	}
	if q.HasCommand(CommandFirst) {
		if lowest := catalog.LowestEpisode(selection); lowest != nil {
			e.say(ctx, "Okay, playing the oldest episode of "+speechMatch)
			e.playItem(ctx, q, lowest)
			return
		}
	}
	if q.HasCommand(CommandRandom) {
		e.playItem(ctx, q, selection[e.randIntn(len(selection))])
		return
	}

	if e.playFromSubset(ctx, q, catalog.IntersectByKey(selection, gen.OnDeck)) {
		return
	}
	if e.playFromSubset(ctx, q, catalog.IntersectByKey(selection, gen.Recent)) {
		return
	}

	neverResults, err := gen.Indexes.Search(search.CategoryNeverWatched, speechMatch)
	if err != nil {
		e.logger.Warn().Err(err).Msg("Never-watched index search failed")
	}
	if e.playFromSubset(ctx, q, itemsFromResults(neverResults, selection)) {
		return
	}

	e.logger.Info().Int("remaining", len(selection)).Msg("Episode heuristics exhausted, asking for more detail")
	e.askEpisodeDetail(ctx, flow, gen, selection, speechMatch, q)
}

// playFromSubset plays the single member of a subset, or the lowest episode
// when several remain. False when the subset is empty.
func (e *Engine) playFromSubset(ctx context.Context, q SpeechQuery, subset []*catalog.Item) bool {
	switch {
	case len(subset) == 1:
		e.playItem(ctx, q, subset[0])
		return true
	case len(subset) > 1:
		e.playItem(ctx, q, catalog.LowestEpisode(subset))
		return true
	}
	return false
}

// askEpisodeDetail is the last stop: an open question whose answer is
// scanned for keyword families, then used as extra search terms.
func (e *Engine) askEpisodeDetail(ctx context.Context, flow uuid.UUID, gen *snapshot.Generation, selection []*catalog.Item, speechMatch string, q SpeechQuery) {
	question := "Sorry, I do not have enough information to find what you want to watch. " +
		"Do you have any more information on what episode of " + speechMatch + " you want to watch?"

	answer, err := e.ask(ctx, flow, Question{FlowID: flow, Text: question})
	if err != nil {
		if !errors.Is(err, errFlowSuperseded) {
			e.say(ctx, apology)
		}
		return
	}
	answer = strings.ToLower(strings.TrimSpace(answer))

	switch {
	case strings.Contains(answer, "no") || strings.Contains(answer, "first"):
		if lowest := catalog.LowestEpisode(selection); lowest != nil {
			e.say(ctx, "Okay, playing the oldest episode of "+speechMatch)
			e.playItem(ctx, q, lowest)
			return
		}
	case strings.Contains(answer, "newest") || strings.Contains(answer, "latest"):
		if newest := catalog.NewestEpisode(selection); newest != nil {
			e.say(ctx, "Okay, playing the most recent episode of "+speechMatch)
			e.playItem(ctx, q, newest)
			return
		}
	case strings.Contains(answer, "random") || strings.Contains(answer, "any"):
		e.say(ctx, "Okay, playing a random episode of "+speechMatch)
		e.playItem(ctx, q, selection[e.randIntn(len(selection))])
		return
	}

	// Fold the answer into the search phrase and take the best-scoring hit.
	results, err := gen.Indexes.Search(string(catalog.TypeEpisode), speechMatch+" "+answer)
	if err != nil {
		e.logger.Warn().Err(err).Msg("Episode fallback search failed")
	}
	if best := BestResult(results); best != nil {
		if item, ok := gen.ItemByKey(best.Key); ok {
			e.playItem(ctx, q, item)
			return
		}
	}

	e.say(ctx, apology)
}

// playAdjacentEpisode resolves "watch the next/previous episode" against
// the active session: compound index plus or minus one, searched in the
// episode index as "<series title> <target index>".
func (e *Engine) playAdjacentEpisode(ctx context.Context, gen *snapshot.Generation, q SpeechQuery, direction int) {
	sessions, err := e.sessions.ActiveSessions(ctx)
	if err != nil {
		e.logger.Warn().Err(err).Msg("Active session lookup failed")
	}
	if len(sessions) == 0 {
		e.say(ctx, "No active watch sessions found. I'm not sure what you want to watch. Please start over")
		return
	}

	current := catalog.NewItem(sessions[0])
	if current.Type != catalog.TypeEpisode {
		e.say(ctx, "You are not watching a series right now")
		return
	}

	target := current.CompoundEpisodeIndex + direction
	results, err := gen.Indexes.Search(string(catalog.TypeEpisode), current.Title+" "+strconv.Itoa(target))
	if err != nil {
		e.logger.Warn().Err(err).Msg("Adjacent episode search failed")
	}
	if len(results) > 0 {
		if item, ok := gen.ItemByKey(results[0].Key); ok {
			e.playItem(ctx, q, item)
			return
		}
	}
	e.say(ctx, "Sorry, I couldn't find the next episode for "+current.Title)
}

// describeCurrent voices what is playing on the target device. Theater
// devices report live sessions; cast devices only remember their last
// session.
func (e *Engine) describeCurrent(ctx context.Context, q SpeechQuery) {
	device := q.Devices[0]

	var current *catalog.Item
	switch device.Class {
	case playback.ClassTheater:
		sessions, err := e.sessions.ActiveSessions(ctx)
		if err != nil {
			e.logger.Warn().Err(err).Msg("Active session lookup failed")
		}
		if len(sessions) > 0 {
			current = catalog.NewItem(sessions[0])
		}
	default:
		if item, ok := e.devices.LastSession(device.Class); ok {
			current = item
		}
	}

	if current == nil || current.Title == "" {
		e.say(ctx, "I couldn't find an active watch session")
		return
	}

	if current.Type == catalog.TypeEpisode {
		e.say(ctx, "You are watching an episode of "+current.Title+" named "+current.EpisodeTitle+
			", "+current.Season+", "+current.EpisodeIndex)
		return
	}
	e.say(ctx, "You are watching "+current.Title)
}

func (e *Engine) runRefresh(ctx context.Context) {
	if e.refresher == nil {
		e.logger.Warn().Msg("Refresh command received but no refresher wired")
		return
	}
	if err := e.refresher.Refresh(ctx); err != nil {
		e.logger.Error().Err(err).Msg("Voice-triggered refresh failed")
		e.say(ctx, "Sorry, I couldn't refresh the media library")
	}
}

// pickDefaultDevice fills in the first installed device when the utterance
// named none. False aborts the flow with a voiced failure.
func (e *Engine) pickDefaultDevice(ctx context.Context, q *SpeechQuery) bool {
	for _, class := range []string{playback.ClassChromecast, playback.ClassTheater} {
		if installed := e.devices.InstalledDevices(class); len(installed) > 0 {
			q.Devices = append(q.Devices, installed[0])
			return true
		}
	}
	e.say(ctx, "I couldn't find any installed players. Go to the devices page to install one")
	return false
}

func (e *Engine) playItem(ctx context.Context, q SpeechQuery, item *catalog.Item) {
	e.dispatch(ctx, q, playback.CommandPlayItem, item)
}

func (e *Engine) dispatch(ctx context.Context, q SpeechQuery, cmd playback.Command, item *catalog.Item) {
	req := playback.Request{Device: q.Devices[0], Command: cmd, Item: item}
	if err := e.player.Dispatch(ctx, req); err != nil {
		e.logger.Error().Err(err).Str("command", string(cmd)).Msg("Playback dispatch failed")
		if errors.Is(err, playback.ErrDeviceNotFound) {
			e.say(ctx, "I couldn't find the player "+q.Devices[0].Name)
			return
		}
		e.say(ctx, "Sorry, I couldn't reach "+q.Devices[0].Name)
	}
}

func (e *Engine) say(ctx context.Context, text string) {
	if err := e.out.Say(ctx, text); err != nil {
		e.logger.Warn().Err(err).Str("text", text).Msg("Voice output failed")
	}
}

// askConstrained asks a question with an allowed answer set and validates
// the reply: an answer is accepted when it is a substring of an allowed
// answer, resolving to the full allowed form. Invalid, cancelled and
// timed-out replies all voice the same failure.
func (e *Engine) askConstrained(ctx context.Context, flow uuid.UUID, question string, allowed []string) (string, bool) {
	answer, err := e.ask(ctx, flow, Question{FlowID: flow, Text: question, AllowedAnswers: allowed})
	if err != nil {
		if !errors.Is(err, errFlowSuperseded) {
			e.say(ctx, apology)
		}
		return "", false
	}

	answer = strings.ToLower(strings.TrimSpace(answer))
	for _, a := range allowed {
		if answer != "" && strings.Contains(strings.ToLower(a), answer) {
			return a, true
		}
	}

	e.say(ctx, "Sorry... I didn't understand "+answer+". Please try again.")
	return "", false
}

// ask performs one clarification round trip and discards answers belonging
// to a flow that has since been superseded by a newer speech query.
func (e *Engine) ask(ctx context.Context, flow uuid.UUID, q Question) (string, error) {
	answer, err := e.in.Ask(ctx, q)
	if !e.isActiveFlow(flow) {
		e.logger.Debug().Str("flow", flow.String()).Msg("Discarding answer for superseded flow")
		return "", errFlowSuperseded
	}
	if err != nil {
		return "", err
	}
	return answer, nil
}

func (e *Engine) beginFlow() uuid.UUID {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.activeFlow = uuid.New()
	return e.activeFlow
}

func (e *Engine) isActiveFlow(flow uuid.UUID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.activeFlow == flow
}

const apology = "I'm sorry, I failed you. Please start over"
