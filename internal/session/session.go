// Package session holds the transcript and suggestion state and applies
// prediction responses, suggestion picks, resets and speak requests to it.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/rbright/signcast/internal/backend"
	"github.com/rbright/signcast/internal/fsm"
	"github.com/rbright/signcast/internal/ipc"
)

const (
	// PlaceholderInitial is shown before the first response and after a reset.
	PlaceholderInitial = "Suggestions will appear here"
	// PlaceholderEmpty is shown when a response carries no suggestions.
	PlaceholderEmpty = "No suggestions available"
)

// ErrNoSuggestion is returned when a pick index is out of range.
var ErrNoSuggestion = errors.New("no such suggestion")

// View renders session state. Calls are serialized by the controller and
// must not call back into it.
type View interface {
	ShowTranscript(text string)
	ShowSuggestions(words []string)
	ShowPlaceholder(message string)
}

// Speech is the session-facing subset of the speech trigger.
type Speech interface {
	Speak(ctx context.Context, text string, fallback string) error
	Announce(ctx context.Context, text string) (backend.SpeakResponse, error)
	State() fsm.State
}

// Indicator is the session-facing subset of indicator behavior.
type Indicator interface {
	CueClear(context.Context)
}

type noopView struct{}

func (noopView) ShowTranscript(string)    {}
func (noopView) ShowSuggestions([]string) {}
func (noopView) ShowPlaceholder(string)   {}

type noopIndicator struct{}

func (noopIndicator) CueClear(context.Context) {}

// Options tunes controller behavior.
type Options struct {
	// DiscardStale drops prediction responses older than the newest applied one.
	DiscardStale bool
	// VoiceAnnouncement is the text sent by Voice.
	VoiceAnnouncement string
	Indicator         Indicator
}

// Snapshot is a copy of the session state.
type Snapshot struct {
	Transcript  string
	Suggestions []string
	Placeholder string
	State       fsm.State
	LastSeq     uint64
}

// Controller owns the transcript and suggestion list.
type Controller struct {
	logger    *slog.Logger
	view      View
	speech    Speech
	indicator Indicator
	opts      Options

	mu          sync.Mutex
	transcript  string
	suggestions []string
	placeholder string
	lastSeq     uint64
}

// NewController constructs a controller in its initial state and renders it.
func NewController(logger *slog.Logger, view View, speech Speech, opts Options) *Controller {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if view == nil {
		view = noopView{}
	}
	indicator := opts.Indicator
	if indicator == nil {
		indicator = noopIndicator{}
	}

	c := &Controller{
		logger:      logger,
		view:        view,
		speech:      speech,
		indicator:   indicator,
		opts:        opts,
		placeholder: PlaceholderInitial,
	}
	c.Refresh()
	return c
}

// Refresh re-renders the full state.
func (c *Controller) Refresh() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.view.ShowTranscript(c.transcript)
	c.renderSuggestionsLocked()
}

// Transcript returns the current transcript.
func (c *Controller) Transcript() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transcript
}

// Snapshot copies the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	snap := Snapshot{
		Transcript:  c.transcript,
		Suggestions: append([]string(nil), c.suggestions...),
		Placeholder: c.placeholder,
		LastSeq:     c.lastSeq,
	}
	c.mu.Unlock()

	snap.State = fsm.StateIdle
	if c.speech != nil {
		snap.State = c.speech.State()
	}
	return snap
}

// HandlePrediction applies one /predict response tagged with its tick
// sequence number. It reports false when the response was discarded as stale.
func (c *Controller) HandlePrediction(ctx context.Context, seq uint64, resp backend.PredictResponse) bool {
	c.mu.Lock()
	if c.opts.DiscardStale && seq < c.lastSeq {
		last := c.lastSeq
		c.mu.Unlock()
		c.logger.Debug("prediction discarded as stale", "seq", seq, "last_seq", last)
		return false
	}
	if seq > c.lastSeq {
		c.lastSeq = seq
	}

	prediction := resp.Prediction
	if prediction != "" {
		c.transcript += prediction
		c.view.ShowTranscript(c.transcript)
	}

	if len(resp.Suggestions) > 0 {
		c.suggestions = append([]string(nil), resp.Suggestions...)
		c.placeholder = ""
	} else {
		c.suggestions = nil
		c.placeholder = PlaceholderEmpty
	}
	c.renderSuggestionsLocked()
	transcript := c.transcript
	c.mu.Unlock()

	c.logger.Debug("prediction applied",
		"seq", seq,
		"prediction", prediction,
		"suggestions", len(resp.Suggestions),
		"transcript_length", len(transcript),
	)

	if prediction != "" && c.speech != nil {
		_ = c.speech.Speak(ctx, prediction, transcript)
	}
	return true
}

// ActivateSuggestion appends " "+suggestions[index] to the transcript.
// index is zero-based.
func (c *Controller) ActivateSuggestion(index int) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if index < 0 || index >= len(c.suggestions) {
		return c.transcript, fmt.Errorf("%w: %d", ErrNoSuggestion, index+1)
	}
	word := c.suggestions[index]
	c.transcript += " " + word
	c.view.ShowTranscript(c.transcript)
	c.logger.Info("suggestion activated", "index", index, "word", word)
	return c.transcript, nil
}

// EditTranscript replaces the transcript with user-edited text, but only
// while it still equals base. A prediction or suggestion applied since the
// editor last read the transcript makes the edit stale and it reports false.
// The view already shows the edit, so nothing is re-rendered on success.
func (c *Controller) EditTranscript(base, text string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.transcript != base {
		return false
	}
	c.transcript = text
	return true
}

// Reset clears the transcript and restores the initial placeholder.
func (c *Controller) Reset(ctx context.Context) {
	c.mu.Lock()
	c.transcript = ""
	c.suggestions = nil
	c.placeholder = PlaceholderInitial
	c.view.ShowTranscript("")
	c.renderSuggestionsLocked()
	c.mu.Unlock()

	c.indicator.CueClear(ctx)
	c.logger.Info("session reset")
}

// Speak speaks text, or the current transcript when text is empty.
func (c *Controller) Speak(ctx context.Context, text string) error {
	if c.speech == nil {
		return errors.New("speech is not configured")
	}
	return c.speech.Speak(ctx, text, c.Transcript())
}

// Voice sends the configured voice-change announcement.
func (c *Controller) Voice(ctx context.Context) (backend.SpeakResponse, error) {
	if c.speech == nil {
		return backend.SpeakResponse{}, errors.New("speech is not configured")
	}
	return c.speech.Announce(ctx, c.opts.VoiceAnnouncement)
}

func (c *Controller) renderSuggestionsLocked() {
	if len(c.suggestions) > 0 {
		c.view.ShowSuggestions(append([]string(nil), c.suggestions...))
		return
	}
	c.view.ShowPlaceholder(c.placeholder)
}

// Handle serves IPC commands for the active owner session.
func (c *Controller) Handle(ctx context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case "status":
		return c.statusResponse("status")
	case "speak":
		text := strings.Join(req.Args, " ")
		if err := c.Speak(ctx, text); err != nil {
			return c.errorResponse(err)
		}
		return c.statusResponse("speech requested")
	case "pick":
		if len(req.Args) != 1 {
			return c.errorResponse(errors.New("pick requires exactly one suggestion number"))
		}
		n, err := strconv.Atoi(strings.TrimSpace(req.Args[0]))
		if err != nil || n < 1 {
			return c.errorResponse(fmt.Errorf("invalid suggestion number %q", req.Args[0]))
		}
		if _, err := c.ActivateSuggestion(n - 1); err != nil {
			return c.errorResponse(err)
		}
		return c.statusResponse("suggestion added")
	case "clear":
		c.Reset(ctx)
		return c.statusResponse("cleared")
	case "voice":
		resp, err := c.Voice(ctx)
		if err != nil {
			return c.errorResponse(err)
		}
		if !resp.Succeeded() {
			return c.errorResponse(fmt.Errorf("voice change rejected: %s", resp.Message))
		}
		return c.statusResponse("voice changed")
	default:
		return c.errorResponse(fmt.Errorf("unknown command: %s", req.Command))
	}
}

func (c *Controller) statusResponse(message string) ipc.Response {
	snap := c.Snapshot()
	return ipc.Response{
		OK:          true,
		State:       string(snap.State),
		Message:     message,
		Transcript:  snap.Transcript,
		Suggestions: snap.Suggestions,
	}
}

func (c *Controller) errorResponse(err error) ipc.Response {
	snap := c.Snapshot()
	return ipc.Response{OK: false, State: string(snap.State), Error: err.Error()}
}
