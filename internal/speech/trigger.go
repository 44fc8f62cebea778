// Package speech owns the speaking flag and dispatches text to the speech endpoint.
package speech

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rbright/signcast/internal/backend"
	"github.com/rbright/signcast/internal/fsm"
	"github.com/rbright/signcast/internal/observe"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	// ErrAlreadySpeaking is returned when a request is still in flight.
	ErrAlreadySpeaking = errors.New("speech already in progress")
	// ErrNoText is returned when neither explicit text nor a fallback is available.
	ErrNoText = errors.New("no text to speak")
)

// Speaker sends text to a speech engine.
type Speaker interface {
	Speak(context.Context, backend.SpeakRequest) (backend.SpeakResponse, error)
}

// Indicator is the speech-facing subset of indicator behavior.
type Indicator interface {
	ShowSpeaking(context.Context, string)
	CueComplete(context.Context)
	ShowError(context.Context, string)
	Hide(context.Context)
}

type noopIndicator struct{}

func (noopIndicator) ShowSpeaking(context.Context, string) {}
func (noopIndicator) CueComplete(context.Context)          {}
func (noopIndicator) ShowError(context.Context, string)    {}
func (noopIndicator) Hide(context.Context)                 {}

// Options wires optional collaborators into a Trigger.
type Options struct {
	Logger    *slog.Logger
	Indicator Indicator
	Metrics   *observe.Metrics
	// OnStateChange is called after every flag transition, outside the lock.
	OnStateChange func(fsm.State)
}

// Trigger gates speech requests behind a single in-flight flag.
// A request made while another is outstanding is dropped, not queued.
type Trigger struct {
	speaker   Speaker
	logger    *slog.Logger
	indicator Indicator
	metrics   *observe.Metrics
	onChange  func(fsm.State)

	mu    sync.Mutex
	state fsm.State

	inflight sync.WaitGroup
	sent     atomic.Int64
}

// NewTrigger constructs an idle trigger.
func NewTrigger(speaker Speaker, opts Options) *Trigger {
	t := &Trigger{
		speaker:   speaker,
		logger:    opts.Logger,
		indicator: opts.Indicator,
		metrics:   opts.Metrics,
		onChange:  opts.OnStateChange,
		state:     fsm.StateIdle,
	}
	if t.logger == nil {
		t.logger = slog.New(slog.DiscardHandler)
	}
	if t.indicator == nil {
		t.indicator = noopIndicator{}
	}
	if t.metrics == nil {
		t.metrics = observe.DefaultMetrics()
	}
	return t
}

// State returns the current flag state.
func (t *Trigger) State() fsm.State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Speaking reports whether a request is in flight.
func (t *Trigger) Speaking() bool {
	return t.State() == fsm.StateSpeaking
}

// Sent reports how many speak requests have been dispatched.
func (t *Trigger) Sent() int64 {
	return t.sent.Load()
}

// Speak sends text, or fallback when text is empty. It returns once the
// request is dispatched; completion is logged asynchronously. ctx bounds
// the request and should outlive the caller.
func (t *Trigger) Speak(ctx context.Context, text string, fallback string) error {
	if t.Speaking() {
		return t.collide(ctx, text)
	}
	if text == "" {
		text = fallback
	}
	if text == "" {
		t.logger.Error("speech skipped", "error", ErrNoText.Error())
		t.drop(ctx, "no_text")
		return ErrNoText
	}

	if err := t.transition(fsm.EventSend); err != nil {
		return t.collide(ctx, text)
	}

	t.inflight.Add(1)
	t.sent.Add(1)
	t.indicator.ShowSpeaking(ctx, text)
	go t.send(ctx, text)
	return nil
}

func (t *Trigger) collide(ctx context.Context, text string) error {
	t.logger.Info("speech dropped", "reason", ErrAlreadySpeaking.Error(), "text", text)
	t.drop(ctx, "already_speaking")
	return ErrAlreadySpeaking
}

// Announce sends text without consulting or changing the speaking flag.
func (t *Trigger) Announce(ctx context.Context, text string) (backend.SpeakResponse, error) {
	if text == "" {
		return backend.SpeakResponse{}, ErrNoText
	}
	t.inflight.Add(1)
	defer t.inflight.Done()

	resp, err := t.speaker.Speak(ctx, backend.SpeakRequest{Text: text})
	if err != nil {
		t.logger.Error("announcement failed", "error", err.Error())
		return resp, err
	}
	if !resp.Succeeded() {
		t.logger.Error("announcement rejected", "status", resp.Status, "message", resp.Message)
		return resp, nil
	}
	t.logger.Info("announcement spoken", "text", text)
	return resp, nil
}

// Wait blocks until every dispatched request has completed.
func (t *Trigger) Wait() {
	t.inflight.Wait()
}

func (t *Trigger) send(ctx context.Context, text string) {
	defer t.inflight.Done()

	started := time.Now()
	resp, err := t.speaker.Speak(ctx, backend.SpeakRequest{Text: text})
	elapsed := time.Since(started)

	cleanupCtx, cancel := context.WithTimeout(context.Background(), 800*time.Millisecond)
	defer cancel()

	// The flag clears as soon as the endpoint answers, before indicator work.
	switch {
	case err != nil:
		t.finish(fsm.EventFail)
		t.logger.Error("speech request failed", "error", err.Error(), "latency_ms", elapsed.Milliseconds())
		t.indicator.ShowError(cleanupCtx, "Speech request failed")
	case !resp.Succeeded():
		t.finish(fsm.EventFail)
		t.logger.Error("speech engine error", "status", resp.Status, "message", resp.Message, "latency_ms", elapsed.Milliseconds())
		t.indicator.ShowError(cleanupCtx, resp.Message)
	default:
		t.finish(fsm.EventDone)
		t.logger.Info("speech succeeded", "text", text, "latency_ms", elapsed.Milliseconds())
		t.indicator.CueComplete(cleanupCtx)
		t.indicator.Hide(cleanupCtx)
	}
}

func (t *Trigger) finish(event fsm.Event) {
	if err := t.transition(event); err != nil {
		t.logger.Error("speech flag transition failed", "error", err.Error())
	}
}

func (t *Trigger) transition(event fsm.Event) error {
	t.mu.Lock()
	next, err := fsm.Transition(t.state, event)
	if err != nil {
		t.mu.Unlock()
		return err
	}
	t.state = next
	t.mu.Unlock()

	if t.onChange != nil {
		t.onChange(next)
	}
	return nil
}

func (t *Trigger) drop(ctx context.Context, reason string) {
	t.metrics.SpeechDropped.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}
