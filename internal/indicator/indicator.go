// Package indicator handles speech-state notifications and audio cue playback.
package indicator

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rbright/signcast/internal/config"
	"github.com/rbright/signcast/internal/hypr"
)

const maxNotifyText = 60

// Controller is the runtime-facing indicator contract.
type Controller interface {
	ShowSpeaking(context.Context, string)
	ShowError(context.Context, string)
	CueComplete(context.Context)
	CueClear(context.Context)
	Hide(context.Context)
}

// Notifier routes speech-state notifications via Hyprland or desktop DBus
// based on the configured backend and plays cues through PulseAudio.
type Notifier struct {
	cfg      config.IndicatorConfig
	logger   *slog.Logger
	messages messages

	mu                    sync.Mutex
	desktopNotificationID uint32
	soundMu               sync.Mutex
	cues                  sync.WaitGroup
}

// New creates an indicator controller from config.
func New(cfg config.IndicatorConfig, logger *slog.Logger) *Notifier {
	return &Notifier{
		cfg:      cfg,
		logger:   logger,
		messages: defaultMessages().withOverrides(cfg),
	}
}

// ShowSpeaking signals that text was sent to the speech engine.
func (n *Notifier) ShowSpeaking(ctx context.Context, text string) {
	n.playCue(cueSend)
	if !n.cfg.Enable {
		return
	}
	n.run(ctx, func(ctx context.Context) error {
		return n.notify(ctx, notice{
			summary:   n.messages.speaking,
			body:      truncateText(text),
			hyprIcon:  1,
			hyprColor: "rgb(a6e3a1)",
			urgency:   urgencyNormal,
			timeoutMS: 30000,
		})
	})
}

// ShowError displays an error-state message and plays the fail cue.
func (n *Notifier) ShowError(ctx context.Context, text string) {
	n.playCue(cueFail)
	if !n.cfg.Enable {
		return
	}
	if strings.TrimSpace(text) == "" {
		text = n.messages.errorText
	}
	timeout := n.cfg.ErrorTimeoutMS
	if timeout <= 0 {
		timeout = 1200
	}
	n.run(ctx, func(ctx context.Context) error {
		return n.notify(ctx, notice{
			summary:   text,
			hyprIcon:  3,
			hyprColor: "rgb(f38ba8)",
			urgency:   urgencyCritical,
			timeoutMS: timeout,
		})
	})
}

// CueComplete emits the speech-complete cue.
func (n *Notifier) CueComplete(context.Context) {
	n.playCue(cueComplete)
}

// CueClear emits the reset cue.
func (n *Notifier) CueClear(context.Context) {
	n.playCue(cueClear)
}

// Hide dismisses the active indicator surface.
func (n *Notifier) Hide(ctx context.Context) {
	if !n.cfg.Enable {
		return
	}
	n.run(ctx, n.dismiss)
}

// Wait blocks until queued cues finish playing.
func (n *Notifier) Wait() {
	n.cues.Wait()
}

// notice is one indicator message, rendered per backend.
type notice struct {
	summary   string
	body      string
	hyprIcon  int
	hyprColor string
	urgency   byte
	timeoutMS int
}

// line joins summary and body for single-line surfaces.
func (m notice) line() string {
	if m.body == "" {
		return m.summary
	}
	return m.summary + " " + m.body
}

// truncateText trims text to maxNotifyText runes.
func truncateText(text string) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) > maxNotifyText {
		runes := []rune(text)
		text = string(runes[:maxNotifyText-1]) + "…"
	}
	return text
}

// notify dispatches indicator output through the configured backend.
func (n *Notifier) notify(ctx context.Context, m notice) error {
	if strings.EqualFold(strings.TrimSpace(n.cfg.Backend), "desktop") {
		return n.notifyDesktop(ctx, m)
	}
	return hypr.Notify(ctx, m.hyprIcon, m.timeoutMS, m.hyprColor, m.line())
}

// dismiss removes indicator output from the configured backend.
func (n *Notifier) dismiss(ctx context.Context) error {
	if strings.EqualFold(strings.TrimSpace(n.cfg.Backend), "desktop") {
		return n.dismissDesktop(ctx)
	}
	return hypr.DismissNotify(ctx)
}

// notifyDesktop sends a replaceable desktop notification and stores its ID.
func (n *Notifier) notifyDesktop(ctx context.Context, m notice) error {
	n.mu.Lock()
	replaceID := n.desktopNotificationID
	n.mu.Unlock()

	appName := strings.TrimSpace(n.cfg.DesktopAppName)
	if appName == "" {
		appName = "signcast"
	}

	id, err := desktopNotify(ctx, notification{
		AppName:   appName,
		ReplaceID: replaceID,
		Summary:   m.summary,
		Body:      m.body,
		Urgency:   m.urgency,
		TimeoutMS: m.timeoutMS,
	})
	if err != nil {
		return err
	}

	n.mu.Lock()
	n.desktopNotificationID = id
	n.mu.Unlock()
	return nil
}

// dismissDesktop closes the current desktop notification ID when present.
func (n *Notifier) dismissDesktop(ctx context.Context) error {
	n.mu.Lock()
	id := n.desktopNotificationID
	n.desktopNotificationID = 0
	n.mu.Unlock()

	if id == 0 {
		return nil
	}
	return desktopDismiss(ctx, id)
}

// run executes an indicator operation with a bounded timeout.
func (n *Notifier) run(ctx context.Context, fn func(context.Context) error) {
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 400*time.Millisecond)
	defer cancel()
	if err := fn(runCtx); err != nil {
		n.log("indicator dispatch failed", err)
	}
}

// playCue serializes cue playback and emits audio asynchronously.
func (n *Notifier) playCue(kind cueKind) {
	if !n.cfg.SoundEnable {
		return
	}
	n.cues.Add(1)
	go func() {
		defer n.cues.Done()
		n.soundMu.Lock()
		defer n.soundMu.Unlock()
		ctx, cancel := context.WithTimeout(context.Background(), 4*time.Second)
		defer cancel()
		if err := emitCue(ctx, kind, n.cfg); err != nil {
			n.log("indicator audio cue failed", err)
		}
	}()
}

// log emits debug-only indicator failures to the runtime logger.
func (n *Notifier) log(message string, err error) {
	if n.logger == nil || err == nil {
		return
	}
	n.logger.Debug(message, "error", err.Error())
}
