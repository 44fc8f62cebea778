package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/rbright/signcast/internal/backend"
	"github.com/rbright/signcast/internal/camera"
	"github.com/rbright/signcast/internal/config"
	"github.com/rbright/signcast/internal/fsm"
	"github.com/rbright/signcast/internal/indicator"
	"github.com/rbright/signcast/internal/ipc"
	"github.com/rbright/signcast/internal/observe"
	"github.com/rbright/signcast/internal/pipeline"
	"github.com/rbright/signcast/internal/server"
	"github.com/rbright/signcast/internal/session"
	"github.com/rbright/signcast/internal/speech"
	"github.com/rbright/signcast/internal/ui"
	"github.com/rbright/signcast/internal/version"
	"golang.org/x/sync/errgroup"
)

// sessionView is a session view that also displays the speaking flag.
type sessionView interface {
	session.View
	SetSpeechState(fsm.State)
}

func (r Runner) commandRun(ctx context.Context, cfg config.Config, headless bool, logger *slog.Logger) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	listener, err := ipc.Acquire(ctx, socketPath, ipc.AcquireOptions{
		ProbeTimeout: 180 * time.Millisecond,
		Retries:      8,
		OnStale: func(path string) {
			logger.Warn("removed stale session socket", "path", path)
		},
	})
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	if cfg.Metrics.Enable {
		shutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
			ServiceName:    "signcast",
			ServiceVersion: version.Version,
		})
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: init telemetry: %v\n", err)
			return 1
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				logger.Warn("telemetry shutdown failed", "error", err.Error())
			}
		}()
	}

	source, selection, err := camera.Open(ctx, cfg.Camera, logger)
	switch {
	case err != nil:
		// Ticks keep posting the empty canvas without a camera.
		fmt.Fprintf(r.Stderr, "warning: camera unavailable, sending empty frames: %v\n", err)
		logger.Error("open camera failed", "error", err.Error())
		source = camera.Unavailable{}
	default:
		if selection.Warning != "" {
			logger.Warn("camera fallback", "warning", selection.Warning)
		}
		logger.Info("camera opened",
			"source", cfg.Camera.Source,
			"device", selection.Device.ID,
			"name", selection.Device.Name,
			"fallback", selection.Fallback,
		)
	}

	err = r.runSession(ctx, cfg, headless, listener, source, logger)

	if stopErr := source.Stop(); stopErr != nil {
		logger.Warn("camera stop failed", "error", stopErr.Error())
	}

	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("session failed", "error", err.Error())
		return 1
	}
	logger.Info("session complete")
	return 0
}

// runSession wires the session components around the frame source and
// blocks until ctx ends, the user quits, or a component fails.
func (r Runner) runSession(
	ctx context.Context,
	cfg config.Config,
	headless bool,
	listener net.Listener,
	source camera.Source,
	logger *slog.Logger,
) error {
	metrics := observe.DefaultMetrics()
	client := backend.New(cfg.Server, backend.WithMetrics(metrics))
	predictURL, speakURL := client.URLs()
	logger.Info("backend configured", "predict", predictURL, "speak", speakURL)

	notifier := indicator.New(cfg.Indicator, logger)
	defer notifier.Wait()

	var (
		view     sessionView
		terminal *ui.Terminal
	)
	if headless {
		view = ui.NewConsole(r.Stdout)
	} else {
		terminal = ui.NewTerminal()
		view = terminal
	}

	trigger := speech.NewTrigger(client, speech.Options{
		Logger:        logger,
		Indicator:     notifier,
		Metrics:       metrics,
		OnStateChange: view.SetSpeechState,
	})
	defer trigger.Wait()

	controller := session.NewController(logger, view, trigger, session.Options{
		DiscardStale:      cfg.Capture.DiscardStale,
		VoiceAnnouncement: cfg.Speech.VoiceAnnouncement,
		Indicator:         notifier,
	})

	loop := pipeline.NewLoop(cfg.Capture, source, client, controller, pipeline.Options{
		Logger:  logger,
		Metrics: metrics,
	})

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error { return loop.Run(gctx) })
	g.Go(func() error { return ipc.Serve(gctx, listener, controller) })

	if cfg.Metrics.Enable {
		deps := server.Deps{
			Logger: logger,
			State:  controller,
			Checkers: []server.Checker{
				{Name: "backend", Check: client.Ready},
				{Name: "camera", Check: frameCheck(source)},
			},
		}
		g.Go(func() error { return server.ListenAndServe(gctx, cfg.Metrics.Listen, deps) })
	}

	g.Go(func() error {
		watchCamera(gctx, source, logger)
		return nil
	})

	if terminal != nil {
		g.Go(func() error {
			defer cancel()
			return terminal.Run(gctx, controller)
		})
	}

	logger.Info("session started", "headless", headless, "interval_ms", cfg.Capture.IntervalMS)
	return g.Wait()
}

// watchCamera logs a capture process that exits before ctx ends. The session
// keeps running: the loop goes on posting whatever the source last held.
func watchCamera(ctx context.Context, source camera.Source, logger *slog.Logger) {
	exiter, ok := source.(interface{ Done() <-chan struct{} })
	if !ok {
		return
	}
	select {
	case <-exiter.Done():
		if ctx.Err() == nil {
			logger.Error("camera stream exited; predictions continue without new frames")
		}
	case <-ctx.Done():
	}
}

// frameCheck reports ready once the source has produced a frame.
func frameCheck(source camera.Source) func(context.Context) error {
	return func(context.Context) error {
		if _, ok := source.Latest(); !ok {
			return errors.New("no frame captured yet")
		}
		return nil
	}
}
