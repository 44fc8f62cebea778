// Package pipeline runs the fixed-interval capture -> predict loop.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rbright/signcast/internal/backend"
	"github.com/rbright/signcast/internal/camera"
	"github.com/rbright/signcast/internal/config"
	"github.com/rbright/signcast/internal/observe"
)

// Predictor sends one frame and sentence to the prediction endpoint.
type Predictor interface {
	Predict(context.Context, backend.PredictRequest) (backend.PredictResponse, error)
}

// Handler receives prediction responses and supplies the sentence for each tick.
type Handler interface {
	Transcript() string
	HandlePrediction(ctx context.Context, seq uint64, resp backend.PredictResponse) bool
}

// Options wires optional collaborators into a Loop.
type Options struct {
	Logger  *slog.Logger
	Metrics *observe.Metrics
}

// Loop issues one prediction per tick. Calls are never throttled: a slow
// backend leads to overlapping requests, which are tracked but not limited.
type Loop struct {
	source    camera.Source
	predictor Predictor
	handler   Handler
	logger    *slog.Logger
	metrics   *observe.Metrics

	interval time.Duration
	quality  int

	seq         atomic.Uint64
	outstanding atomic.Int64
	failures    atomic.Int64
	inflight    sync.WaitGroup
}

// NewLoop constructs a loop from capture config.
func NewLoop(cfg config.CaptureConfig, source camera.Source, predictor Predictor, handler Handler, opts Options) *Loop {
	l := &Loop{
		source:    source,
		predictor: predictor,
		handler:   handler,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		interval:  time.Duration(cfg.IntervalMS) * time.Millisecond,
		quality:   cfg.JPEGQuality,
	}
	if l.logger == nil {
		l.logger = slog.New(slog.DiscardHandler)
	}
	if l.metrics == nil {
		l.metrics = observe.DefaultMetrics()
	}
	if l.interval <= 0 {
		l.interval = time.Second
	}
	return l
}

// Run ticks until ctx is cancelled, then waits for outstanding predictions.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	l.logger.Info("capture loop started", "interval_ms", l.interval.Milliseconds())
	for {
		select {
		case <-ctx.Done():
			l.inflight.Wait()
			l.logger.Info("capture loop stopped",
				"ticks", l.seq.Load(),
				"failures", l.failures.Load(),
			)
			return nil
		case <-ticker.C:
			l.Tick(ctx)
		}
	}
}

// Tick captures the latest frame and the current sentence and dispatches one
// prediction request. It returns the tick's sequence number.
func (l *Loop) Tick(ctx context.Context) uint64 {
	seq := l.seq.Add(1)
	frame, ok := l.source.Latest()
	req := backend.PredictRequest{
		Image:    camera.EncodeDataURL(frame, ok, l.quality),
		Sentence: l.handler.Transcript(),
	}
	l.metrics.Ticks.Add(ctx, 1)

	outstanding := l.outstanding.Add(1)
	l.metrics.PredictInFlight.Add(ctx, 1)
	if outstanding > 1 {
		l.logger.Debug("prediction overlap", "seq", seq, "outstanding", outstanding)
	}

	l.inflight.Add(1)
	go l.predict(ctx, seq, req)
	return seq
}

// Outstanding reports how many predictions are in flight.
func (l *Loop) Outstanding() int64 {
	return l.outstanding.Load()
}

// Wait blocks until every dispatched prediction has completed.
func (l *Loop) Wait() {
	l.inflight.Wait()
}

func (l *Loop) predict(ctx context.Context, seq uint64, req backend.PredictRequest) {
	defer l.inflight.Done()

	resp, err := l.predictor.Predict(ctx, req)
	l.outstanding.Add(-1)
	l.metrics.PredictInFlight.Add(context.WithoutCancel(ctx), -1)

	if err != nil {
		l.failures.Add(1)
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			l.logger.Debug("prediction cancelled", "seq", seq)
			return
		}
		l.logger.Error("prediction failed", "seq", seq, "error", err.Error())
		return
	}

	if !l.handler.HandlePrediction(ctx, seq, resp) {
		l.metrics.StaleResponses.Add(context.WithoutCancel(ctx), 1)
	}
}
