// Package server exposes metrics, health and session state over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rbright/signcast/internal/observe"
	"github.com/rbright/signcast/internal/session"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// StateSource supplies the session snapshot served on /state.
type StateSource interface {
	Snapshot() session.Snapshot
}

// Deps are the collaborators routed by the server.
type Deps struct {
	Logger   *slog.Logger
	State    StateSource
	Checkers []Checker
	// Metrics defaults to the process-wide Prometheus gatherer.
	Metrics http.Handler
}

type stateBody struct {
	Transcript  string   `json:"transcript"`
	Suggestions []string `json:"suggestions"`
	Placeholder string   `json:"placeholder,omitempty"`
	State       string   `json:"state"`
	LastSeq     uint64   `json:"last_seq"`
}

// NewRouter builds the chi router for the metrics listener.
func NewRouter(deps Deps) chi.Router {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = promhttp.Handler()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Method(http.MethodGet, "/metrics", metrics)
	r.Get("/healthz", healthz)
	r.Get("/readyz", readyz(deps.Checkers))
	r.Get("/state", func(w http.ResponseWriter, _ *http.Request) {
		if deps.State == nil {
			http.Error(w, "no active session", http.StatusServiceUnavailable)
			return
		}
		snap := deps.State.Snapshot()
		suggestions := snap.Suggestions
		if suggestions == nil {
			suggestions = []string{}
		}
		writeJSON(w, http.StatusOK, stateBody{
			Transcript:  snap.Transcript,
			Suggestions: suggestions,
			Placeholder: snap.Placeholder,
			State:       string(snap.State),
			LastSeq:     snap.LastSeq,
		})
	})
	return r
}

// Serve runs the router on listener until ctx is cancelled.
func Serve(ctx context.Context, listener net.Listener, deps Deps) error {
	srv := &http.Server{
		Handler:           NewRouter(deps),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown metrics server: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}

// ListenAndServe binds addr and serves until ctx is cancelled.
func ListenAndServe(ctx context.Context, addr string, deps Deps) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	if deps.Logger != nil {
		deps.Logger.Info("metrics listener started", "addr", listener.Addr().String())
	}
	return Serve(ctx, listener, deps)
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	prop := propagation.TraceContext{}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx := prop.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			ctx, span := observe.StartSpan(ctx, "HTTP "+r.Method+" "+r.URL.Path,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					semconv.HTTPRequestMethodKey.String(r.Method),
					semconv.URLPath(r.URL.Path),
				),
			)
			defer span.End()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			span.SetAttributes(semconv.HTTPResponseStatusCode(status))
			logger.LogAttrs(ctx, slog.LevelDebug, "http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("duration", time.Since(start)),
				slog.String("request_id", middleware.GetReqID(r.Context())),
				slog.String("trace_id", observe.TraceID(ctx)),
			)
		})
	}
}
