package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rbright/signcast/internal/config"
	"github.com/rbright/signcast/internal/observe"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const maxErrorBody = 512

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Endpoint string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Endpoint, e.Code)
	}
	return fmt.Sprintf("%s: unexpected status %d (%s)", e.Endpoint, e.Code, e.Body)
}

// Client posts JSON to the prediction and speech endpoints.
type Client struct {
	http       *http.Client
	predictURL string
	speakURL   string
	baseURL    string
	metrics    *observe.Metrics
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying transport client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithMetrics records request metrics on m instead of the default instance.
func WithMetrics(m *observe.Metrics) Option {
	return func(cl *Client) { cl.metrics = m }
}

// New builds a client from server config. A zero timeout leaves request
// lifetime to the caller's context.
func New(cfg config.ServerConfig, opts ...Option) *Client {
	base := strings.TrimRight(cfg.URL, "/")
	c := &Client{
		http:       &http.Client{Timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond},
		predictURL: base + cfg.PredictPath,
		speakURL:   base + cfg.SpeakPath,
		baseURL:    base,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics = observe.DefaultMetrics()
	}
	return c
}

// Predict sends one frame plus the current sentence.
func (c *Client) Predict(ctx context.Context, req PredictRequest) (PredictResponse, error) {
	var resp PredictResponse
	err := c.post(ctx, "predict", c.predictURL, req, &resp, c.metrics.PredictDuration,
		attribute.Int("image.bytes", len(req.Image)),
		attribute.Int("sentence.length", len(req.Sentence)),
	)
	return resp, err
}

// Speak asks the speech engine to voice text.
func (c *Client) Speak(ctx context.Context, req SpeakRequest) (SpeakResponse, error) {
	var resp SpeakResponse
	err := c.post(ctx, "speak", c.speakURL, req, &resp, c.metrics.SpeakDuration,
		attribute.Int("text.length", len(req.Text)),
	)
	return resp, err
}

// Ready reports whether the backend accepts connections. Any HTTP response
// counts as reachable.
func (c *Client) Ready(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("build readiness request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("backend unreachable: %w", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

// URLs returns the resolved predict and speak endpoints.
func (c *Client) URLs() (predict string, speak string) {
	return c.predictURL, c.speakURL
}

func (c *Client) post(
	ctx context.Context,
	endpoint string,
	url string,
	in any,
	out any,
	latency metric.Float64Histogram,
	attrs ...attribute.KeyValue,
) (err error) {
	ctx, span := observe.StartSpan(ctx, "backend."+endpoint,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(append(attrs, attribute.String("http.url", url))...),
	)
	start := time.Now()
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			c.metrics.BackendErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("endpoint", endpoint)))
		}
		latency.Record(ctx, time.Since(start).Seconds())
		c.metrics.BackendRequests.Add(ctx, 1, metric.WithAttributes(
			attribute.String("endpoint", endpoint),
			attribute.String("status", status),
		))
		span.End()
	}()

	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", endpoint, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: build request: %w", endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", endpoint, err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Endpoint: endpoint, Code: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%s: empty response body", endpoint)
		}
		return fmt.Errorf("%s: decode response: %w", endpoint, err)
	}
	return nil
}
