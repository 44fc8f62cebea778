package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rbright/signcast/internal/config"
	"github.com/rbright/signcast/internal/observe"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *sdkmetric.ManualReader) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	metrics, err := observe.NewMetrics(mp)
	require.NoError(t, err)

	cfg := config.Default().Server
	cfg.URL = srv.URL + "/"
	return New(cfg, WithMetrics(metrics)), reader
}

func TestPredictPostsImageAndSentence(t *testing.T) {
	var got PredictRequest
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/predict", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"prediction":" WORLD","suggestions":["THERE","AGAIN"]}`))
	})

	resp, err := client.Predict(context.Background(), PredictRequest{Image: "data:,", Sentence: "HELLO"})
	require.NoError(t, err)
	require.Equal(t, PredictRequest{Image: "data:,", Sentence: "HELLO"}, got)
	require.Equal(t, " WORLD", resp.Prediction)
	require.Equal(t, []string{"THERE", "AGAIN"}, resp.Suggestions)
}

func TestPredictEmptyObjectHasNoFields(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	resp, err := client.Predict(context.Background(), PredictRequest{Image: "data:,"})
	require.NoError(t, err)
	require.Empty(t, resp.Prediction)
	require.Nil(t, resp.Suggestions)
}

func TestPredictNon2xxIsStatusError(t *testing.T) {
	client, reader := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	})

	_, err := client.Predict(context.Background(), PredictRequest{})
	require.Error(t, err)
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusInternalServerError, statusErr.Code)
	require.Contains(t, err.Error(), "model not loaded")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	var sawError bool
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == "signcast.backend.errors" {
				sawError = m.Data.(metricdata.Sum[int64]).DataPoints[0].Value == 1
			}
		}
	}
	require.True(t, sawError)
}

func TestPredictNonJSONBodyFails(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>oops</html>`))
	})

	_, err := client.Predict(context.Background(), PredictRequest{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "decode response")
}

func TestPredictEmptyBodyFails(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	_, err := client.Predict(context.Background(), PredictRequest{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "empty response body")
}

func TestSpeakPostsText(t *testing.T) {
	var got SpeakRequest
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/speak", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"status":"error","message":"engine busy"}`))
	})

	resp, err := client.Speak(context.Background(), SpeakRequest{Text: "HELLO"})
	require.NoError(t, err)
	require.Equal(t, "HELLO", got.Text)
	require.False(t, resp.Succeeded())
	require.Equal(t, "engine busy", resp.Message)
}

func TestSpeakRespectsContextCancellation(t *testing.T) {
	release := make(chan struct{})
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	t.Cleanup(func() { close(release) })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := client.Speak(ctx, SpeakRequest{Text: "HELLO"})
	require.Error(t, err)
	require.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestReadyReachesBackend(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	require.NoError(t, client.Ready(context.Background()))

	cfg := config.Default().Server
	cfg.URL = "http://127.0.0.1:1"
	require.Error(t, New(cfg).Ready(context.Background()))
}

func TestURLsJoinBaseAndPaths(t *testing.T) {
	cfg := config.Default().Server
	cfg.URL = "http://asl.local:5000/"
	cfg.PredictPath = "/v2/predict"
	predict, speak := New(cfg).URLs()
	require.Equal(t, "http://asl.local:5000/v2/predict", predict)
	require.Equal(t, "http://asl.local:5000/speak", speak)
}
