package observe

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	require.NoError(t, err)
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestHistogramsRecord(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.PredictDuration.Record(ctx, 0.2)
	m.PredictDuration.Record(ctx, 0.4)
	m.SpeakDuration.Record(ctx, 1.5)

	rm := collect(t, reader)

	predict := findMetric(rm, "signcast.predict.duration")
	require.NotNil(t, predict)
	hist, ok := predict.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	require.Equal(t, uint64(2), hist.DataPoints[0].Count)
	require.InDelta(t, 0.6, hist.DataPoints[0].Sum, 1e-9)

	require.NotNil(t, findMetric(rm, "signcast.speak.duration"))
}

func TestCountersCarryAttributes(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.BackendRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("endpoint", "predict"),
		attribute.String("status", "ok"),
	))
	m.BackendRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("endpoint", "predict"),
		attribute.String("status", "error"),
	))
	m.SpeechDropped.Add(ctx, 3, metric.WithAttributes(attribute.String("reason", "already_speaking")))

	rm := collect(t, reader)

	requests := findMetric(rm, "signcast.backend.requests")
	require.NotNil(t, requests)
	sum, ok := requests.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 2)

	dropped := findMetric(rm, "signcast.speech.dropped")
	require.NotNil(t, dropped)
	droppedSum := dropped.Data.(metricdata.Sum[int64])
	require.Equal(t, int64(3), droppedSum.DataPoints[0].Value)
	reason, ok := droppedSum.DataPoints[0].Attributes.Value("reason")
	require.True(t, ok)
	require.Equal(t, "already_speaking", reason.AsString())
}

func TestInFlightGaugeGoesUpAndDown(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.PredictInFlight.Add(ctx, 1)
	m.PredictInFlight.Add(ctx, 1)
	m.PredictInFlight.Add(ctx, -1)

	rm := collect(t, reader)
	gauge := findMetric(rm, "signcast.predict.in_flight")
	require.NotNil(t, gauge)
	sum := gauge.Data.(metricdata.Sum[int64])
	require.False(t, sum.IsMonotonic)
	require.Equal(t, int64(1), sum.DataPoints[0].Value)
}

func TestDefaultMetricsIsSingleton(t *testing.T) {
	require.Same(t, DefaultMetrics(), DefaultMetrics())
}
