// Package observe provides OpenTelemetry metrics and tracing for signcast.
//
// Instruments are recorded through the OpenTelemetry Metrics API and exposed
// for scraping through a Prometheus exporter bridge (see [InitProvider]).
// Tests should build [Metrics] from their own MeterProvider via [NewMetrics].
package observe

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/rbright/signcast"

// Metrics holds the instruments recorded by the capture loop and backend client.
type Metrics struct {
	// PredictDuration tracks POST /predict round-trip latency.
	PredictDuration metric.Float64Histogram
	// SpeakDuration tracks POST /speak round-trip latency.
	SpeakDuration metric.Float64Histogram

	// BackendRequests counts backend calls. Attributes: endpoint, status.
	BackendRequests metric.Int64Counter
	// BackendErrors counts failed backend calls. Attributes: endpoint.
	BackendErrors metric.Int64Counter

	// Ticks counts capture-loop ticks.
	Ticks metric.Int64Counter
	// PredictInFlight tracks outstanding prediction calls.
	PredictInFlight metric.Int64UpDownCounter
	// StaleResponses counts prediction responses dropped by the stale guard.
	StaleResponses metric.Int64Counter

	// SpeechDropped counts speak requests rejected before sending. Attributes: reason.
	SpeechDropped metric.Int64Counter
}

var latencyBuckets = []float64{
	0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30,
}

// NewMetrics creates every instrument on the given provider.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.PredictDuration, err = m.Float64Histogram("signcast.predict.duration",
		metric.WithDescription("Latency of prediction requests."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SpeakDuration, err = m.Float64Histogram("signcast.speak.duration",
		metric.WithDescription("Latency of speech requests."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	if met.BackendRequests, err = m.Int64Counter("signcast.backend.requests",
		metric.WithDescription("Backend requests by endpoint and status."),
	); err != nil {
		return nil, err
	}
	if met.BackendErrors, err = m.Int64Counter("signcast.backend.errors",
		metric.WithDescription("Failed backend requests by endpoint."),
	); err != nil {
		return nil, err
	}

	if met.Ticks, err = m.Int64Counter("signcast.capture.ticks",
		metric.WithDescription("Capture loop ticks."),
	); err != nil {
		return nil, err
	}
	if met.PredictInFlight, err = m.Int64UpDownCounter("signcast.predict.in_flight",
		metric.WithDescription("Prediction requests currently outstanding."),
	); err != nil {
		return nil, err
	}
	if met.StaleResponses, err = m.Int64Counter("signcast.predict.stale",
		metric.WithDescription("Prediction responses discarded as stale."),
	); err != nil {
		return nil, err
	}

	if met.SpeechDropped, err = m.Int64Counter("signcast.speech.dropped",
		metric.WithDescription("Speak requests rejected before sending, by reason."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level instance built on the global provider.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}
