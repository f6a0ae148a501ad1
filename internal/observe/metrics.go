// Package observe provides application-wide observability primitives for
// livecap: OpenTelemetry metrics and the provider setup that bridges them to
// Prometheus.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all livecap metrics.
const meterName = "github.com/livecap-io/livecap"

// Metrics holds all OpenTelemetry metric instruments for the caption
// pipeline. All fields are safe for concurrent use; the underlying OTel
// types handle their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// TranscriptionDuration tracks per-utterance transcription request latency.
	TranscriptionDuration metric.Float64Histogram

	// TranslationDuration tracks per-utterance translation request latency.
	TranslationDuration metric.Float64Histogram

	// --- Counters ---

	// Utterances counts utterances emitted by the segmenter. Use with
	// attribute.String("reason", "silence"|"ceiling"|"flush").
	Utterances metric.Int64Counter

	// Captions counts caption results released to sinks. Use with
	// attribute.String("status", ...).
	Captions metric.Int64Counter

	// GapTimeouts counts sequencer gaps that exceeded the wait bound and were
	// synthesised as failed.
	GapTimeouts metric.Int64Counter

	// DiscardedBursts counts active-audio runs dropped by the segmenter for
	// falling below the minimum speech duration.
	DiscardedBursts metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of live capture sessions.
	ActiveSessions metric.Int64UpDownCounter

	// InFlight tracks the number of utterance requests currently in flight.
	InFlight metric.Int64UpDownCounter

	// QueuedUtterances tracks utterances numbered but waiting for a dispatch
	// slot.
	QueuedUtterances metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for caption-path latencies.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.TranscriptionDuration, err = m.Float64Histogram("livecap.transcription.duration",
		metric.WithDescription("Latency of transcription requests."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TranslationDuration, err = m.Float64Histogram("livecap.translation.duration",
		metric.WithDescription("Latency of translation requests."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	if met.Utterances, err = m.Int64Counter("livecap.utterances",
		metric.WithDescription("Utterances finalised by the segmenter."),
	); err != nil {
		return nil, err
	}
	if met.Captions, err = m.Int64Counter("livecap.captions",
		metric.WithDescription("Caption results released to sinks, by status."),
	); err != nil {
		return nil, err
	}
	if met.GapTimeouts, err = m.Int64Counter("livecap.sequencer.gap_timeouts",
		metric.WithDescription("Sequencer gaps synthesised as failed after the wait bound."),
	); err != nil {
		return nil, err
	}
	if met.DiscardedBursts, err = m.Int64Counter("livecap.vad.discarded_bursts",
		metric.WithDescription("Audio bursts dropped for falling below the minimum speech duration."),
	); err != nil {
		return nil, err
	}

	if met.ActiveSessions, err = m.Int64UpDownCounter("livecap.sessions.active",
		metric.WithDescription("Live capture sessions."),
	); err != nil {
		return nil, err
	}
	if met.InFlight, err = m.Int64UpDownCounter("livecap.dispatch.in_flight",
		metric.WithDescription("Utterance requests currently in flight."),
	); err != nil {
		return nil, err
	}
	if met.QueuedUtterances, err = m.Int64UpDownCounter("livecap.dispatch.queued",
		metric.WithDescription("Utterances numbered but waiting for a dispatch slot."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level Metrics instance, created lazily
// from the global OTel meter provider. Panics if instrument creation fails,
// which only happens with a misconfigured SDK.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		m, err := NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: create default metrics: " + err.Error())
		}
		defaultMetrics = m
	})
	return defaultMetrics
}

// RecordCaption increments the caption counter with the given status
// attribute. A nil receiver is a no-op, so pipeline code can run unmetered in
// tests.
func (m *Metrics) RecordCaption(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.Captions.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// RecordUtterance increments the utterance counter with the given finalise
// reason. A nil receiver is a no-op.
func (m *Metrics) RecordUtterance(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.Utterances.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// AddDiscardedBursts adds n to the discarded-burst counter. A nil receiver
// is a no-op.
func (m *Metrics) AddDiscardedBursts(ctx context.Context, n int64) {
	if m == nil || n == 0 {
		return
	}
	m.DiscardedBursts.Add(ctx, n)
}
