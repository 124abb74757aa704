// Package observe provides application-wide observability primitives:
// OpenTelemetry metrics, tracing helpers, structured logging, and HTTP
// middleware that ties them together.
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

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/arthur-assist/arthur"

// Metrics holds all OpenTelemetry metric instruments for the assistant.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// STTDuration tracks speech-to-text transcription latency.
	STTDuration metric.Float64Histogram

	// ThinkDuration tracks LLM reasoning latency.
	ThinkDuration metric.Float64Histogram

	// TTSDuration tracks text-to-speech synthesis latency.
	TTSDuration metric.Float64Histogram

	// --- Counters ---

	// Utterances counts segmented utterances by gate outcome. Use with
	// attribute.String("outcome", ...): ignored, woken, command, expired,
	// ended.
	Utterances metric.Int64Counter

	// Commands counts handled commands by intent. Use with
	// attribute.String("intent", ...).
	Commands metric.Int64Counter

	// RemindersDelivered counts reminder notifications sent.
	RemindersDelivered metric.Int64Counter

	// FocusSessions counts focus intervals by result. Use with
	// attribute.String("result", ...): completed, stopped, discarded.
	FocusSessions metric.Int64Counter

	// ProviderErrors counts provider failures. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// --- Gauges ---

	// ConversationActive is 1 while the wake-word gate holds an open
	// conversation.
	ConversationActive metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with
	// attributes: attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// voice-pipeline latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.STTDuration, err = m.Float64Histogram("arthur.stt.duration",
		metric.WithDescription("Latency of speech-to-text transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ThinkDuration, err = m.Float64Histogram("arthur.think.duration",
		metric.WithDescription("Latency of LLM reasoning."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TTSDuration, err = m.Float64Histogram("arthur.tts.duration",
		metric.WithDescription("Latency of text-to-speech synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.Utterances, err = m.Int64Counter("arthur.utterances",
		metric.WithDescription("Segmented utterances by gate outcome."),
	); err != nil {
		return nil, err
	}
	if met.Commands, err = m.Int64Counter("arthur.commands",
		metric.WithDescription("Handled commands by intent."),
	); err != nil {
		return nil, err
	}
	if met.RemindersDelivered, err = m.Int64Counter("arthur.reminders.delivered",
		metric.WithDescription("Reminder notifications delivered."),
	); err != nil {
		return nil, err
	}
	if met.FocusSessions, err = m.Int64Counter("arthur.focus.sessions",
		metric.WithDescription("Focus intervals by result."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("arthur.provider.errors",
		metric.WithDescription("Provider failures by provider and kind."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ConversationActive, err = m.Int64UpDownCounter("arthur.conversation.active",
		metric.WithDescription("Whether a wake-word conversation is open."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("arthur.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
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

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordUtterance records one segmented utterance with its gate outcome.
// Nil-safe so callers can run without metrics wired.
func (m *Metrics) RecordUtterance(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.Utterances.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordCommand records one handled command with its intent name. Nil-safe.
func (m *Metrics) RecordCommand(ctx context.Context, intent string) {
	if m == nil {
		return
	}
	m.Commands.Add(ctx, 1, metric.WithAttributes(attribute.String("intent", intent)))
}

// RecordReminderDelivered records one reminder notification sent. Nil-safe.
func (m *Metrics) RecordReminderDelivered(ctx context.Context) {
	if m == nil {
		return
	}
	m.RemindersDelivered.Add(ctx, 1)
}

// RecordFocusSession records one finished focus interval with its result:
// completed, stopped, or discarded. Nil-safe.
func (m *Metrics) RecordFocusSession(ctx context.Context, result string) {
	if m == nil {
		return
	}
	m.FocusSessions.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// RecordProviderError records a provider failure. Nil-safe.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	if m == nil {
		return
	}
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}
