// Package observe provides application-wide observability primitives for
// Scribbler: OpenTelemetry metrics, tracing, structured logging, and HTTP
// middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still
// be scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Scribbler metrics.
const meterName = "github.com/drdevinhopkins/scribbler"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// SessionDuration tracks the total wall time of dictation sessions.
	SessionDuration metric.Float64Histogram

	// NoteDuration tracks dictation-to-note completion latency.
	NoteDuration metric.Float64Histogram

	// HTTPRequestDuration tracks HTTP request processing time. Use with
	// attributes: attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram

	// EventsAppended counts event log appends. Use with attributes:
	//   attribute.String("type", ...), attribute.String("origin", ...)
	EventsAppended metric.Int64Counter

	// NoteRequests counts note generation attempts by status.
	NoteRequests metric.Int64Counter

	// NoteErrors counts failed note generation attempts.
	NoteErrors metric.Int64Counter

	// ActiveSessions tracks the number of live dictation sessions.
	ActiveSessions metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds). Note
// generation calls dominate the long tail.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.SessionDuration, err = m.Float64Histogram("scribbler.session.duration",
		metric.WithDescription("Total wall time of dictation sessions."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.NoteDuration, err = m.Float64Histogram("scribbler.note.duration",
		metric.WithDescription("Latency of dictation-to-note completion calls."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("scribbler.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if met.EventsAppended, err = m.Int64Counter("scribbler.events.appended",
		metric.WithDescription("Event log appends by event type and origin."),
	); err != nil {
		return nil, err
	}
	if met.NoteRequests, err = m.Int64Counter("scribbler.note.requests",
		metric.WithDescription("Note generation attempts by status."),
	); err != nil {
		return nil, err
	}
	if met.NoteErrors, err = m.Int64Counter("scribbler.note.errors",
		metric.WithDescription("Failed note generation attempts."),
	); err != nil {
		return nil, err
	}

	if met.ActiveSessions, err = m.Int64UpDownCounter("scribbler.active_sessions",
		metric.WithDescription("Number of live dictation sessions."),
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

// DefaultMetrics returns the package-level [Metrics] instance, creating it
// on first call using [otel.GetMeterProvider]. Subsequent calls return the
// same pointer. Panics if instrument creation fails (should not happen with
// the global provider).
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

// SessionStarted records a session becoming active.
func (m *Metrics) SessionStarted(ctx context.Context) {
	m.ActiveSessions.Add(ctx, 1)
}

// SessionStopped records a session ending after the given duration.
func (m *Metrics) SessionStopped(ctx context.Context, d time.Duration) {
	m.ActiveSessions.Add(ctx, -1)
	m.SessionDuration.Record(ctx, d.Seconds())
}

// EventAppended records one event log append.
func (m *Metrics) EventAppended(ctx context.Context, eventType, origin string) {
	m.EventsAppended.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("type", eventType),
			attribute.String("origin", origin),
		),
	)
}

// NoteAttempt records one note generation attempt with its outcome.
func (m *Metrics) NoteAttempt(ctx context.Context, status string, d time.Duration) {
	m.NoteRequests.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)),
	)
	m.NoteDuration.Record(ctx, d.Seconds())
	if status != "ok" {
		m.NoteErrors.Add(ctx, 1)
	}
}
