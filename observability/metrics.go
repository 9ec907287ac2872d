package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Attempt outcomes.
const (
	OutcomeSuccess   = "success"
	OutcomeFailure   = "failure"
	OutcomeCancelled = "cancelled"
)

// Metrics holds the service's instruments. All methods are no-ops on a nil
// receiver.
type Metrics struct {
	requestTotal    metric.Int64Counter
	requestDuration metric.Float64Histogram
	requestActive   metric.Int64UpDownCounter
	attemptTotal    metric.Int64Counter
	attemptDuration metric.Float64Histogram
	skipTotal       metric.Int64Counter
	probeTotal      metric.Int64Counter
	exhaustedTotal  metric.Int64Counter
	enrollmentTotal metric.Int64Counter
	errorTotal      metric.Int64Counter
}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	if m.requestTotal, err = meter.Int64Counter("http.request.total",
		metric.WithDescription("HTTP requests served")); err != nil {
		return nil, fmt.Errorf("creating http.request.total: %w", err)
	}
	if m.requestDuration, err = meter.Float64Histogram("http.request.duration",
		metric.WithDescription("HTTP request latency"), metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("creating http.request.duration: %w", err)
	}
	if m.requestActive, err = meter.Int64UpDownCounter("http.request.active",
		metric.WithDescription("HTTP requests in flight")); err != nil {
		return nil, fmt.Errorf("creating http.request.active: %w", err)
	}
	if m.attemptTotal, err = meter.Int64Counter("provider.attempt.total",
		metric.WithDescription("Provider invocations by outcome")); err != nil {
		return nil, fmt.Errorf("creating provider.attempt.total: %w", err)
	}
	if m.attemptDuration, err = meter.Float64Histogram("provider.attempt.duration",
		metric.WithDescription("Provider invocation latency"), metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("creating provider.attempt.duration: %w", err)
	}
	if m.skipTotal, err = meter.Int64Counter("provider.skip.total",
		metric.WithDescription("Providers skipped while cooling down")); err != nil {
		return nil, fmt.Errorf("creating provider.skip.total: %w", err)
	}
	if m.probeTotal, err = meter.Int64Counter("provider.probe.total",
		metric.WithDescription("Provider probes by result")); err != nil {
		return nil, fmt.Errorf("creating provider.probe.total: %w", err)
	}
	if m.exhaustedTotal, err = meter.Int64Counter("broker.fallback.exhausted.total",
		metric.WithDescription("Requests for which every provider failed")); err != nil {
		return nil, fmt.Errorf("creating broker.fallback.exhausted.total: %w", err)
	}
	if m.enrollmentTotal, err = meter.Int64Counter("tts.voice.enrollment.total",
		metric.WithDescription("Voice enrollments by source")); err != nil {
		return nil, fmt.Errorf("creating tts.voice.enrollment.total: %w", err)
	}
	if m.errorTotal, err = meter.Int64Counter("error.total",
		metric.WithDescription("Errors by code and component")); err != nil {
		return nil, fmt.Errorf("creating error.total: %w", err)
	}
	return m, nil
}

// RecordRequestStart increments the in-flight request gauge.
func (m *Metrics) RecordRequestStart(ctx context.Context) {
	if m == nil {
		return
	}
	m.requestActive.Add(ctx, 1)
}

// RecordRequestEnd records a finished HTTP request.
func (m *Metrics) RecordRequestEnd(ctx context.Context, method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestActive.Add(ctx, -1)
	m.requestTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.Int("status", status),
	))
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
	))
}

// RecordAttempt records one provider invocation.
func (m *Metrics) RecordAttempt(ctx context.Context, capability, provider, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("capability", capability),
		attribute.String("provider", provider),
		attribute.String("outcome", outcome),
	)
	m.attemptTotal.Add(ctx, 1, attrs)
	m.attemptDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordSkip records a provider skipped because it was cooling down.
func (m *Metrics) RecordSkip(ctx context.Context, capability, provider string) {
	if m == nil {
		return
	}
	m.skipTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("capability", capability),
		attribute.String("provider", provider),
	))
}

// RecordProbe records a probe result.
func (m *Metrics) RecordProbe(ctx context.Context, capability, provider string, ok bool) {
	if m == nil {
		return
	}
	m.probeTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("capability", capability),
		attribute.String("provider", provider),
		attribute.Bool("ok", ok),
	))
}

// RecordExhausted records a request that ran out of providers.
func (m *Metrics) RecordExhausted(ctx context.Context, capability string) {
	if m == nil {
		return
	}
	m.exhaustedTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("capability", capability)))
}

// RecordEnrollment records a voice enrollment; source is "existing" or "enrollment".
func (m *Metrics) RecordEnrollment(ctx context.Context, provider, source string) {
	if m == nil {
		return
	}
	m.enrollmentTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("source", source),
	))
}

// RecordError records an error by code and component.
func (m *Metrics) RecordError(ctx context.Context, code, component string) {
	if m == nil {
		return
	}
	m.errorTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("code", code),
		attribute.String("component", component),
	))
}
