package provider

import (
	"context"
	"errors"
	"time"

	"github.com/kbukum/voicegate/observability"
)

// WithMetrics records attempt and probe counters for capability.
func WithMetrics[I, O any](metrics *observability.Metrics, capability string) Middleware[I, O] {
	return func(inner RequestResponse[I, O]) RequestResponse[I, O] {
		return &metricsRR[I, O]{wrapped: wrapped[I, O]{inner}, metrics: metrics, capability: capability}
	}
}

type metricsRR[I, O any] struct {
	wrapped[I, O]
	metrics    *observability.Metrics
	capability string
}

func (m *metricsRR[I, O]) Probe(ctx context.Context) ProbeResult {
	res := m.probe(ctx)
	m.metrics.RecordProbe(ctx, m.capability, m.Name(), res.OK)
	return res
}

func (m *metricsRR[I, O]) Execute(ctx context.Context, input I) (O, error) {
	start := time.Now()
	output, err := m.inner.Execute(ctx, input)

	outcome := observability.OutcomeSuccess
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled) && ctx.Err() != nil:
		outcome = observability.OutcomeCancelled
	default:
		outcome = observability.OutcomeFailure
	}
	m.metrics.RecordAttempt(ctx, m.capability, m.Name(), outcome, time.Since(start))
	return output, err
}
