package provider

import (
	"context"

	"github.com/kbukum/voicegate/observability"
)

// WithTracing opens a span around every Probe and Execute call.
func WithTracing[I, O any](capability string) Middleware[I, O] {
	return func(inner RequestResponse[I, O]) RequestResponse[I, O] {
		return &tracingRR[I, O]{wrapped: wrapped[I, O]{inner}, capability: capability}
	}
}

type tracingRR[I, O any] struct {
	wrapped[I, O]
	capability string
}

func (t *tracingRR[I, O]) start(ctx context.Context, span string) context.Context {
	ctx, _ = observability.StartSpan(ctx, span)
	observability.SetSpanAttribute(ctx, observability.AttrCapability, t.capability)
	observability.SetSpanAttribute(ctx, observability.AttrProvider, t.Name())
	return ctx
}

func (t *tracingRR[I, O]) Probe(ctx context.Context) ProbeResult {
	ctx = t.start(ctx, observability.SpanProviderProbe)
	defer observability.SpanFromContext(ctx).End()

	res := t.probe(ctx)
	observability.SetSpanAttribute(ctx, "probe.ok", res.OK)
	return res
}

func (t *tracingRR[I, O]) Execute(ctx context.Context, input I) (O, error) {
	ctx = t.start(ctx, observability.SpanProviderInvoke)
	defer observability.SpanFromContext(ctx).End()

	output, err := t.inner.Execute(ctx, input)
	observability.SetSpanError(ctx, err)
	return output, err
}
