package provider

import "context"

// Middleware wraps a RequestResponse provider with cross-cutting behavior.
// Wrappers forward Name and CheckConfig to the inner provider.
type Middleware[I, O any] func(RequestResponse[I, O]) RequestResponse[I, O]

// Chain composes middlewares. The first is outermost:
// Chain(a, b, c)(p) is a(b(c(p))).
func Chain[I, O any](middlewares ...Middleware[I, O]) Middleware[I, O] {
	return func(inner RequestResponse[I, O]) RequestResponse[I, O] {
		for i := len(middlewares) - 1; i >= 0; i-- {
			inner = middlewares[i](inner)
		}
		return inner
	}
}

// Unwrapper is implemented by middleware wrappers.
type Unwrapper[I, O any] interface {
	Unwrap() RequestResponse[I, O]
}

// Unwrap strips every middleware layer from p.
func Unwrap[I, O any](p RequestResponse[I, O]) RequestResponse[I, O] {
	for {
		u, ok := p.(Unwrapper[I, O])
		if !ok {
			return p
		}
		p = u.Unwrap()
	}
}

// wrapped carries the pass-through methods shared by every wrapper.
type wrapped[I, O any] struct {
	inner RequestResponse[I, O]
}

func (w wrapped[I, O]) Name() string                          { return w.inner.Name() }
func (w wrapped[I, O]) CheckConfig() error                    { return CheckConfig(w.inner) }
func (w wrapped[I, O]) Unwrap() RequestResponse[I, O]         { return w.inner }
func (w wrapped[I, O]) probe(ctx context.Context) ProbeResult { return w.inner.Probe(ctx) }
