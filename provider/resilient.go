package provider

import (
	"context"
	"errors"

	apperrors "github.com/kbukum/voicegate/errors"
	"github.com/kbukum/voicegate/resilience"
)

// ResilienceConfig holds optional per-provider call guards. Nil fields are
// skipped.
type ResilienceConfig struct {
	RateLimiter *resilience.RateLimiterConfig
	Bulkhead    *resilience.BulkheadConfig
}

// IsEmpty reports whether no guard is configured.
func (c ResilienceConfig) IsEmpty() bool {
	return c.RateLimiter == nil && c.Bulkhead == nil
}

// WithResilience guards Execute with a rate limiter and then a bulkhead.
// Probe is not guarded. An empty config returns the provider unchanged.
func WithResilience[I, O any](cfg ResilienceConfig) Middleware[I, O] {
	return func(inner RequestResponse[I, O]) RequestResponse[I, O] {
		if cfg.IsEmpty() {
			return inner
		}
		r := &resilientRR[I, O]{wrapped: wrapped[I, O]{inner}}
		if cfg.RateLimiter != nil {
			r.limiter = resilience.NewRateLimiter(*cfg.RateLimiter)
		}
		if cfg.Bulkhead != nil {
			r.bulkhead = resilience.NewBulkhead(*cfg.Bulkhead)
		}
		return r
	}
}

type resilientRR[I, O any] struct {
	wrapped[I, O]
	limiter  *resilience.RateLimiter
	bulkhead *resilience.Bulkhead
}

func (r *resilientRR[I, O]) Probe(ctx context.Context) ProbeResult { return r.probe(ctx) }

func (r *resilientRR[I, O]) Execute(ctx context.Context, input I) (O, error) {
	var output O
	call := func() error {
		var err error
		output, err = r.inner.Execute(ctx, input)
		return err
	}
	if r.bulkhead != nil {
		inner := call
		call = func() error { return r.bulkhead.Execute(ctx, inner) }
	}
	if r.limiter != nil {
		inner := call
		call = func() error { return r.limiter.Execute(ctx, inner) }
	}
	err := call()
	return output, r.wrapGuardError(err)
}

// wrapGuardError turns guard rejections into AppErrors and leaves adapter
// errors untouched.
func (r *resilientRR[I, O]) wrapGuardError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, resilience.ErrRateLimited):
		return apperrors.RateLimited(r.Name()).WithCause(err)
	case errors.Is(err, resilience.ErrBulkheadFull), errors.Is(err, resilience.ErrBulkheadTimeout):
		return apperrors.RateLimited(r.Name()).WithCause(err).WithDetail("reason", "concurrency limit reached")
	default:
		return err
	}
}
