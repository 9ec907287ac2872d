package provider

import (
	"context"
	"time"

	"github.com/kbukum/voicegate/logger"
)

// WithLogging logs every Execute and failed Probe call.
func WithLogging[I, O any](log *logger.Logger) Middleware[I, O] {
	return func(inner RequestResponse[I, O]) RequestResponse[I, O] {
		return &loggingRR[I, O]{wrapped: wrapped[I, O]{inner}, log: log}
	}
}

type loggingRR[I, O any] struct {
	wrapped[I, O]
	log *logger.Logger
}

func (l *loggingRR[I, O]) Probe(ctx context.Context) ProbeResult {
	res := l.probe(ctx)
	if !res.OK {
		l.log.WithContext(ctx).Debug("provider probe failed", logger.Fields(
			logger.FieldProvider, l.Name(),
			logger.FieldReason, res.Reason,
		))
	}
	return res
}

func (l *loggingRR[I, O]) Execute(ctx context.Context, input I) (O, error) {
	start := time.Now()
	output, err := l.inner.Execute(ctx, input)
	fields := logger.MergeWithDuration(logger.Fields(logger.FieldProvider, l.Name()), time.Since(start))

	log := l.log.WithContext(ctx)
	if err != nil {
		fields[logger.FieldError] = err.Error()
		log.Warn("provider execute failed", fields)
	} else {
		log.Debug("provider execute ok", fields)
	}
	return output, err
}
