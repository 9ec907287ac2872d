// Package observability wires OpenTelemetry tracing and metrics.
//
// Traces are exported over OTLP/HTTP. Metrics go either to an OTLP/HTTP
// collector or to a Prometheus registry scraped from /metrics:
//
//	tp, err := observability.InitTracer(ctx, &cfg.Tracing)
//	defer tp.Shutdown(ctx)
//
//	mp, err := observability.InitMeter(ctx, &cfg.Metrics)
//	defer mp.Shutdown(ctx)
//
//	m, err := observability.NewMetrics(observability.Meter("voicegate"))
//	m.RecordAttempt(ctx, "asr", "sensevoice_http", observability.OutcomeSuccess, elapsed)
//
// A nil *Metrics is valid and records nothing.
package observability
