package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestDefaultConfigs(t *testing.T) {
	tc := DefaultTracerConfig("voicegate")
	if tc.ServiceName != "voicegate" || tc.SampleRate != 1.0 || !tc.Insecure {
		t.Errorf("unexpected tracer defaults %+v", tc)
	}
	mc := DefaultMeterConfig("voicegate")
	if mc.Exporter != ExporterPrometheus || mc.Interval != 15*time.Second {
		t.Errorf("unexpected meter defaults %+v", mc)
	}
	if err := mc.Validate(); err != nil {
		t.Errorf("default meter config should validate: %v", err)
	}
	mc.Exporter = "statsd"
	if err := mc.Validate(); err == nil {
		t.Error("expected error for unknown exporter")
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.RecordRequestStart(ctx)
	m.RecordRequestEnd(ctx, "GET", "/health", 200, time.Millisecond)
	m.RecordAttempt(ctx, "asr", "sensevoice_http", OutcomeSuccess, time.Millisecond)
	m.RecordSkip(ctx, "asr", "sensevoice_http")
	m.RecordProbe(ctx, "asr", "sensevoice_http", false)
	m.RecordExhausted(ctx, "asr")
	m.RecordEnrollment(ctx, "qwen_clone_tts", "existing")
	m.RecordError(ctx, "TIMEOUT", "broker")
}

func TestNewMetrics_Noop(t *testing.T) {
	m, err := NewMetrics(noop.NewMeterProvider().Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	m.RecordAttempt(context.Background(), "tts", "gpt_sovits", OutcomeFailure, time.Second)
}

func TestMetrics_ManualReader(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	m, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	ctx := context.Background()
	m.RecordAttempt(ctx, "asr", "sensevoice_http", OutcomeFailure, 20*time.Millisecond)
	m.RecordAttempt(ctx, "asr", "fun_asr_realtime", OutcomeSuccess, 30*time.Millisecond)
	m.RecordSkip(ctx, "asr", "sensevoice_http")
	m.RecordExhausted(ctx, "tts")

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}

	sums := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			if s, ok := md.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range s.DataPoints {
					sums[md.Name] += dp.Value
				}
			}
		}
	}
	if sums["provider.attempt.total"] != 2 {
		t.Errorf("expected 2 attempts, got %d", sums["provider.attempt.total"])
	}
	if sums["provider.skip.total"] != 1 {
		t.Errorf("expected 1 skip, got %d", sums["provider.skip.total"])
	}
	if sums["broker.fallback.exhausted.total"] != 1 {
		t.Errorf("expected 1 exhaustion, got %d", sums["broker.fallback.exhausted.total"])
	}
}

func TestSpanHelpers(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	}()

	ctx, span := StartSpan(context.Background(), SpanBrokerExecute)
	SetSpanAttribute(ctx, AttrCapability, "asr")
	SetSpanAttribute(ctx, AttrAttempts, 2)
	SetSpanAttribute(ctx, AttrPinned, false)
	SetSpanAttribute(ctx, "ignored", struct{}{})
	SetSpanError(ctx, errors.New("all providers failed"))
	span.End()

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name != SpanBrokerExecute {
		t.Errorf("unexpected span name %q", spans[0].Name)
	}
	if len(spans[0].Events) != 1 {
		t.Errorf("expected the error event to be recorded, got %d events", len(spans[0].Events))
	}
	found := false
	for _, kv := range spans[0].Attributes {
		if string(kv.Key) == AttrCapability && kv.Value.AsString() == "asr" {
			found = true
		}
	}
	if !found {
		t.Errorf("capability attribute missing: %v", spans[0].Attributes)
	}
}

func TestSpanHelpers_NoRecordingSpan(t *testing.T) {
	ctx := context.Background()
	SetSpanAttribute(ctx, "key", "value")
	SetSpanError(ctx, errors.New("ignored"))
	SetSpanError(ctx, nil)
}

type staticChecker Health

func (s staticChecker) CheckHealth(context.Context) Health { return Health(s) }

func TestCheck(t *testing.T) {
	sh := Check(context.Background(), "voicegate", "1.0.0",
		staticChecker{Name: "asr", Status: HealthStatusUp},
		staticChecker{Name: "tts", Status: HealthStatusDegraded},
	)
	if sh.Status != HealthStatusDegraded || len(sh.Components) != 2 {
		t.Errorf("unexpected health %+v", sh)
	}

	sh.AddComponent(Health{Name: "voicestore", Status: HealthStatusDown})
	sh.AddComponent(Health{Name: "late", Status: HealthStatusDegraded})
	if sh.Status != HealthStatusDown {
		t.Errorf("degraded must not override down, got %s", sh.Status)
	}
}

func TestInitMeter_Prometheus(t *testing.T) {
	cfg := DefaultMeterConfig("voicegate-test")
	mp, err := InitMeter(context.Background(), &cfg)
	if err != nil {
		t.Skipf("InitMeter failed: %v", err)
	}
	defer mp.Shutdown(context.Background())
	if Meter("voicegate") == nil {
		t.Error("expected a meter from the global provider")
	}
}
