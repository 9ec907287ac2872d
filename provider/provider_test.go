package provider_test

import (
	"context"
	"errors"
	"runtime"
	"slices"
	"sync/atomic"
	"testing"

	apperrors "github.com/kbukum/voicegate/errors"
	"github.com/kbukum/voicegate/logger"
	"github.com/kbukum/voicegate/observability"
	"github.com/kbukum/voicegate/provider"
	"github.com/kbukum/voicegate/resilience"
)

type echoProvider struct {
	name      string
	probe     provider.ProbeResult
	configErr error
	execErr   error
	calls     atomic.Int32
	block     chan struct{}
}

func (e *echoProvider) Name() string { return e.name }

func (e *echoProvider) Probe(context.Context) provider.ProbeResult { return e.probe }

func (e *echoProvider) CheckConfig() error { return e.configErr }

func (e *echoProvider) Execute(_ context.Context, in string) (string, error) {
	e.calls.Add(1)
	if e.block != nil {
		<-e.block
	}
	if e.execErr != nil {
		return "", e.execErr
	}
	return "echo:" + in, nil
}

type plainProvider struct{ name string }

func (p plainProvider) Name() string                               { return p.name }
func (p plainProvider) Probe(context.Context) provider.ProbeResult { return provider.ProbeOK() }
func (p plainProvider) Execute(_ context.Context, in string) (string, error) {
	return in, nil
}

func TestRegistry_AliasAndCanonical(t *testing.T) {
	reg := provider.NewRegistry[provider.RequestResponse[string, string]]()
	reg.Register(&echoProvider{name: "qwen_clone_tts"})
	reg.Register(&echoProvider{name: "gpt_sovits"})
	if err := reg.Alias("CosyVoice_TTS", "qwen_clone_tts"); err != nil {
		t.Fatal(err)
	}

	name, ok := reg.Canonical("  cosyvoice_tts ")
	if !ok || name != "qwen_clone_tts" {
		t.Errorf("expected alias to resolve, got %q %v", name, ok)
	}
	if _, ok := reg.Canonical("espeak"); ok {
		t.Error("unknown provider should not resolve")
	}
	p, ok := reg.Get("COSYVOICE_TTS")
	if !ok || p.Name() != "qwen_clone_tts" {
		t.Errorf("Get should follow aliases, got %v", p)
	}
	if err := reg.Alias("gpt_sovits", "qwen_clone_tts"); err == nil {
		t.Error("alias must not shadow a registered provider")
	}
	if !slices.Equal(reg.Names(), []string{"qwen_clone_tts", "gpt_sovits"}) {
		t.Errorf("unexpected names %v", reg.Names())
	}
	if reg.Aliases()["cosyvoice_tts"] != "qwen_clone_tts" {
		t.Errorf("unexpected aliases %v", reg.Aliases())
	}
}

func TestRegistry_Resolve(t *testing.T) {
	reg := provider.NewRegistry[provider.RequestResponse[string, string]]()
	reg.Register(&echoProvider{name: "qwen_clone_tts"})
	reg.Register(&echoProvider{name: "gpt_sovits"})
	_ = reg.Alias("cosyvoice_tts", "qwen_clone_tts")
	defaults := []string{"qwen_clone_tts", "gpt_sovits"}

	tests := []struct {
		name        string
		input       []string
		want        []string
		wantUnknown []string
	}{
		{"configured order", []string{"gpt_sovits", "qwen_clone_tts"}, []string{"gpt_sovits", "qwen_clone_tts"}, nil},
		{"alias dedupe keeps first", []string{"cosyvoice_tts", "gpt_sovits", "qwen_clone_tts"}, []string{"qwen_clone_tts", "gpt_sovits"}, nil},
		{"empty falls back", nil, defaults, nil},
		{"blank entries ignored", []string{" ", ""}, defaults, nil},
		{"unknown only falls back", []string{"espeak"}, defaults, []string{"espeak"}},
		{"unknown dropped", []string{"espeak", "gpt_sovits"}, []string{"gpt_sovits"}, []string{"espeak"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, unknown := reg.Resolve(tc.input, defaults)
			if !slices.Equal(got, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, got)
			}
			if !slices.Equal(unknown, tc.wantUnknown) {
				t.Errorf("expected unknown %v, got %v", tc.wantUnknown, unknown)
			}
		})
	}
}

func TestChain_OrderAndPassThrough(t *testing.T) {
	var order []string
	tag := func(name string) provider.Middleware[string, string] {
		return func(inner provider.RequestResponse[string, string]) provider.RequestResponse[string, string] {
			return &orderTracker{RequestResponse: inner, tag: name, order: &order}
		}
	}

	p := &echoProvider{name: "sensevoice_http", probe: provider.ProbeOK()}
	wrapped := provider.Chain(tag("A"), tag("B"))(p)
	out, err := wrapped.Execute(context.Background(), "x")
	if err != nil || out != "echo:x" {
		t.Fatalf("unexpected result %q %v", out, err)
	}
	if !slices.Equal(order, []string{"A:before", "B:before", "B:after", "A:after"}) {
		t.Errorf("unexpected order %v", order)
	}
}

type orderTracker struct {
	provider.RequestResponse[string, string]
	tag   string
	order *[]string
}

func (o *orderTracker) Execute(ctx context.Context, in string) (string, error) {
	*o.order = append(*o.order, o.tag+":before")
	out, err := o.RequestResponse.Execute(ctx, in)
	*o.order = append(*o.order, o.tag+":after")
	return out, err
}

func TestMiddleware_ForwardsProbeAndConfig(t *testing.T) {
	metrics, err := observability.NewMetrics(observability.Meter("test"))
	if err != nil {
		t.Fatal(err)
	}
	configErr := errors.New("api key is empty")
	p := &echoProvider{name: "fun_asr_realtime", probe: provider.ProbeFailed("missing key"), configErr: configErr}

	wrapped := provider.Chain(
		provider.WithLogging[string, string](logger.NewNop()),
		provider.WithTracing[string, string]("asr"),
		provider.WithMetrics[string, string](metrics, "asr"),
		provider.WithResilience[string, string](provider.ResilienceConfig{
			Bulkhead: &resilience.BulkheadConfig{MaxConcurrent: 2},
		}),
	)(p)

	if wrapped.Name() != "fun_asr_realtime" {
		t.Errorf("unexpected name %q", wrapped.Name())
	}
	if res := wrapped.Probe(context.Background()); res.OK || res.Reason != "missing key" {
		t.Errorf("probe result not forwarded: %+v", res)
	}
	if err := provider.CheckConfig(wrapped); !errors.Is(err, configErr) {
		t.Errorf("CheckConfig not forwarded: %v", err)
	}
	if provider.Unwrap[string, string](wrapped) != provider.RequestResponse[string, string](p) {
		t.Error("Unwrap should reach the adapter")
	}
	if out, err := wrapped.Execute(context.Background(), "hi"); err != nil || out != "echo:hi" {
		t.Errorf("unexpected execute result %q %v", out, err)
	}
}

func TestCheckConfig_NonChecker(t *testing.T) {
	if err := provider.CheckConfig(plainProvider{name: "whisper_http"}); err != nil {
		t.Errorf("providers without a checker are always configured, got %v", err)
	}
	wrapped := provider.WithLogging[string, string](logger.NewNop())(plainProvider{name: "whisper_http"})
	if err := provider.CheckConfig(wrapped); err != nil {
		t.Errorf("wrapper around a non-checker should report nil, got %v", err)
	}
}

func TestWithResilience_BulkheadRejection(t *testing.T) {
	block := make(chan struct{})
	p := &echoProvider{name: "gpt_sovits", block: block}
	wrapped := provider.WithResilience[string, string](provider.ResilienceConfig{
		Bulkhead: &resilience.BulkheadConfig{MaxConcurrent: 1},
	})(p)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = wrapped.Execute(context.Background(), "first")
	}()
	for p.calls.Load() == 0 {
		runtime.Gosched()
	}

	_, err := wrapped.Execute(context.Background(), "second")
	if !apperrors.IsCode(err, apperrors.ErrCodeRateLimited) {
		t.Errorf("expected RATE_LIMITED, got %v", err)
	}
	close(block)
	<-done
}

func TestWithResilience_RateLimiterAndPassThrough(t *testing.T) {
	adapterErr := errors.New("upstream 500")
	p := &echoProvider{name: "qwen_clone_tts", execErr: adapterErr}
	wrapped := provider.WithResilience[string, string](provider.ResilienceConfig{
		RateLimiter: &resilience.RateLimiterConfig{Rate: 0.001, Burst: 1},
	})(p)

	if _, err := wrapped.Execute(context.Background(), "a"); !errors.Is(err, adapterErr) {
		t.Errorf("adapter errors must pass through unchanged, got %v", err)
	}
	if _, err := wrapped.Execute(context.Background(), "b"); !apperrors.IsCode(err, apperrors.ErrCodeRateLimited) {
		t.Errorf("expected RATE_LIMITED, got %v", err)
	}

	same := provider.WithResilience[string, string](provider.ResilienceConfig{})(p)
	if same != provider.RequestResponse[string, string](p) {
		t.Error("empty config should return the provider unchanged")
	}
}

type closer struct {
	plainProvider
	closed *int
	err    error
}

func (c closer) Close(context.Context) error {
	*c.closed++
	return c.err
}

func TestCloseAll(t *testing.T) {
	closed := 0
	boom := errors.New("close failed")
	err := provider.CloseAll[provider.Provider](context.Background(),
		closer{plainProvider{"a"}, &closed, boom},
		plainProvider{"b"},
		closer{plainProvider{"c"}, &closed, nil},
	)
	if !errors.Is(err, boom) || closed != 2 {
		t.Errorf("expected both closers called and first error returned, got %d %v", closed, err)
	}
}
