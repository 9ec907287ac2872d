package asr

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kbukum/voicegate/audio"
	"github.com/kbukum/voicegate/availability"
	"github.com/kbukum/voicegate/broker"
	apperrors "github.com/kbukum/voicegate/errors"
	"github.com/kbukum/voicegate/logger"
	"github.com/kbukum/voicegate/provider"
)

type stubProvider struct {
	name  string
	text  string
	err   error
	probe provider.ProbeResult
	got   Request
}

func (s *stubProvider) Name() string                               { return s.name }
func (s *stubProvider) Probe(context.Context) provider.ProbeResult { return s.probe }
func (s *stubProvider) Execute(_ context.Context, req Request) (Response, error) {
	s.got = req
	if s.err != nil {
		return Response{}, s.err
	}
	return Response{Text: s.text}, nil
}

func newService(t *testing.T, providers ...Provider) *Service {
	t.Helper()
	reg := NewRegistry()
	for _, p := range providers {
		reg.Register(p)
	}
	orch := broker.New(broker.Config{
		Capability:         Capability,
		Defaults:           DefaultPriority,
		UnavailableMessage: UnavailableMessage,
	}, reg, availability.NewLedger(), broker.WithLogger(logger.NewNop()))
	return NewService(orch)
}

func TestInferFormat(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"clip.WAV", "wav"},
		{" voice.opus ", "opus"},
		{"a.b.amr", "amr"},
		{"recording.flac", "pcm"},
		{"noext", "pcm"},
		{"", "pcm"},
	}
	for _, tc := range tests {
		if got := InferFormat(tc.filename, "pcm"); got != tc.want {
			t.Errorf("InferFormat(%q) = %q, want %q", tc.filename, got, tc.want)
		}
	}
}

func TestInferSampleRate(t *testing.T) {
	wav := audio.PCM16{SampleRate: 8000}.WAV(make([]byte, 16))
	if got := InferSampleRate(wav, "wav", 16000); got != 8000 {
		t.Errorf("expected header rate 8000, got %d", got)
	}
	if got := InferSampleRate(wav, "pcm", 16000); got != 16000 {
		t.Errorf("non-wav formats use the fallback, got %d", got)
	}
	if got := InferSampleRate([]byte("garbage"), "wav", 16000); got != 16000 {
		t.Errorf("bad header should use the fallback, got %d", got)
	}
}

func TestService_Transcribe(t *testing.T) {
	down := &stubProvider{name: SenseVoiceHTTP, probe: provider.ProbeFailed("connection refused")}
	up := &stubProvider{name: FunASRRealtime, probe: provider.ProbeOK(), text: "hello"}
	svc := newService(t, down, up)

	got, err := svc.Transcribe(context.Background(), Request{Audio: []byte{1, 2}, Filename: "a.wav"}, "")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if got.Text != "hello" || got.Provider != FunASRRealtime {
		t.Errorf("unexpected result %+v", got)
	}
	if len(got.Failures) != 1 || got.Failures[0].Provider != SenseVoiceHTTP {
		t.Errorf("expected the sensevoice failure to be reported, got %+v", got.Failures)
	}
	if up.got.Filename != "a.wav" {
		t.Errorf("request not forwarded, got %+v", up.got)
	}
}

func TestService_EmptyAudio(t *testing.T) {
	p := &stubProvider{name: SenseVoiceHTTP, probe: provider.ProbeOK(), text: "x"}
	_, err := newService(t, p).Transcribe(context.Background(), Request{}, "")
	if !apperrors.IsCode(err, apperrors.ErrCodeInvalidInput) {
		t.Fatalf("expected INVALID_INPUT, got %v", err)
	}
	if p.got.Filename != "" || p.got.Audio != nil {
		t.Error("provider must not be called for empty audio")
	}
}

func TestService_Unavailable(t *testing.T) {
	a := &stubProvider{name: SenseVoiceHTTP, probe: provider.ProbeOK(), err: errors.New("http 500")}
	b := &stubProvider{name: FunASRRealtime, probe: provider.ProbeFailed("DASHSCOPE_API_KEY not configured")}
	_, err := newService(t, a, b).Transcribe(context.Background(), Request{Audio: []byte{1}}, "auto")

	app, ok := apperrors.AsAppError(err)
	if !ok || app.Code != apperrors.ErrCodeProviderUnavailable {
		t.Fatalf("expected PROVIDER_UNAVAILABLE, got %v", err)
	}
	for _, want := range []string{UnavailableMessage, "sensevoice_http: http 500", "fun_asr_realtime: probe failed (DASHSCOPE_API_KEY not configured)"} {
		if !strings.Contains(app.Message, want) {
			t.Errorf("message %q missing %q", app.Message, want)
		}
	}
}

func TestService_ProbeAllAndStatuses(t *testing.T) {
	a := &stubProvider{name: SenseVoiceHTTP, probe: provider.ProbeOK()}
	b := &stubProvider{name: FunASRRealtime, probe: provider.ProbeFailed("no key")}
	svc := newService(t, a, b)

	probes := svc.ProbeAll(context.Background())
	if !probes[SenseVoiceHTTP].OK || probes[FunASRRealtime].OK || probes[FunASRRealtime].Reason != "no key" {
		t.Errorf("unexpected probes %+v", probes)
	}
	statuses := svc.Statuses()
	if len(statuses) != 2 || statuses[0].Provider != SenseVoiceHTTP {
		t.Errorf("unexpected statuses %+v", statuses)
	}
	if _, ok := svc.Provider("SenseVoice_HTTP"); !ok {
		t.Error("expected case-insensitive lookup")
	}
}
