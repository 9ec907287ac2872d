package funasr_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/voicegate/asr"
	"github.com/kbukum/voicegate/asr/funasr"
	"github.com/kbukum/voicegate/asr/funasr/funasrtest"
	"github.com/kbukum/voicegate/audio"
)

func newProvider(srv *funasrtest.Server) *funasr.Provider {
	return funasr.NewProvider(funasr.Config{
		APIKey:        "sk-test",
		URL:           srv.URL(),
		LanguageHints: []string{"zh", "en"},
		VocabularyID:  " vocab-1 ",
	})
}

func TestExecute_StreamsAndMerges(t *testing.T) {
	srv := funasrtest.NewServer()
	defer srv.Close()
	srv.APIKey = "sk-test"
	srv.Script = []funasrtest.Sentence{
		{Text: "今天"},
		{Text: "今天天气"},
		{Text: "今天天气很好。", SentenceEnd: true},
		{Text: "我们出去走走吧。", SentenceEnd: true},
	}

	pcm := bytes.Repeat([]byte{1, 2}, 5000)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, err := newProvider(srv).Execute(ctx, asr.Request{Audio: pcm, Filename: "mic.pcm"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Text != "今天天气很好。我们出去走走吧。" {
		t.Errorf("unexpected text %q", res.Text)
	}

	frames, got := srv.Received()
	if !bytes.Equal(got, pcm) {
		t.Errorf("server received %d bytes, want %d", len(got), len(pcm))
	}
	// 16 kHz PCM streams in 3200-byte frames
	if frames != 4 {
		t.Errorf("expected 4 frames, got %d", frames)
	}

	params := srv.Parameters()
	if params.Get("format").String() != "pcm" || params.Get("sample_rate").Int() != 16000 {
		t.Errorf("unexpected audio parameters %s", params.Raw)
	}
	if params.Get("vocabulary_id").String() != "vocab-1" || len(params.Get("language_hints").Array()) != 2 {
		t.Errorf("unexpected recognition parameters %s", params.Raw)
	}
	if params.Get("speech_noise_threshold").Exists() {
		t.Error("unset noise threshold must be omitted")
	}
	if srv.Model() != "fun-asr-realtime" {
		t.Errorf("unexpected model %q", srv.Model())
	}
}

func TestExecute_WAVSampleRateFromHeader(t *testing.T) {
	srv := funasrtest.NewServer()
	defer srv.Close()
	srv.Script = []funasrtest.Sentence{{Text: "ok", SentenceEnd: true}}

	wav := audio.PCM16{SampleRate: 8000}.WAV(make([]byte, 100))
	if _, err := newProvider(srv).Execute(context.Background(), asr.Request{Audio: wav, Filename: "a.wav"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	params := srv.Parameters()
	if params.Get("format").String() != "wav" || params.Get("sample_rate").Int() != 8000 {
		t.Errorf("unexpected parameters %s", params.Raw)
	}
}

func TestExecute_Failures(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(*funasrtest.Server)
		req     asr.Request
		wantErr string
	}{
		{"empty audio", func(*funasrtest.Server) {}, asr.Request{}, "empty audio"},
		{"start rejected", func(s *funasrtest.Server) { s.RejectStart = "model not found" }, asr.Request{Audio: []byte{1}}, "model not found"},
		{"task failed", func(s *funasrtest.Server) { s.FailWith = "audio decode error" }, asr.Request{Audio: []byte{1}}, "audio decode error"},
		{"no text", func(s *funasrtest.Server) { s.Script = []funasrtest.Sentence{{Text: "  "}} }, asr.Request{Audio: []byte{1}}, "no usable text"},
		{"wrong key", func(s *funasrtest.Server) { s.APIKey = "other" }, asr.Request{Audio: []byte{1}}, "dial"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := funasrtest.NewServer()
			defer srv.Close()
			tc.setup(srv)
			_, err := newProvider(srv).Execute(context.Background(), tc.req)
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestSession_RelayLifecycle(t *testing.T) {
	srv := funasrtest.NewServer()
	defer srv.Close()
	srv.Script = []funasrtest.Sentence{{Text: "hi", SentenceEnd: true}}

	ctx := context.Background()
	sess, err := newProvider(srv).Open(ctx, "", 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer sess.Close()
	if sess.TaskID() == "" || strings.Contains(sess.TaskID(), "-") {
		t.Errorf("unexpected task id %q", sess.TaskID())
	}

	if err := sess.SendAudio(ctx, []byte{1, 2, 3}); err != nil {
		t.Fatalf("SendAudio: %v", err)
	}
	if err := sess.SendAudio(ctx, nil); err != nil {
		t.Fatalf("empty frames are ignored, got %v", err)
	}
	if err := sess.Finish(ctx); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if err := sess.Finish(ctx); err != nil {
		t.Fatalf("Finish must be idempotent, got %v", err)
	}
	if err := sess.SendAudio(ctx, []byte{4}); !errors.Is(err, funasr.ErrSessionFinished) {
		t.Errorf("expected ErrSessionFinished, got %v", err)
	}

	var types []string
	for ev := range sess.Events() {
		types = append(types, ev.Type)
		if ev.Type == funasr.EventResult && (ev.Text != "hi" || !ev.SentenceEnd || ev.Usage["duration"] == nil) {
			t.Errorf("unexpected result %+v", ev)
		}
	}
	if strings.Join(types, ",") != "result,complete" {
		t.Errorf("unexpected event sequence %v", types)
	}
}

func TestProbeAndCheckConfig(t *testing.T) {
	p := funasr.NewProvider(funasr.Config{APIKey: "  "})
	if err := p.CheckConfig(); !errors.Is(err, funasr.ErrMissingAPIKey) {
		t.Errorf("expected missing key, got %v", err)
	}
	if res := p.Probe(context.Background()); res.OK || res.Reason != "DASHSCOPE_API_KEY not configured" {
		t.Errorf("unexpected probe %+v", res)
	}
	p = funasr.NewProvider(funasr.Config{APIKey: "k"})
	if res := p.Probe(context.Background()); !res.OK {
		t.Errorf("expected ok, got %+v", res)
	}
	if p.Format() != "pcm" || p.SampleRate() != 16000 {
		t.Errorf("unexpected defaults %s/%d", p.Format(), p.SampleRate())
	}
}

func TestChunkSize(t *testing.T) {
	tests := []struct {
		format string
		rate   int
		want   int
	}{
		{"pcm", 16000, 3200},
		{"PCM", 2000, 1024},
		{"pcm", 192000, 16384},
		{"wav", 16000, 4096},
		{"opus", 48000, 4096},
	}
	for _, tc := range tests {
		if got := funasr.ChunkSize(tc.format, tc.rate); got != tc.want {
			t.Errorf("ChunkSize(%s, %d) = %d, want %d", tc.format, tc.rate, got, tc.want)
		}
	}
}
