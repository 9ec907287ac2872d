// Package funasr is the ASR adapter for DashScope Fun-ASR realtime
// recognition over its duplex websocket API.
//
// Execute streams a whole recording through one Session. The realtime
// relay route opens Sessions directly and forwards frames as they arrive.
package funasr

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kbukum/voicegate/asr"
	"github.com/kbukum/voicegate/provider"
)

const (
	// DefaultURL is the DashScope inference websocket endpoint.
	DefaultURL = "wss://dashscope.aliyuncs.com/api-ws/v1/inference"

	defaultModel              = "fun-asr-realtime"
	defaultFormat             = "pcm"
	defaultSampleRate         = 16000
	defaultMaxSentenceSilence = 1300

	minPCMChunk     = 1024
	maxPCMChunk     = 16 * 1024
	compressedChunk = 4 * 1024
)

// ErrMissingAPIKey is reported by Probe and CheckConfig.
var ErrMissingAPIKey = errors.New("DASHSCOPE_API_KEY not configured")

// Config holds the Fun-ASR settings.
type Config struct {
	APIKey               string   `mapstructure:"api_key"`
	URL                  string   `mapstructure:"url"`
	Model                string   `mapstructure:"model"`
	Format               string   `mapstructure:"format"`
	SampleRate           int      `mapstructure:"sample_rate"`
	SemanticPunctuation  bool     `mapstructure:"semantic_punctuation_enabled"`
	MaxSentenceSilence   int      `mapstructure:"max_sentence_silence"`
	MultiThresholdMode   bool     `mapstructure:"multi_threshold_mode_enabled"`
	Heartbeat            bool     `mapstructure:"heartbeat"`
	LanguageHints        []string `mapstructure:"language_hints"`
	VocabularyID         string   `mapstructure:"vocabulary_id"`
	SpeechNoiseThreshold *float64 `mapstructure:"speech_noise_threshold"`
}

// Provider implements asr.Provider on Fun-ASR.
type Provider struct {
	cfg Config
}

var _ asr.Provider = (*Provider)(nil)

// NewProvider creates a Fun-ASR provider.
func NewProvider(cfg Config) *Provider {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	cfg.Format = strings.ToLower(strings.TrimSpace(cfg.Format))
	if cfg.Format == "" {
		cfg.Format = defaultFormat
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = defaultSampleRate
	}
	if cfg.MaxSentenceSilence <= 0 {
		cfg.MaxSentenceSilence = defaultMaxSentenceSilence
	}
	return &Provider{cfg: cfg}
}

func (p *Provider) Name() string { return asr.FunASRRealtime }

// Format returns the configured default audio format.
func (p *Provider) Format() string { return p.cfg.Format }

// SampleRate returns the configured default sample rate.
func (p *Provider) SampleRate() int { return p.cfg.SampleRate }

// CheckConfig requires an API key.
func (p *Provider) CheckConfig() error {
	if p.cfg.APIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}

// Probe only checks for the API key; dialing DashScope costs a task.
func (p *Provider) Probe(context.Context) provider.ProbeResult {
	if err := p.CheckConfig(); err != nil {
		return provider.ProbeFailed(err.Error())
	}
	return provider.ProbeOK()
}

// Execute streams the recording in chunks and merges the results.
func (p *Provider) Execute(ctx context.Context, in asr.Request) (asr.Response, error) {
	if len(in.Audio) == 0 {
		return asr.Response{}, errors.New("fun-asr: empty audio cannot be transcribed")
	}
	format := in.Format
	if format == "" {
		format = asr.InferFormat(in.Filename, p.cfg.Format)
	}
	rate := in.SampleRate
	if rate <= 0 {
		rate = asr.InferSampleRate(in.Audio, format, p.cfg.SampleRate)
	}

	sess, err := p.Open(ctx, format, rate)
	if err != nil {
		return asr.Response{}, err
	}
	defer sess.Close()

	size := ChunkSize(format, rate)
	for start := 0; start < len(in.Audio); start += size {
		end := min(start+size, len(in.Audio))
		if err := sess.SendAudio(ctx, in.Audio[start:end]); err != nil {
			return asr.Response{}, err
		}
	}
	if err := sess.Finish(ctx); err != nil {
		return asr.Response{}, err
	}

	var events []Event
	for {
		select {
		case ev, ok := <-sess.Events():
			if !ok {
				return merged(events)
			}
			if ev.Type == EventError {
				return asr.Response{}, fmt.Errorf("fun-asr: recognition failed: %s", ev.Error)
			}
			events = append(events, ev)
		case <-ctx.Done():
			return asr.Response{}, ctx.Err()
		}
	}
}

func merged(events []Event) (asr.Response, error) {
	text := MergeResults(events)
	if text == "" {
		return asr.Response{}, errors.New("fun-asr: no usable text returned")
	}
	return asr.Response{Text: text}, nil
}

// ChunkSize returns the frame size for streaming a recording: 100 ms of
// 16-bit mono PCM bounded to 1..16 KiB, or 4 KiB for compressed formats.
func ChunkSize(format string, sampleRate int) int {
	if strings.ToLower(strings.TrimSpace(format)) != "pcm" {
		return compressedChunk
	}
	return min(max(sampleRate*2/10, minPCMChunk), maxPCMChunk)
}
