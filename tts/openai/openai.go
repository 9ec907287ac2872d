// Package openai is the TTS adapter for the OpenAI speech API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/kbukum/voicegate/provider"
	"github.com/kbukum/voicegate/tts"
)

// ErrMissingAPIKey is reported by Probe and CheckConfig.
var ErrMissingAPIKey = errors.New("OPENAI_API_KEY not configured")

// speech formats and the media type each is served as, keyed by Params.MediaType.
var formats = map[string]struct {
	format    goopenai.SpeechResponseFormat
	mediaType string
}{
	"wav": {goopenai.SpeechResponseFormatWav, "audio/wav"},
	"raw": {goopenai.SpeechResponseFormatPcm, "audio/pcm"},
	"ogg": {goopenai.SpeechResponseFormatOpus, "audio/ogg"},
	"aac": {goopenai.SpeechResponseFormatAac, "audio/aac"},
}

// Config holds the OpenAI speech settings.
type Config struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
	Voice   string `mapstructure:"voice"`
}

// Provider implements tts.Provider with CreateSpeech.
type Provider struct {
	cfg    Config
	client *goopenai.Client
}

var _ tts.Provider = (*Provider)(nil)

// NewProvider creates the provider.
func NewProvider(cfg Config) *Provider {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.Model == "" {
		cfg.Model = string(goopenai.TTSModel1)
	}
	if cfg.Voice == "" {
		cfg.Voice = string(goopenai.VoiceAlloy)
	}
	clientConfig := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &Provider{cfg: cfg, client: goopenai.NewClientWithConfig(clientConfig)}
}

func (p *Provider) Name() string { return tts.OpenAITTS }

// CheckConfig requires an API key.
func (p *Provider) CheckConfig() error {
	if p.cfg.APIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}

// Probe checks for the API key only.
func (p *Provider) Probe(context.Context) provider.ProbeResult {
	if err := p.CheckConfig(); err != nil {
		return provider.ProbeFailed(err.Error())
	}
	return provider.ProbeOK()
}

func (p *Provider) Execute(ctx context.Context, in tts.Request) (tts.Response, error) {
	if err := p.CheckConfig(); err != nil {
		return tts.Response{}, err
	}
	params := in.Params.WithDefaults()
	f, ok := formats[params.MediaType]
	if !ok {
		f = formats["wav"]
	}

	resp, err := p.client.CreateSpeech(ctx, goopenai.CreateSpeechRequest{
		Model:          goopenai.SpeechModel(p.cfg.Model),
		Input:          in.Text,
		Voice:          goopenai.SpeechVoice(p.cfg.Voice),
		ResponseFormat: f.format,
		Speed:          params.SpeedFactor,
	})
	if err != nil {
		return tts.Response{}, fmt.Errorf("openai speech: %w", err)
	}
	defer resp.Close()

	data, err := io.ReadAll(resp)
	if err != nil {
		return tts.Response{}, fmt.Errorf("read openai speech: %w", err)
	}
	if len(data) == 0 {
		return tts.Response{}, errors.New("openai speech returned no audio")
	}
	mediaType := f.mediaType
	if mt, _, err := mime.ParseMediaType(resp.Header().Get("Content-Type")); err == nil && strings.HasPrefix(mt, "audio/") {
		mediaType = mt
	}
	return tts.Response{Audio: data, MediaType: mediaType}, nil
}
