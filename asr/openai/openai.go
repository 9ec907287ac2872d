// Package openai is the ASR adapter for the OpenAI transcription API.
package openai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/kbukum/voicegate/asr"
	"github.com/kbukum/voicegate/provider"
)

// ErrMissingAPIKey is reported by Probe and CheckConfig.
var ErrMissingAPIKey = errors.New("OPENAI_API_KEY not configured")

// Config holds the OpenAI settings.
type Config struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
	Prompt  string `mapstructure:"prompt"`
}

// Provider implements asr.Provider with CreateTranscription.
type Provider struct {
	cfg    Config
	client *goopenai.Client
}

var _ asr.Provider = (*Provider)(nil)

// NewProvider creates the provider. A missing key is reported by
// CheckConfig rather than here so the provider can still be listed.
func NewProvider(cfg Config) *Provider {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.Model == "" {
		cfg.Model = goopenai.Whisper1
	}
	clientConfig := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &Provider{cfg: cfg, client: goopenai.NewClientWithConfig(clientConfig)}
}

func (p *Provider) Name() string { return asr.OpenAIWhisper }

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

func (p *Provider) Execute(ctx context.Context, in asr.Request) (asr.Response, error) {
	if err := p.CheckConfig(); err != nil {
		return asr.Response{}, err
	}
	filename := in.Filename
	if filename == "" {
		filename = "audio.wav"
	}
	req := goopenai.AudioRequest{
		Model:    p.cfg.Model,
		FilePath: filename,
		Reader:   bytes.NewReader(in.Audio),
		Prompt:   p.cfg.Prompt,
		Format:   goopenai.AudioResponseFormatJSON,
	}
	if in.Language != "" && in.Language != "auto" {
		req.Language = in.Language
	}

	resp, err := p.client.CreateTranscription(ctx, req)
	if err != nil {
		return asr.Response{}, fmt.Errorf("openai transcription: %w", err)
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return asr.Response{}, errors.New("openai transcription returned no text")
	}
	return asr.Response{Text: text, Language: resp.Language}, nil
}
