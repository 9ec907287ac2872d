// Package whisper is the ASR adapter for a self-hosted faster-whisper HTTP
// sidecar.
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/kbukum/voicegate/asr"
	"github.com/kbukum/voicegate/provider"
)

const (
	defaultURL     = "http://localhost:8387"
	defaultModel   = "base"
	defaultTimeout = 120 * time.Second
)

// Config holds configuration for the Whisper sidecar.
type Config struct {
	URL         string        `mapstructure:"url"`
	Model       string        `mapstructure:"model"`
	Language    string        `mapstructure:"language"`
	Device      string        `mapstructure:"device"`
	ComputeType string        `mapstructure:"compute_type"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// Provider implements asr.Provider using the sidecar's /transcribe route.
type Provider struct {
	cfg    Config
	client *http.Client
}

var _ asr.Provider = (*Provider)(nil)

// NewProvider creates a new Whisper provider.
func NewProvider(cfg Config) *Provider {
	if cfg.URL == "" {
		cfg.URL = defaultURL
	}
	cfg.URL = strings.TrimRight(cfg.URL, "/")
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Provider{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}
}

func (p *Provider) Name() string { return asr.WhisperHTTP }

// Probe requires GET /health to answer 200.
func (p *Provider) Probe(ctx context.Context) provider.ProbeResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.URL+"/health", nil)
	if err != nil {
		return provider.ProbeFailed(err.Error())
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return provider.ProbeFailed(fmt.Sprintf("whisper unreachable: %v", err))
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return provider.ProbeFailed(fmt.Sprintf("whisper health returned %d", resp.StatusCode))
	}
	return provider.ProbeOK()
}

// Execute sends the audio to the sidecar and returns its transcription.
func (p *Provider) Execute(ctx context.Context, in asr.Request) (asr.Response, error) {
	lang := p.cfg.Language
	if in.Language != "" && in.Language != "auto" {
		lang = in.Language
	}
	filename := in.Filename
	if filename == "" {
		filename = "audio.wav"
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("audio", filename)
	if err != nil {
		return asr.Response{}, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(in.Audio); err != nil {
		return asr.Response{}, fmt.Errorf("write audio data: %w", err)
	}
	_ = writer.WriteField("model", p.cfg.Model)
	if lang != "" {
		_ = writer.WriteField("language", lang)
	}
	if p.cfg.Device != "" {
		_ = writer.WriteField("device", p.cfg.Device)
	}
	if p.cfg.ComputeType != "" {
		_ = writer.WriteField("compute_type", p.cfg.ComputeType)
	}
	writer.Close()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.URL+"/transcribe", &buf)
	if err != nil {
		return asr.Response{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return asr.Response{}, fmt.Errorf("whisper request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return asr.Response{}, fmt.Errorf("whisper error (status %d): %s", resp.StatusCode, string(body))
	}

	var result whisperResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return asr.Response{}, fmt.Errorf("decode whisper response: %w", err)
	}
	return result.toResponse()
}

type whisperResponse struct {
	Text     string           `json:"text"`
	Segments []whisperSegment `json:"segments"`
	Language string           `json:"language"`
}

type whisperSegment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// toResponse falls back to joining segments when the sidecar leaves the
// top-level text empty.
func (r *whisperResponse) toResponse() (asr.Response, error) {
	text := strings.TrimSpace(r.Text)
	if text == "" {
		parts := make([]string, 0, len(r.Segments))
		for _, seg := range r.Segments {
			if s := strings.TrimSpace(seg.Text); s != "" {
				parts = append(parts, s)
			}
		}
		text = strings.Join(parts, " ")
	}
	if text == "" {
		return asr.Response{}, fmt.Errorf("whisper returned no text")
	}
	return asr.Response{Text: text, Language: r.Language}, nil
}
