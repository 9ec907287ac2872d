// Package sensevoice is the ASR adapter for a self-hosted SenseVoice HTTP
// server.
package sensevoice

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/kbukum/voicegate/asr"
	"github.com/kbukum/voicegate/provider"
)

const (
	defaultBaseURL  = "http://127.0.0.1:50000"
	defaultLanguage = "auto"
	defaultTimeout  = 60 * time.Second

	previewLimit = 240
)

var (
	textKeys      = []string{"text", "clean_text", "raw_text", "transcript", "asr_text"}
	containerKeys = []string{"result", "results", "data", "items", "segments"}
)

// Config holds the SenseVoice server settings.
type Config struct {
	BaseURL  string        `mapstructure:"base_url"`
	Language string        `mapstructure:"language"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Provider implements asr.Provider against POST {base}/api/v1/asr.
type Provider struct {
	cfg    Config
	client *http.Client
}

var _ asr.Provider = (*Provider)(nil)

// NewProvider creates a SenseVoice provider.
func NewProvider(cfg Config) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Language == "" {
		cfg.Language = defaultLanguage
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Provider{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}
}

func (p *Provider) Name() string { return asr.SenseVoiceHTTP }

// Close drops pooled connections.
func (p *Provider) Close(context.Context) error {
	p.client.CloseIdleConnections()
	return nil
}

// Probe reports the server reachable on any HTTP response, including 404.
func (p *Provider) Probe(ctx context.Context) provider.ProbeResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.BaseURL, nil)
	if err != nil {
		return provider.ProbeFailed(fmt.Sprintf("SenseVoice unreachable: %v", err))
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return provider.ProbeFailed(fmt.Sprintf("SenseVoice unreachable: %v", err))
	}
	resp.Body.Close()
	return provider.ProbeOK()
}

// Execute uploads the audio and extracts the transcript from the response.
func (p *Provider) Execute(ctx context.Context, in asr.Request) (asr.Response, error) {
	lang := strings.TrimSpace(in.Language)
	if lang == "" {
		lang = p.cfg.Language
	}
	filename := in.Filename
	if filename == "" {
		filename = "audio.wav"
	}

	body, contentType, err := multipartBody(in.Audio, filename, lang)
	if err != nil {
		return asr.Response{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/api/v1/asr", body)
	if err != nil {
		return asr.Response{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := p.client.Do(req)
	if err != nil {
		return asr.Response{}, fmt.Errorf("ASR request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return asr.Response{}, fmt.Errorf("read ASR response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return asr.Response{}, fmt.Errorf("ASR request failed: status %d: %s", resp.StatusCode, preview(raw))
	}
	if !gjson.ValidBytes(raw) {
		return asr.Response{}, fmt.Errorf("ASR returned a non-JSON response")
	}

	text := extractText(gjson.ParseBytes(raw))
	if text == "" {
		return asr.Response{}, fmt.Errorf("ASR returned no usable transcript, response: %s", preview(raw))
	}
	return asr.Response{Text: text, Language: lang}, nil
}

func multipartBody(audio []byte, filename, lang string) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename=%q`, filename))
	h.Set("Content-Type", "audio/wav")
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, "", fmt.Errorf("write audio data: %w", err)
	}
	_ = w.WriteField("keys", "audio")
	_ = w.WriteField("lang", lang)
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

// extractText returns the first non-blank transcript field, searching
// nested containers and arrays depth first.
func extractText(v gjson.Result) string {
	switch {
	case v.IsObject():
		for _, key := range textKeys {
			if f := v.Get(key); f.Type == gjson.String {
				if s := strings.TrimSpace(f.Str); s != "" {
					return s
				}
			}
		}
		for _, key := range containerKeys {
			if f := v.Get(key); f.Exists() {
				if s := extractText(f); s != "" {
					return s
				}
			}
		}
	case v.IsArray():
		for _, item := range v.Array() {
			if s := extractText(item); s != "" {
				return s
			}
		}
	}
	return ""
}

func preview(raw []byte) string {
	r := []rune(string(raw))
	if len(r) > previewLimit {
		return string(r[:previewLimit]) + "..."
	}
	return string(r)
}
