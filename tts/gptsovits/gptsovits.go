// Package gptsovits is the TTS adapter for a self-hosted GPT-SoVITS API
// server.
package gptsovits

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kbukum/voicegate/provider"
	"github.com/kbukum/voicegate/tts"
)

const (
	defaultBaseURL = "http://127.0.0.1:9880"
	defaultTimeout = 60 * time.Second
)

var (
	placeholderRefs = map[string]bool{
		"path/to/ref.wav":           true,
		"path/to/reference.wav":     true,
		"reference/placeholder.wav": true,
		"placeholder.wav":           true,
	}
	missingRefHints = []string{
		"ref_audio_path", "no such file", "not found", "not exists", "no exists",
		"path/to/ref.wav", "不存在", "无法找到",
	}
)

// Config holds the GPT-SoVITS server settings.
type Config struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Provider implements tts.Provider against POST {base}/tts.
type Provider struct {
	cfg    Config
	client *http.Client
}

var _ tts.Provider = (*Provider)(nil)

// NewProvider creates a GPT-SoVITS provider.
func NewProvider(cfg Config) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Provider{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}
}

func (p *Provider) Name() string { return tts.GPTSoVITS }

// Close drops pooled connections.
func (p *Provider) Close(context.Context) error {
	p.client.CloseIdleConnections()
	return nil
}

// Probe reports the server reachable on any HTTP response.
func (p *Provider) Probe(ctx context.Context) provider.ProbeResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.BaseURL, nil)
	if err != nil {
		return provider.ProbeFailed(fmt.Sprintf("GPT-SoVITS unreachable: %v", err))
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return provider.ProbeFailed(fmt.Sprintf("GPT-SoVITS unreachable: %v", err))
	}
	resp.Body.Close()
	return provider.ProbeOK()
}

type ttsPayload struct {
	Text            string  `json:"text"`
	TextLang        string  `json:"text_lang"`
	RefAudioPath    string  `json:"ref_audio_path,omitempty"`
	PromptText      string  `json:"prompt_text"`
	PromptLang      string  `json:"prompt_lang"`
	TextSplitMethod string  `json:"text_split_method"`
	SpeedFactor     float64 `json:"speed_factor"`
	TopK            int     `json:"top_k"`
	TopP            float64 `json:"top_p"`
	Temperature     float64 `json:"temperature"`
	BatchSize       int     `json:"batch_size"`
	MediaType       string  `json:"media_type"`
	StreamingMode   bool    `json:"streaming_mode"`
}

type autoRefPayload struct {
	Text          string `json:"text"`
	MediaType     string `json:"media_type"`
	StreamingMode bool   `json:"streaming_mode"`
}

// Execute synthesizes through /tts. When the reference audio is missing or
// rejected it retries /tts_to_audio/, which picks a reference itself.
func (p *Provider) Execute(ctx context.Context, in tts.Request) (tts.Response, error) {
	params := in.Params.WithDefaults()
	payload := ttsPayload{
		Text:            in.Text,
		TextLang:        params.TextLang,
		RefAudioPath:    normalizeRef(params.RefAudioPath),
		PromptText:      params.PromptText,
		PromptLang:      params.PromptLang,
		TextSplitMethod: params.TextSplitMethod,
		SpeedFactor:     params.SpeedFactor,
		TopK:            params.TopK,
		TopP:            params.TopP,
		Temperature:     params.Temperature,
		BatchSize:       params.BatchSize,
		MediaType:       params.MediaType,
		StreamingMode:   params.StreamingMode,
	}

	res, err := p.post(ctx, "/tts", payload)
	if err == nil {
		return res, nil
	}
	if !shouldRetryWithAutoRef(payload.RefAudioPath, err.Error()) || strings.TrimSpace(in.Text) == "" {
		return tts.Response{}, err
	}

	res, fallbackErr := p.post(ctx, "/tts_to_audio/", autoRefPayload{
		Text:          strings.TrimSpace(in.Text),
		MediaType:     payload.MediaType,
		StreamingMode: payload.StreamingMode,
	})
	if fallbackErr != nil {
		return tts.Response{}, fmt.Errorf("%v; fallback /tts_to_audio/ also failed: %w", err, fallbackErr)
	}
	return res, nil
}

func (p *Provider) post(ctx context.Context, path string, payload any) (tts.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return tts.Response{}, fmt.Errorf("encode GPT-SoVITS request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return tts.Response{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return tts.Response{}, fmt.Errorf("cannot reach GPT-SoVITS: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return tts.Response{}, fmt.Errorf("read GPT-SoVITS response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return tts.Response{}, fmt.Errorf("HTTP %d: %s", resp.StatusCode, raw)
	}
	mediaType := resp.Header.Get("Content-Type")
	if mediaType == "" {
		mediaType = "audio/wav"
	}
	if strings.HasPrefix(mediaType, "application/json") {
		return tts.Response{}, fmt.Errorf("GPT-SoVITS returned an error: %s", raw)
	}
	return tts.Response{Audio: raw, MediaType: mediaType}, nil
}

// normalizeRef strips quotes and drops the sample placeholder paths that
// ship in GPT-SoVITS configs.
func normalizeRef(ref string) string {
	ref = strings.Trim(strings.TrimSpace(ref), `"'`)
	if ref == "" {
		return ""
	}
	if placeholderRefs[strings.ReplaceAll(strings.ToLower(ref), `\`, "/")] {
		return ""
	}
	return ref
}

func shouldRetryWithAutoRef(ref, message string) bool {
	if ref == "" {
		return true
	}
	lower := strings.ToLower(message)
	for _, hint := range missingRefHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}
