// Package qwen is the TTS adapter for DashScope Qwen voice cloning.
//
// A request is spoken with a cloned voice. The voice id comes from the
// request, the configuration, the voice store, the account's voice list or,
// when enabled, a fresh enrollment. Models whose name contains "realtime"
// synthesize over the realtime websocket; the others call the
// multimodal-generation endpoint and download the result.
package qwen

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kbukum/voicegate/logger"
	"github.com/kbukum/voicegate/provider"
	"github.com/kbukum/voicegate/tts"
	"github.com/kbukum/voicegate/tts/voicestore"
)

// DashScope endpoints.
const (
	DefaultCustomizationURL = "https://dashscope.aliyuncs.com/api/v1/services/audio/tts/customization"
	DefaultRealtimeURL      = "wss://dashscope.aliyuncs.com/api-ws/v1/realtime"
	DefaultGenerationURL    = "https://dashscope.aliyuncs.com/api/v1/services/aigc/multimodal-generation/generation"

	intlHost             = "dashscope-intl.aliyuncs.com"
	intlGenerationURL    = "https://dashscope-intl.aliyuncs.com/api/v1/services/aigc/multimodal-generation/generation"
	defaultTargetModel   = "qwen3-tts-vc-realtime-2025-11-27"
	defaultVoicePrefix   = "voicegate"
	defaultVoiceAlias    = "default"
	defaultPollInterval  = 2 * time.Second
	defaultPollAttempts  = 30
	defaultTimeout       = 60 * time.Second
	resolveListPageSize  = 50
	realtimeSampleRate   = 24000
	realtimeModelKeyword = "realtime"
	// maxAudioBytes caps synthesized audio read from either path.
	maxAudioBytes = 16 << 20
)

// ErrMissingAPIKey is reported by Probe and CheckConfig.
var ErrMissingAPIKey = errors.New("DASHSCOPE_API_KEY not configured")

// Config holds the voice clone settings.
type Config struct {
	APIKey           string `mapstructure:"api_key"`
	CustomizationURL string `mapstructure:"customization_url"`
	RealtimeURL      string `mapstructure:"realtime_url"`
	GenerationURL    string `mapstructure:"generation_url"`
	// TargetModel is the synthesis model a voice is enrolled for.
	TargetModel string `mapstructure:"target_model"`
	// VoiceID pins a voice and skips resolution.
	VoiceID     string `mapstructure:"voice_id"`
	VoicePrefix string `mapstructure:"voice_prefix"`
	// VoiceAlias is the voice store key for the resolved voice.
	VoiceAlias      string        `mapstructure:"voice_alias"`
	AutoEnroll      bool          `mapstructure:"auto_enroll"`
	EnrollAudioURL  string        `mapstructure:"enroll_audio_url"`
	LanguageHints   []string      `mapstructure:"language_hints"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	PollMaxAttempts int           `mapstructure:"poll_max_attempts"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	c.APIKey = strings.TrimSpace(c.APIKey)
	if c.CustomizationURL == "" {
		c.CustomizationURL = DefaultCustomizationURL
	}
	if c.RealtimeURL == "" {
		c.RealtimeURL = DefaultRealtimeURL
	}
	if c.GenerationURL == "" {
		c.GenerationURL = DefaultGenerationURL
		if strings.Contains(c.CustomizationURL, intlHost) {
			c.GenerationURL = intlGenerationURL
		}
	}
	if c.TargetModel == "" {
		c.TargetModel = defaultTargetModel
	}
	if c.VoicePrefix == "" {
		c.VoicePrefix = defaultVoicePrefix
	}
	if c.VoiceAlias == "" {
		c.VoiceAlias = defaultVoiceAlias
	}
	if len(c.LanguageHints) == 0 {
		c.LanguageHints = []string{"zh"}
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.PollMaxAttempts <= 0 {
		c.PollMaxAttempts = defaultPollAttempts
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
}

// VoiceStore remembers the resolved voice per alias.
type VoiceStore interface {
	Get(ctx context.Context, alias string) (*voicestore.Entry, error)
	Upsert(ctx context.Context, e voicestore.Entry) error
}

// voiceForgetter is implemented by stores that can drop a deleted voice.
type voiceForgetter interface {
	DeleteVoice(ctx context.Context, voiceID string) (int64, error)
}

// Option configures a Provider.
type Option func(*Provider)

// WithVoiceStore persists resolved and enrolled voices.
func WithVoiceStore(s VoiceStore) Option {
	return func(p *Provider) { p.store = s }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(p *Provider) { p.log = l }
}

// Provider implements tts.Provider and tts.VoiceManager.
type Provider struct {
	cfg    Config
	client *http.Client
	store  VoiceStore
	log    *logger.Logger
	now    func() time.Time
}

var (
	_ tts.Provider     = (*Provider)(nil)
	_ tts.VoiceManager = (*Provider)(nil)
)

// NewProvider creates a voice clone provider.
func NewProvider(cfg Config, opts ...Option) *Provider {
	cfg.ApplyDefaults()
	p := &Provider{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	if p.log == nil {
		p.log = logger.WithComponent(tts.QwenCloneTTS)
	}
	return p
}

func (p *Provider) Name() string { return tts.QwenCloneTTS }

// Close drops pooled connections.
func (p *Provider) Close(context.Context) error {
	p.client.CloseIdleConnections()
	return nil
}

// CheckConfig requires the API key.
func (p *Provider) CheckConfig() error {
	if p.cfg.APIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}

// Probe checks the API key only. Voice resolution happens on Execute.
func (p *Provider) Probe(context.Context) provider.ProbeResult {
	if err := p.CheckConfig(); err != nil {
		return provider.ProbeFailed(err.Error())
	}
	return provider.ProbeOK()
}

// Execute speaks in.Text with the request's voice or the resolved one.
func (p *Provider) Execute(ctx context.Context, in tts.Request) (tts.Response, error) {
	if err := p.CheckConfig(); err != nil {
		return tts.Response{}, err
	}
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return tts.Response{}, errors.New("text is empty")
	}

	voice := strings.TrimSpace(in.VoiceID)
	if voice == "" {
		var err error
		if voice, err = p.resolveVoice(ctx, true); err != nil {
			return tts.Response{}, err
		}
	}
	if voice == "" {
		return tts.Response{}, errors.New("no Qwen voice id available: enroll one via /v1/tts/qwen/enroll " +
			"(or /v1/tts/cosyvoice/enroll) or configure a voice id")
	}

	model := strings.TrimSpace(in.TargetModel)
	if model == "" {
		model = p.cfg.TargetModel
	}

	var (
		res tts.Response
		err error
	)
	if strings.Contains(strings.ToLower(model), realtimeModelKeyword) {
		res, err = p.synthesizeRealtime(ctx, text, model, voice)
	} else {
		res, err = p.synthesizeGeneration(ctx, text, model, voice)
	}
	if err != nil {
		return tts.Response{}, err
	}
	res.VoiceID = voice
	return res, nil
}

func (p *Provider) authHeader() string {
	return fmt.Sprintf("Bearer %s", p.cfg.APIKey)
}
