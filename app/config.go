package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/kbukum/voicegate/asr"
	"github.com/kbukum/voicegate/asr/funasr"
	asropenai "github.com/kbukum/voicegate/asr/openai"
	"github.com/kbukum/voicegate/asr/sensevoice"
	"github.com/kbukum/voicegate/asr/whisper"
	"github.com/kbukum/voicegate/broker"
	"github.com/kbukum/voicegate/config"
	"github.com/kbukum/voicegate/database"
	"github.com/kbukum/voicegate/observability"
	"github.com/kbukum/voicegate/provider"
	"github.com/kbukum/voicegate/resilience"
	"github.com/kbukum/voicegate/server"
	"github.com/kbukum/voicegate/tts"
	"github.com/kbukum/voicegate/tts/gptsovits"
	ttsopenai "github.com/kbukum/voicegate/tts/openai"
	"github.com/kbukum/voicegate/tts/qwen"
	"github.com/kbukum/voicegate/validation"
)

const defaultCapabilityTimeout = 60 * time.Second

// Config is the complete voicegate configuration.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Server    server.Config              `yaml:"server" mapstructure:"server"`
	Tracing   observability.TracerConfig `yaml:"tracing" mapstructure:"tracing"`
	Metrics   observability.MeterConfig  `yaml:"metrics" mapstructure:"metrics"`
	Database  database.Config            `yaml:"database" mapstructure:"database"`
	Providers ProvidersConfig            `yaml:"providers" mapstructure:"providers"`
	Dashscope DashscopeConfig            `yaml:"dashscope" mapstructure:"dashscope"`
	OpenAI    OpenAIConfig               `yaml:"openai" mapstructure:"openai"`
	ASR       ASRConfig                  `yaml:"asr" mapstructure:"asr"`
	TTS       TTSConfig                  `yaml:"tts" mapstructure:"tts"`
}

// ProvidersConfig is the availability policy shared by both capabilities.
type ProvidersConfig struct {
	FailureCooldown time.Duration `yaml:"failure_cooldown" mapstructure:"failure_cooldown" validate:"gte=0"`
	ProbeInterval   time.Duration `yaml:"probe_interval" mapstructure:"probe_interval" validate:"gte=0"`
	ProbeTimeout    time.Duration `yaml:"probe_timeout" mapstructure:"probe_timeout" validate:"gte=0"`
	// Guards are keyed by provider name.
	Guards map[string]GuardConfig `yaml:"guards" mapstructure:"guards" validate:"dive"`
}

// GuardConfig limits calls into one provider. Zero fields disable the
// matching guard.
type GuardConfig struct {
	Rate          float64       `yaml:"rate" mapstructure:"rate" validate:"gte=0"`
	Burst         int           `yaml:"burst" mapstructure:"burst" validate:"gte=0"`
	Wait          bool          `yaml:"wait" mapstructure:"wait"`
	MaxConcurrent int           `yaml:"max_concurrent" mapstructure:"max_concurrent" validate:"gte=0"`
	MaxWait       time.Duration `yaml:"max_wait" mapstructure:"max_wait" validate:"gte=0"`
}

// Resilience converts the guard for the named provider.
func (g GuardConfig) Resilience(name string) provider.ResilienceConfig {
	var rc provider.ResilienceConfig
	if g.Rate > 0 {
		rc.RateLimiter = &resilience.RateLimiterConfig{Name: name, Rate: g.Rate, Burst: g.Burst, Wait: g.Wait}
	}
	if g.MaxConcurrent > 0 {
		rc.Bulkhead = &resilience.BulkheadConfig{Name: name, MaxConcurrent: g.MaxConcurrent, MaxWait: g.MaxWait}
	}
	return rc
}

// DashscopeConfig carries the key shared by Fun-ASR and the voice clone.
type DashscopeConfig struct {
	APIKey string `yaml:"api_key" mapstructure:"api_key"`
}

// OpenAIConfig carries the credentials shared by both OpenAI adapters.
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key" mapstructure:"api_key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url" validate:"omitempty,url"`
}

// ASRConfig configures speech recognition.
type ASRConfig struct {
	Priority []string      `yaml:"priority" mapstructure:"priority"`
	Timeout  time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`
	// RealtimeOrigins are extra websocket origin patterns for the relay.
	RealtimeOrigins []string `yaml:"realtime_origins" mapstructure:"realtime_origins"`

	SenseVoice sensevoice.Config `yaml:"sensevoice" mapstructure:"sensevoice"`
	FunASR     funasr.Config     `yaml:"fun_asr" mapstructure:"fun_asr"`
	Whisper    whisper.Config    `yaml:"whisper" mapstructure:"whisper"`
	OpenAI     asropenai.Config  `yaml:"openai" mapstructure:"openai"`
}

// TTSConfig configures speech synthesis.
type TTSConfig struct {
	Priority []string      `yaml:"priority" mapstructure:"priority"`
	Timeout  time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`

	GPTSoVITS gptsovits.Config `yaml:"gpt_sovits" mapstructure:"gpt_sovits"`
	Qwen      qwen.Config      `yaml:"qwen" mapstructure:"qwen"`
	OpenAI    ttsopenai.Config `yaml:"openai" mapstructure:"openai"`
}

// ApplyDefaults fills zero values and spreads the shared credentials.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "voicegate"
	}
	c.ServiceConfig.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Database.ApplyDefaults()

	if c.Metrics.Exporter == "" {
		d := observability.DefaultMeterConfig(c.Name)
		c.Metrics.Exporter = d.Exporter
		if c.Metrics.Endpoint == "" {
			c.Metrics.Endpoint = d.Endpoint
		}
		if c.Metrics.Interval == 0 {
			c.Metrics.Interval = d.Interval
		}
	}
	c.Metrics.ServiceName, c.Metrics.ServiceVersion, c.Metrics.Environment = c.Name, c.Version, c.Environment

	if c.Tracing.Endpoint == "" {
		d := observability.DefaultTracerConfig(c.Name)
		c.Tracing.Endpoint = d.Endpoint
		c.Tracing.Insecure = d.Insecure
	}
	if c.Tracing.SampleRate == 0 {
		c.Tracing.SampleRate = 1.0
	}
	c.Tracing.ServiceName, c.Tracing.ServiceVersion, c.Tracing.Environment = c.Name, c.Version, c.Environment

	if c.Providers.FailureCooldown == 0 {
		c.Providers.FailureCooldown = broker.DefaultFailureCooldown
	}
	if c.Providers.ProbeInterval == 0 {
		c.Providers.ProbeInterval = broker.DefaultProbeInterval
	}
	if c.Providers.ProbeTimeout == 0 {
		c.Providers.ProbeTimeout = broker.DefaultProbeTimeout
	}
	if c.ASR.Timeout == 0 {
		c.ASR.Timeout = defaultCapabilityTimeout
	}
	if c.TTS.Timeout == 0 {
		c.TTS.Timeout = defaultCapabilityTimeout
	}

	dashscope := strings.TrimSpace(c.Dashscope.APIKey)
	if c.ASR.FunASR.APIKey == "" {
		c.ASR.FunASR.APIKey = dashscope
	}
	if c.TTS.Qwen.APIKey == "" {
		c.TTS.Qwen.APIKey = dashscope
	}
	openaiKey := strings.TrimSpace(c.OpenAI.APIKey)
	if c.ASR.OpenAI.APIKey == "" {
		c.ASR.OpenAI.APIKey = openaiKey
	}
	if c.ASR.OpenAI.BaseURL == "" {
		c.ASR.OpenAI.BaseURL = c.OpenAI.BaseURL
	}
	if c.TTS.OpenAI.APIKey == "" {
		c.TTS.OpenAI.APIKey = openaiKey
	}
	if c.TTS.OpenAI.BaseURL == "" {
		c.TTS.OpenAI.BaseURL = c.OpenAI.BaseURL
	}
}

// Validate checks the whole configuration after defaults are applied.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := validation.Struct(c); err != nil {
		return err
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if c.Database.Enabled {
		if err := c.Database.Validate(); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}
	if c.Metrics.Enabled {
		if err := c.Metrics.Validate(); err != nil {
			return err
		}
	}
	for _, bc := range []broker.Config{c.brokerConfig(asr.Capability), c.brokerConfig(tts.Capability)} {
		if err := bc.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// brokerConfig derives the orchestration policy for one capability.
func (c *Config) brokerConfig(capability string) broker.Config {
	bc := broker.Config{
		Capability:      capability,
		FailureCooldown: c.Providers.FailureCooldown,
		ProbeInterval:   c.Providers.ProbeInterval,
		ProbeTimeout:    c.Providers.ProbeTimeout,
	}
	switch capability {
	case asr.Capability:
		bc.Priority = c.ASR.Priority
		bc.Defaults = asr.DefaultPriority
		bc.CallTimeout = c.ASR.Timeout
		bc.UnavailableMessage = asr.UnavailableMessage
	case tts.Capability:
		bc.Priority = c.TTS.Priority
		bc.Defaults = tts.DefaultPriority
		bc.CallTimeout = c.TTS.Timeout
		bc.UnavailableMessage = tts.UnavailableMessage
	}
	bc.ApplyDefaults()
	return bc
}
