package tts

import (
	"github.com/kbukum/voicegate/provider"
)

// Capability is the ledger namespace and metric label for text-to-speech.
const Capability = "tts"

// Provider names.
const (
	GPTSoVITS    = "gpt_sovits"
	QwenCloneTTS = "qwen_clone_tts"
	OpenAITTS    = "openai_tts"

	// CosyVoiceTTS is the legacy name of QwenCloneTTS.
	CosyVoiceTTS = "cosyvoice_tts"
)

// DefaultPriority is used when no valid priority is configured.
var DefaultPriority = []string{QwenCloneTTS, GPTSoVITS}

// UnavailableMessage prefixes the error returned when every provider failed.
const UnavailableMessage = "TTS unavailable, degraded to text only. details"

// Params are the synthesis knobs. Only GPT-SoVITS reads most of them;
// MediaType is honored where the backend can choose.
type Params struct {
	TextLang        string  `json:"text_lang" validate:"omitempty,oneof=zh en ja"`
	RefAudioPath    string  `json:"ref_audio_path"`
	PromptLang      string  `json:"prompt_lang" validate:"omitempty,oneof=zh en ja"`
	PromptText      string  `json:"prompt_text"`
	TextSplitMethod string  `json:"text_split_method"`
	SpeedFactor     float64 `json:"speed_factor"`
	TopK            int     `json:"top_k" validate:"gte=1,lte=100"`
	TopP            float64 `json:"top_p" validate:"gte=0,lte=1"`
	Temperature     float64 `json:"temperature" validate:"gte=0,lte=2"`
	BatchSize       int     `json:"batch_size" validate:"gte=1,lte=20"`
	MediaType       string  `json:"media_type" validate:"omitempty,oneof=wav raw ogg aac"`
	StreamingMode   bool    `json:"streaming_mode"`
}

// DefaultParams returns the defaults applied to omitted request fields.
func DefaultParams() Params {
	return Params{
		TextLang:        "zh",
		PromptLang:      "zh",
		TextSplitMethod: "cut5",
		SpeedFactor:     1.0,
		TopK:            5,
		TopP:            1.0,
		Temperature:     1.0,
		BatchSize:       1,
		MediaType:       "wav",
	}
}

// WithDefaults returns p with omitted fields filled in. A zero Params is
// replaced entirely; otherwise only empty strings and zero counts are filled,
// since zero is a valid TopP or Temperature.
func (p Params) WithDefaults() Params {
	d := DefaultParams()
	if p == (Params{}) {
		return d
	}
	if p.TextLang == "" {
		p.TextLang = d.TextLang
	}
	if p.PromptLang == "" {
		p.PromptLang = d.PromptLang
	}
	if p.TextSplitMethod == "" {
		p.TextSplitMethod = d.TextSplitMethod
	}
	if p.SpeedFactor <= 0 {
		p.SpeedFactor = d.SpeedFactor
	}
	if p.TopK <= 0 {
		p.TopK = d.TopK
	}
	if p.BatchSize <= 0 {
		p.BatchSize = d.BatchSize
	}
	if p.MediaType == "" {
		p.MediaType = d.MediaType
	}
	return p
}

// Request is one synthesis job.
type Request struct {
	Text   string
	Params Params
	// VoiceID and TargetModel override the voice clone settings for a
	// single request. Other providers ignore them.
	VoiceID     string
	TargetModel string
}

// Response is an adapter's synthesized audio.
type Response struct {
	Audio     []byte
	MediaType string
	// VoiceID is the cloned voice used, if any.
	VoiceID string
}

// Provider is a TTS adapter.
type Provider = provider.RequestResponse[Request, Response]

// Registry holds the TTS adapters.
type Registry = provider.Registry[Provider]

// NewRegistry creates a TTS registry with the legacy alias installed.
func NewRegistry() *Registry {
	r := provider.NewRegistry[Provider]()
	_ = r.Alias(CosyVoiceTTS, QwenCloneTTS)
	return r
}
