package asr

import "github.com/kbukum/voicegate/provider"

// Capability is the ledger namespace and metric label for speech-to-text.
const Capability = "asr"

// Provider names.
const (
	SenseVoiceHTTP = "sensevoice_http"
	FunASRRealtime = "fun_asr_realtime"
	WhisperHTTP    = "whisper_http"
	OpenAIWhisper  = "openai_whisper"
)

// DefaultPriority is used when no valid priority is configured.
var DefaultPriority = []string{SenseVoiceHTTP, FunASRRealtime}

// UnavailableMessage prefixes the error returned when every provider failed.
const UnavailableMessage = "speech recognition is unavailable, please continue with text input. details"

// Request is one transcription job.
type Request struct {
	Audio    []byte
	Filename string
	// Language is a hint such as "zh" or "auto". Empty uses the adapter default.
	Language string
	// Format and SampleRate are inferred from Filename and Audio when empty.
	Format     string
	SampleRate int
}

// Response is an adapter's transcription.
type Response struct {
	Text     string
	Language string
}

// Provider is an ASR adapter.
type Provider = provider.RequestResponse[Request, Response]

// Registry holds the ASR adapters.
type Registry = provider.Registry[Provider]

// NewRegistry creates an empty ASR registry.
func NewRegistry() *Registry {
	return provider.NewRegistry[Provider]()
}
