package tts

import "context"

// Enrollment asks the voice clone backend for a voice. Empty fields fall
// back to the backend's configuration.
type Enrollment struct {
	AudioURL      string
	Prefix        string
	TargetModel   string
	LanguageHints []string
	WaitReady     bool
}

// EnrollResult is the voice that enrollment produced or reused.
type EnrollResult struct {
	VoiceID     string `json:"voice_id"`
	Status      string `json:"status"`
	TargetModel string `json:"target_model"`
	Reused      bool   `json:"reused"`
}

// Voice is one entry of the backend's voice list.
type Voice struct {
	VoiceID     string `json:"voice"`
	TargetModel string `json:"target_model,omitempty"`
	Status      string `json:"status,omitempty"`
	CreatedAt   string `json:"gmt_create,omitempty"`
	ModifiedAt  string `json:"gmt_modified,omitempty"`
}

// VoiceManager manages cloned voices.
type VoiceManager interface {
	EnrollVoice(ctx context.Context, e Enrollment) (EnrollResult, error)
	ListVoices(ctx context.Context, prefix string, pageIndex, pageSize int) ([]Voice, error)
	DeleteVoice(ctx context.Context, voiceID string) error
}
