package asr

import (
	"context"

	"github.com/kbukum/voicegate/broker"
	apperrors "github.com/kbukum/voicegate/errors"
	"github.com/kbukum/voicegate/provider"
)

// Transcription is the result handed to callers.
type Transcription struct {
	Text     string           `json:"text"`
	Provider string           `json:"provider"`
	Language string           `json:"language,omitempty"`
	Failures []broker.Failure `json:"-"`
}

// Service runs transcriptions through the ASR orchestrator.
type Service struct {
	orch *broker.Orchestrator[Request, Response]
}

// NewService creates a Service around orch.
func NewService(orch *broker.Orchestrator[Request, Response]) *Service {
	return &Service{orch: orch}
}

// Transcribe converts audio to text with the first available provider.
// pin selects a single provider; "" or "auto" uses the priority list.
func (s *Service) Transcribe(ctx context.Context, req Request, pin string) (Transcription, error) {
	if len(req.Audio) == 0 {
		return Transcription{}, apperrors.InvalidInput("file", "audio is empty")
	}
	res, err := s.orch.Execute(ctx, req, pin)
	if err != nil {
		return Transcription{}, err
	}
	return Transcription{
		Text:     res.Output.Text,
		Provider: res.Provider,
		Language: res.Output.Language,
		Failures: res.Failures,
	}, nil
}

// ProbeAll probes every provider in the priority list.
func (s *Service) ProbeAll(ctx context.Context) map[string]provider.ProbeResult {
	return s.orch.ProbeAll(ctx)
}

// Statuses returns the ledger state of every ASR provider.
func (s *Service) Statuses() []broker.ProviderStatus {
	return s.orch.Statuses()
}

// Provider returns the adapter registered under name or an alias of it.
func (s *Service) Provider(name string) (Provider, bool) {
	return s.orch.Registry().Get(name)
}
