package tts

import (
	"context"
	"strings"

	"github.com/kbukum/voicegate/broker"
	apperrors "github.com/kbukum/voicegate/errors"
	"github.com/kbukum/voicegate/provider"
)

// Synthesis is the result handed to callers.
type Synthesis struct {
	Audio     []byte
	MediaType string
	Provider  string
	VoiceID   string
	Failures  []broker.Failure
}

// Service runs syntheses through the TTS orchestrator.
type Service struct {
	orch   *broker.Orchestrator[Request, Response]
	voices VoiceManager
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithVoiceManager enables the voice management operations.
func WithVoiceManager(vm VoiceManager) ServiceOption {
	return func(s *Service) { s.voices = vm }
}

// NewService creates a Service around orch.
func NewService(orch *broker.Orchestrator[Request, Response], opts ...ServiceOption) *Service {
	s := &Service{orch: orch}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Synthesize converts text to audio with the first available provider.
// Voice overrides are honored only when pin selects the voice clone provider.
func (s *Service) Synthesize(ctx context.Context, req Request, pin string) (Synthesis, error) {
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		return Synthesis{}, apperrors.InvalidInput("text", "text is empty")
	}
	if name, _ := s.orch.Registry().Canonical(pin); name != QwenCloneTTS {
		req.VoiceID, req.TargetModel = "", ""
	}

	res, err := s.orch.Execute(ctx, req, pin)
	if err != nil {
		return Synthesis{}, err
	}
	return Synthesis{
		Audio:     res.Output.Audio,
		MediaType: res.Output.MediaType,
		Provider:  res.Provider,
		VoiceID:   res.Output.VoiceID,
		Failures:  res.Failures,
	}, nil
}

// ProbeAll probes every provider in the priority list.
func (s *Service) ProbeAll(ctx context.Context) map[string]provider.ProbeResult {
	return s.orch.ProbeAll(ctx)
}

// Statuses returns the ledger state of every TTS provider.
func (s *Service) Statuses() []broker.ProviderStatus {
	return s.orch.Statuses()
}

// EnrollVoice enrolls or reuses a cloned voice.
func (s *Service) EnrollVoice(ctx context.Context, e Enrollment) (EnrollResult, error) {
	if s.voices == nil {
		return EnrollResult{}, errNoVoiceManager()
	}
	res, err := s.voices.EnrollVoice(ctx, e)
	if err != nil {
		return EnrollResult{}, voiceError(err)
	}
	return res, nil
}

// ListVoices lists cloned voices whose id contains prefix.
func (s *Service) ListVoices(ctx context.Context, prefix string, pageIndex, pageSize int) ([]Voice, error) {
	if s.voices == nil {
		return nil, errNoVoiceManager()
	}
	if pageIndex < 0 {
		return nil, apperrors.InvalidInput("page_index", "page_index must be >= 0")
	}
	if pageSize < 1 || pageSize > 100 {
		return nil, apperrors.InvalidInput("page_size", "page_size must be between 1 and 100")
	}
	voices, err := s.voices.ListVoices(ctx, prefix, pageIndex, pageSize)
	if err != nil {
		return nil, voiceError(err)
	}
	return voices, nil
}

// DeleteVoice deletes a cloned voice.
func (s *Service) DeleteVoice(ctx context.Context, voiceID string) error {
	if s.voices == nil {
		return errNoVoiceManager()
	}
	voiceID = strings.TrimSpace(voiceID)
	if voiceID == "" {
		return apperrors.MissingField("voice_id")
	}
	if err := s.voices.DeleteVoice(ctx, voiceID); err != nil {
		return voiceError(err)
	}
	return nil
}

func errNoVoiceManager() *apperrors.AppError {
	return apperrors.Configuration(QwenCloneTTS, "voice cloning is not configured")
}

// voiceError keeps AppErrors and treats anything else as an upstream failure.
func voiceError(err error) error {
	if _, ok := apperrors.AsAppError(err); ok {
		return err
	}
	return apperrors.ExternalServiceError("dashscope", err)
}
