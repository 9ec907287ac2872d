package qwen

import (
	"context"
	"strings"

	apperrors "github.com/kbukum/voicegate/errors"
	"github.com/kbukum/voicegate/logger"
	"github.com/kbukum/voicegate/tts"
	"github.com/kbukum/voicegate/tts/voicestore"
)

// resolveVoice returns the voice to speak with: the configured id, the
// stored alias, the first voice matching the prefix, or with allowEnroll a
// newly enrolled one. An empty id with a nil error means none was found.
func (p *Provider) resolveVoice(ctx context.Context, allowEnroll bool) (string, error) {
	if id := strings.TrimSpace(p.cfg.VoiceID); id != "" {
		return id, nil
	}

	if p.store != nil {
		entry, err := p.store.Get(ctx, p.cfg.VoiceAlias)
		if err != nil {
			p.log.Warn("voice store lookup failed", logger.ErrorFields("get_voice", err))
		} else if entry != nil && strings.TrimSpace(entry.VoiceID) != "" {
			return strings.TrimSpace(entry.VoiceID), nil
		}
	}

	voices, err := p.listVoices(ctx, p.cfg.VoicePrefix, 0, resolveListPageSize)
	if err != nil {
		return "", err
	}
	if len(voices) > 0 {
		if picked := strings.TrimSpace(voices[0].VoiceID); picked != "" {
			model := strings.TrimSpace(voices[0].TargetModel)
			if model == "" {
				model = p.cfg.TargetModel
			}
			p.remember(ctx, voicestore.Entry{
				VoiceID: picked, TargetModel: model, Status: "OK", Source: voicestore.SourceListVoices,
			})
			return picked, nil
		}
	}

	if !allowEnroll || !p.cfg.AutoEnroll || strings.TrimSpace(p.cfg.EnrollAudioURL) == "" {
		return "", nil
	}
	res, err := p.EnrollVoice(ctx, tts.Enrollment{WaitReady: true})
	if err != nil {
		return "", err
	}
	return res.VoiceID, nil
}

// EnrollVoice reuses the voice resolution would pick, or creates one from
// the enrollment audio and optionally waits for it to become usable.
func (p *Provider) EnrollVoice(ctx context.Context, e tts.Enrollment) (tts.EnrollResult, error) {
	model := firstNonEmpty(e.TargetModel, p.cfg.TargetModel)
	if model == "" {
		return tts.EnrollResult{}, apperrors.InvalidInput("target_model", "target model is empty")
	}
	prefix := firstNonEmpty(e.Prefix, p.cfg.VoicePrefix)
	if prefix == "" {
		return tts.EnrollResult{}, apperrors.InvalidInput("prefix", "voice prefix is empty")
	}
	audioURL := firstNonEmpty(e.AudioURL, p.cfg.EnrollAudioURL)
	if audioURL == "" {
		return tts.EnrollResult{}, apperrors.InvalidInput("audio_url", "enrollment audio URL is empty")
	}
	hints := e.LanguageHints
	if len(hints) == 0 {
		hints = p.cfg.LanguageHints
	}

	existing, err := p.resolveVoice(ctx, false)
	if err != nil {
		return tts.EnrollResult{}, err
	}
	if existing != "" {
		detail, err := p.queryVoice(ctx, existing)
		if err != nil {
			return tts.EnrollResult{}, err
		}
		target := firstNonEmpty(detail.TargetModel, model)
		p.remember(ctx, voicestore.Entry{
			VoiceID: existing, TargetModel: target, Status: detail.Status, Source: voicestore.SourceExisting,
		})
		return tts.EnrollResult{VoiceID: existing, Status: detail.Status, TargetModel: target, Reused: true}, nil
	}

	voice, err := p.createVoice(ctx, model, prefix, audioURL, hints)
	if err != nil {
		return tts.EnrollResult{}, err
	}
	p.log.Info("voice enrolled", logger.Fields("voice_id", voice, "target_model", model))

	status := "OK"
	if e.WaitReady {
		detail, err := p.waitVoiceReady(ctx, voice)
		if err != nil {
			return tts.EnrollResult{}, err
		}
		status = detail.Status
	}

	p.remember(ctx, voicestore.Entry{
		VoiceID: voice, TargetModel: model, Status: status, Source: voicestore.SourceEnrollment, AudioURL: audioURL,
	})
	return tts.EnrollResult{VoiceID: voice, Status: status, TargetModel: model}, nil
}

// ListVoices returns one page of the account's voices.
func (p *Provider) ListVoices(ctx context.Context, prefix string, pageIndex, pageSize int) ([]tts.Voice, error) {
	return p.listVoices(ctx, prefix, pageIndex, pageSize)
}

// DeleteVoice deletes the voice upstream and forgets it locally.
func (p *Provider) DeleteVoice(ctx context.Context, voiceID string) error {
	if err := p.deleteVoice(ctx, voiceID); err != nil {
		return err
	}
	if f, ok := p.store.(voiceForgetter); ok {
		if _, err := f.DeleteVoice(ctx, strings.TrimSpace(voiceID)); err != nil {
			p.log.Warn("voice store cleanup failed", logger.ErrorFields("delete_voice", err))
		}
	}
	return nil
}

// remember stores e under the configured alias. Failures are logged only.
func (p *Provider) remember(ctx context.Context, e voicestore.Entry) {
	if p.store == nil {
		return
	}
	e.Alias = p.cfg.VoiceAlias
	e.UpdatedAt = p.now().UTC()
	if err := p.store.Upsert(ctx, e); err != nil {
		p.log.Warn("voice store update failed", logger.ErrorFields("upsert_voice", err))
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
