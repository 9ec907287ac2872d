package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/voicegate/errors"
	"github.com/kbukum/voicegate/tts"
	"github.com/kbukum/voicegate/validation"
)

// Response headers naming the provider and cloned voice that produced the
// audio. X-CosyVoice-Voice-ID mirrors X-Qwen-Voice-ID for older clients.
const (
	HeaderProvider         = "X-TTS-Provider"
	HeaderQwenVoiceID      = "X-Qwen-Voice-ID"
	HeaderCosyVoiceVoiceID = "X-CosyVoice-Voice-ID"
)

type synthesizeRequest struct {
	Text     string `json:"text"`
	Provider string `json:"provider"`
	tts.Params

	QwenVoiceID          string `json:"qwen_voice_id"`
	QwenTargetModel      string `json:"qwen_target_model"`
	CosyVoiceVoiceID     string `json:"cosyvoice_voice_id"`
	CosyVoiceTargetModel string `json:"cosyvoice_target_model"`
}

type enrollRequest struct {
	AudioURL      string   `json:"audio_url" validate:"omitempty,http_url"`
	Prefix        string   `json:"prefix" validate:"omitempty,voice_prefix"`
	TargetModel   string   `json:"target_model"`
	WaitReady     bool     `json:"wait_ready"`
	LanguageHints []string `json:"language_hints"`
}

func (h *Handler) ttsProviders(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"providers": h.tts.ProbeAll(c.Request.Context())})
}

func (h *Handler) synthesize(c *gin.Context) {
	req := synthesizeRequest{Provider: "auto", Params: tts.DefaultParams()}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, tts.Capability, apperrors.Validation("invalid request body").WithCause(err))
		return
	}
	if err := validation.Struct(&req); err != nil {
		h.fail(c, tts.Capability, err)
		return
	}

	res, err := h.tts.Synthesize(c.Request.Context(), tts.Request{
		Text:        req.Text,
		Params:      req.Params,
		VoiceID:     firstNonEmpty(req.QwenVoiceID, req.CosyVoiceVoiceID),
		TargetModel: firstNonEmpty(req.QwenTargetModel, req.CosyVoiceTargetModel),
	}, req.Provider)
	if err != nil {
		h.fail(c, tts.Capability, err)
		return
	}

	c.Header(HeaderProvider, res.Provider)
	if res.VoiceID != "" {
		c.Header(HeaderQwenVoiceID, res.VoiceID)
		c.Header(HeaderCosyVoiceVoiceID, res.VoiceID)
	}
	c.Data(http.StatusOK, res.MediaType, res.Audio)
}

// enroll returns the enrollment handler; name labels the enrollment metric
// with the provider name the client used.
func (h *Handler) enroll(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		req := enrollRequest{WaitReady: true, LanguageHints: []string{"zh"}}
		if err := c.ShouldBindJSON(&req); err != nil {
			h.fail(c, tts.Capability, apperrors.Validation("invalid request body").WithCause(err))
			return
		}
		if err := validation.Struct(&req); err != nil {
			h.fail(c, tts.Capability, err)
			return
		}

		res, err := h.tts.EnrollVoice(c.Request.Context(), tts.Enrollment{
			AudioURL:      strings.TrimSpace(req.AudioURL),
			Prefix:        strings.TrimSpace(req.Prefix),
			TargetModel:   strings.TrimSpace(req.TargetModel),
			LanguageHints: req.LanguageHints,
			WaitReady:     req.WaitReady,
		})
		if err != nil {
			h.fail(c, tts.Capability, err)
			return
		}
		source := "enrollment"
		if res.Reused {
			source = "existing"
		}
		h.metrics.RecordEnrollment(c.Request.Context(), name, source)
		c.JSON(http.StatusOK, res)
	}
}

func (h *Handler) voices(c *gin.Context) {
	pageIndex, err := queryInt(c, "page_index", 0)
	if err != nil {
		h.fail(c, tts.Capability, err)
		return
	}
	pageSize, err := queryInt(c, "page_size", 10)
	if err != nil {
		h.fail(c, tts.Capability, err)
		return
	}
	voices, err := h.tts.ListVoices(c.Request.Context(), strings.TrimSpace(c.Query("prefix")), pageIndex, pageSize)
	if err != nil {
		h.fail(c, tts.Capability, err)
		return
	}
	if voices == nil {
		voices = []tts.Voice{}
	}
	c.JSON(http.StatusOK, gin.H{"voices": voices})
}

func (h *Handler) deleteVoice(c *gin.Context) {
	if err := h.tts.DeleteVoice(c.Request.Context(), c.Query("voice_id")); err != nil {
		h.fail(c, tts.Capability, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func queryInt(c *gin.Context, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.InvalidInput(key, key+" must be an integer")
	}
	return n, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
