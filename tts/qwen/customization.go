package qwen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	apperrors "github.com/kbukum/voicegate/errors"
	"github.com/kbukum/voicegate/resilience"
	"github.com/kbukum/voicegate/tts"
)

const (
	enrollmentModel = "qwen-voice-enrollment"

	queryPages    = 20
	queryPageSize = 100
	minPoll       = 500 * time.Millisecond
)

var voiceNamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{1,16}$`)

var errVoiceNotReady = errors.New("voice not ready")

type customizationRequest struct {
	Model string         `json:"model"`
	Input map[string]any `json:"input"`
}

// customize posts one action to the voice customization API.
func (p *Provider) customize(ctx context.Context, input map[string]any) (gjson.Result, error) {
	if err := p.CheckConfig(); err != nil {
		return gjson.Result{}, err
	}
	body, err := json.Marshal(customizationRequest{Model: enrollmentModel, Input: input})
	if err != nil {
		return gjson.Result{}, fmt.Errorf("encode voice customization request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.CustomizationURL, bytes.NewReader(body))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", p.authHeader())
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("voice customization request failed: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("read voice customization response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		suffix := ""
		if id := strings.TrimSpace(gjson.GetBytes(raw, "request_id").String()); id != "" {
			suffix = " request_id=" + id
		}
		return gjson.Result{}, fmt.Errorf("voice customization returned status=%d%s body=%s", resp.StatusCode, suffix, raw)
	}
	data := gjson.ParseBytes(raw)
	if !data.IsObject() {
		return gjson.Result{}, errors.New("voice customization returned a malformed response")
	}
	return data, nil
}

// preferredName truncates prefix to 16 characters and checks the allowed
// alphabet. An invalid name comes back empty.
func preferredName(prefix string) string {
	prefix = strings.TrimSpace(prefix)
	if r := []rune(prefix); len(r) > 16 {
		prefix = string(r[:16])
	}
	if !voiceNamePattern.MatchString(prefix) {
		return ""
	}
	return prefix
}

func (p *Provider) createVoice(ctx context.Context, targetModel, prefix, audioURL string, hints []string) (string, error) {
	name := preferredName(prefix)
	if name == "" {
		return "", apperrors.InvalidInput("prefix", "voice prefix may only contain letters, digits and underscores (at most 16)")
	}
	audioURL = strings.TrimSpace(audioURL)
	if audioURL == "" {
		return "", apperrors.InvalidInput("audio_url", "creating a voice requires a publicly reachable audio URL")
	}

	input := map[string]any{
		"action":         "create",
		"target_model":   strings.TrimSpace(targetModel),
		"preferred_name": name,
		"audio":          map[string]any{"data": audioURL},
	}
	if len(hints) > 0 && strings.TrimSpace(hints[0]) != "" {
		input["language"] = strings.TrimSpace(hints[0])
	}
	data, err := p.customize(ctx, input)
	if err != nil {
		return "", err
	}
	voice := strings.TrimSpace(data.Get("output.voice").String())
	if voice == "" {
		return "", errors.New("voice created but the response carried no voice id")
	}
	return voice, nil
}

func (p *Provider) deleteVoice(ctx context.Context, voiceID string) error {
	voiceID = strings.TrimSpace(voiceID)
	if voiceID == "" {
		return apperrors.MissingField("voice_id")
	}
	_, err := p.customize(ctx, map[string]any{"action": "delete", "voice": voiceID})
	return err
}

// listVoices returns one page of voices, keeping those whose id contains prefix.
func (p *Provider) listVoices(ctx context.Context, prefix string, pageIndex, pageSize int) ([]tts.Voice, error) {
	data, err := p.customize(ctx, map[string]any{
		"action":     "list",
		"page_index": max(pageIndex, 0),
		"page_size":  max(pageSize, 1),
	})
	if err != nil {
		return nil, err
	}

	prefix = strings.TrimSpace(prefix)
	var voices []tts.Voice
	data.Get("output.voice_list").ForEach(func(_, item gjson.Result) bool {
		if !item.IsObject() {
			return true
		}
		v := tts.Voice{
			VoiceID:     item.Get("voice").String(),
			TargetModel: item.Get("target_model").String(),
			Status:      item.Get("status").String(),
			CreatedAt:   item.Get("gmt_create").String(),
			ModifiedAt:  item.Get("gmt_modified").String(),
		}
		if prefix == "" || strings.Contains(v.VoiceID, prefix) {
			voices = append(voices, v)
		}
		return true
	})
	return voices, nil
}

// queryVoice finds a voice by paging through the list, since the API has
// no single-voice lookup.
func (p *Provider) queryVoice(ctx context.Context, voiceID string) (tts.Voice, error) {
	voiceID = strings.TrimSpace(voiceID)
	if voiceID == "" {
		return tts.Voice{}, apperrors.MissingField("voice_id")
	}
	for page := 0; page < queryPages; page++ {
		voices, err := p.listVoices(ctx, "", page, queryPageSize)
		if err != nil {
			return tts.Voice{}, err
		}
		if len(voices) == 0 {
			break
		}
		for _, v := range voices {
			if strings.TrimSpace(v.VoiceID) == voiceID {
				if v.Status == "" {
					v.Status = "OK"
				}
				return v, nil
			}
		}
	}
	return tts.Voice{}, fmt.Errorf("voice not found: %s", voiceID)
}

// waitVoiceReady polls until the voice reports OK or READY.
func (p *Provider) waitVoiceReady(ctx context.Context, voiceID string) (tts.Voice, error) {
	interval := max(p.cfg.PollInterval, minPoll)
	var lastErr error
	cfg := resilience.PollConfig(interval, p.cfg.PollMaxAttempts, resilience.DefaultRetryIf)
	v, err := resilience.Retry(ctx, cfg, func(ctx context.Context) (tts.Voice, error) {
		v, err := p.queryVoice(ctx, voiceID)
		if err != nil {
			lastErr = err
			return tts.Voice{}, err
		}
		switch strings.ToUpper(v.Status) {
		case "OK", "READY":
			v.Status = "OK"
			return v, nil
		}
		return tts.Voice{}, errVoiceNotReady
	})
	if err == nil {
		return v, nil
	}
	if ctx.Err() != nil {
		return tts.Voice{}, err
	}
	detail := voiceID
	if lastErr != nil {
		detail = lastErr.Error()
	}
	return tts.Voice{}, fmt.Errorf("timed out waiting for voice to become ready: %s", detail)
}
