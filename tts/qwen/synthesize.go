package qwen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/kbukum/voicegate/audio"
	"github.com/kbukum/voicegate/tts"
)

type clientEvent struct {
	EventID string         `json:"event_id"`
	Type    string         `json:"type"`
	Session map[string]any `json:"session,omitempty"`
	Text    string         `json:"text,omitempty"`
}

func newEvent(typ string) clientEvent {
	return clientEvent{EventID: "event_" + strings.ReplaceAll(uuid.NewString(), "-", ""), Type: typ}
}

// synthesizeRealtime streams text over the realtime websocket and wraps the
// returned 24 kHz mono PCM as WAV.
func (p *Provider) synthesizeRealtime(ctx context.Context, text, model, voice string) (tts.Response, error) {
	u, err := url.Parse(p.cfg.RealtimeURL)
	if err != nil {
		return tts.Response{}, fmt.Errorf("realtime url: %w", err)
	}
	q := u.Query()
	q.Set("model", model)
	u.RawQuery = q.Encode()

	headers := http.Header{}
	headers.Set("Authorization", p.authHeader())
	conn, _, err := websocket.Dial(ctx, u.String(), &websocket.DialOptions{HTTPHeader: headers})
	if err != nil {
		return tts.Response{}, fmt.Errorf("qwen realtime synthesis failed: dial: %w", err)
	}
	defer conn.CloseNow()
	conn.SetReadLimit(maxAudioBytes)

	update := newEvent("session.update")
	update.Session = map[string]any{
		"voice":           voice,
		"response_format": "pcm",
		"sample_rate":     realtimeSampleRate,
		"mode":            "server_commit",
	}
	appendText := newEvent("input_text_buffer.append")
	appendText.Text = text
	for _, ev := range []clientEvent{update, appendText, newEvent("session.finish")} {
		b, err := json.Marshal(ev)
		if err != nil {
			return tts.Response{}, fmt.Errorf("encode %s: %w", ev.Type, err)
		}
		if err := conn.Write(ctx, websocket.MessageText, b); err != nil {
			return tts.Response{}, fmt.Errorf("qwen realtime synthesis failed: send %s: %w", ev.Type, err)
		}
	}

	var pcm bytes.Buffer
	for done := false; !done; {
		_, msg, err := conn.Read(ctx)
		if err != nil {
			return tts.Response{}, fmt.Errorf("qwen realtime synthesis failed: waiting for session.finished: %w", err)
		}
		switch gjson.GetBytes(msg, "type").String() {
		case "response.audio.delta":
			chunk := gjson.GetBytes(msg, "delta").String()
			if chunk == "" {
				continue
			}
			b, err := base64.StdEncoding.DecodeString(chunk)
			if err != nil {
				return tts.Response{}, fmt.Errorf("realtime audio decode failed: %w", err)
			}
			pcm.Write(b)
		case "error":
			return tts.Response{}, fmt.Errorf("realtime synthesis failed: %s", msg)
		case "session.finished":
			done = true
		}
	}
	conn.Close(websocket.StatusNormalClosure, "")

	if pcm.Len() == 0 {
		return tts.Response{}, errors.New("realtime synthesis returned no audio")
	}
	wav := audio.PCM16{SampleRate: realtimeSampleRate, Channels: 1}.WAV(pcm.Bytes())
	return tts.Response{Audio: wav, MediaType: "audio/wav"}, nil
}

type generationRequest struct {
	Model string          `json:"model"`
	Input generationInput `json:"input"`
}

type generationInput struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}

// synthesizeGeneration calls multimodal-generation and downloads the audio
// file it points to.
func (p *Provider) synthesizeGeneration(ctx context.Context, text, model, voice string) (tts.Response, error) {
	body, err := json.Marshal(generationRequest{Model: model, Input: generationInput{Text: text, Voice: voice}})
	if err != nil {
		return tts.Response{}, fmt.Errorf("encode generation request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.GenerationURL, bytes.NewReader(body))
	if err != nil {
		return tts.Response{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", p.authHeader())
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return tts.Response{}, fmt.Errorf("qwen synthesis call failed: %w", err)
	}
	raw, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return tts.Response{}, fmt.Errorf("read generation response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return tts.Response{}, fmt.Errorf("qwen synthesis call failed: status=%d body=%s", resp.StatusCode, raw)
	}
	audioURL := strings.TrimSpace(gjson.GetBytes(raw, "output.audio.url").String())
	if audioURL == "" {
		return tts.Response{}, fmt.Errorf("qwen synthesis returned no audio URL: %s", raw)
	}

	return p.download(ctx, audioURL)
}

func (p *Provider) download(ctx context.Context, audioURL string) (tts.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, audioURL, nil)
	if err != nil {
		return tts.Response{}, fmt.Errorf("create download request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return tts.Response{}, fmt.Errorf("download synthesized audio failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return tts.Response{}, fmt.Errorf("download synthesized audio failed: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes+1))
	if err != nil {
		return tts.Response{}, fmt.Errorf("download synthesized audio failed: %w", err)
	}
	if len(data) > maxAudioBytes {
		return tts.Response{}, fmt.Errorf("download synthesized audio failed: larger than %d bytes", maxAudioBytes)
	}

	mediaType := "audio/wav"
	if mt, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type")); err == nil && mt != "" {
		mediaType = mt
	}
	return tts.Response{Audio: data, MediaType: mediaType}, nil
}
