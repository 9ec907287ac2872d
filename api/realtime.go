package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"

	"github.com/kbukum/voicegate/asr"
	"github.com/kbukum/voicegate/asr/funasr"
	apperrors "github.com/kbukum/voicegate/errors"
	"github.com/kbukum/voicegate/logger"
	"github.com/kbukum/voicegate/server"
)

const (
	// RealtimeEndpoint is the path of the Fun-ASR websocket relay.
	RealtimeEndpoint = "/v1/asr/fun/realtime/ws"
	// drainTimeout bounds how long the relay waits for the final results
	// after the client stops sending.
	drainTimeout = 2 * time.Second
)

// stopWords end the audio stream when sent as a text frame.
var stopWords = map[string]bool{"stop": true, "[done]": true, "end": true}

type openEvent struct {
	Type       string `json:"type"`
	Provider   string `json:"provider"`
	Format     string `json:"format"`
	SampleRate int    `json:"sample_rate"`
}

type relayEvent struct {
	funasr.Event
	Provider string `json:"provider"`
}

type errorEvent struct {
	Type     string `json:"type"`
	Provider string `json:"provider"`
	Message  string `json:"message"`
}

func (h *Handler) realtimeUsage(c *gin.Context) {
	format, sampleRate := "pcm", 16000
	if h.realtime != nil {
		format, sampleRate = h.realtime.Format(), h.realtime.SampleRate()
	}
	c.JSON(http.StatusOK, gin.H{
		"provider":  asr.FunASRRealtime,
		"transport": "websocket",
		"endpoint":  RealtimeEndpoint,
		"recommended_audio": gin.H{
			"format":            format,
			"sample_rate":       sampleRate,
			"frame_duration_ms": 100,
			"frame_size_hint":   "1KB-16KB",
		},
		"protocol": gin.H{
			"client_to_server": []string{
				"binary: audio frame (100ms recommended)",
				"text: stop/[done]/end ends the stream",
			},
			"server_to_client": []string{
				"open: session established",
				"result: incremental result with sentence_end",
				"error: failure message",
				"complete: recognition finished",
			},
		},
	})
}

// Realtime returns the websocket relay handler. It must be mounted outside
// Gin, see server.Server.Handle.
func (h *Handler) Realtime() http.Handler {
	return http.HandlerFunc(h.realtimeRelay)
}

// realtimeRelay upgrades to a websocket and relays binary audio frames to a
// Fun-ASR session while streaming its events back. Upstream failures after
// the upgrade are reported as error events.
func (h *Handler) realtimeRelay(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	if h.realtime == nil {
		err := apperrors.Configuration(asr.FunASRRealtime, "realtime recognition is not configured")
		server.WriteError(w, h.record(ctx, asr.Capability, err))
		return
	}
	query := req.URL.Query()
	format := strings.ToLower(strings.TrimSpace(query.Get("format")))
	if format == "" {
		format = h.realtime.Format()
	}
	sampleRate, err := strconv.Atoi(query.Get("sample_rate"))
	if err != nil || sampleRate <= 0 {
		sampleRate = h.realtime.SampleRate()
	}

	// The session outlives the server's per-request timeouts.
	rc := http.NewResponseController(w)
	_ = rc.SetReadDeadline(time.Time{})
	_ = rc.SetWriteDeadline(time.Time{})

	conn, err := websocket.Accept(w, req, &websocket.AcceptOptions{OriginPatterns: h.originPatterns})
	if err != nil {
		h.log.WithContext(ctx).Debug("websocket upgrade rejected", logger.ErrorFields("accept", err))
		return
	}
	defer conn.CloseNow()

	log := h.log.WithContext(ctx).WithFields(logger.Fields(logger.FieldProvider, asr.FunASRRealtime))
	r := &relay{conn: conn}

	session, err := h.realtime.Open(ctx, format, sampleRate)
	if err != nil {
		log.Warn("realtime session failed to open", logger.ErrorFields("open", err))
		r.sendError(ctx, err.Error())
		_ = conn.Close(websocket.StatusInternalError, "upstream unavailable")
		return
	}
	defer session.Close()
	log.Info("realtime session opened", logger.Fields("task_id", session.TaskID(), "format", format, "sample_rate", sampleRate))

	if err := r.send(ctx, openEvent{Type: "open", Provider: asr.FunASRRealtime, Format: format, SampleRate: sampleRate}); err != nil {
		return
	}

	forwarded := make(chan struct{})
	go func() {
		defer close(forwarded)
		for ev := range session.Events() {
			if err := r.send(ctx, relayEvent{Event: ev, Provider: asr.FunASRRealtime}); err != nil {
				return
			}
		}
	}()

	frames := 0
	for {
		typ, msg, err := conn.Read(ctx)
		if err != nil {
			break
		}
		if typ == websocket.MessageText {
			if stopWords[strings.ToLower(strings.TrimSpace(string(msg)))] {
				break
			}
			continue
		}
		if err := session.SendAudio(ctx, msg); err != nil {
			log.Warn("relay audio failed", logger.ErrorFields("send_audio", err))
			r.sendError(ctx, err.Error())
			break
		}
		frames++
	}

	drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), drainTimeout)
	defer cancel()
	if err := session.Finish(drainCtx); err != nil {
		r.sendError(drainCtx, err.Error())
	}
	select {
	case <-forwarded:
	case <-drainCtx.Done():
		log.Warn("realtime results not drained in time")
	}
	_ = session.Close()
	_ = conn.Close(websocket.StatusNormalClosure, "")
	log.Info("realtime session closed", logger.Fields("frames", frames))
}

type relay struct {
	conn *websocket.Conn
}

func (r *relay) send(ctx context.Context, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return r.conn.Write(ctx, websocket.MessageText, b)
}

func (r *relay) sendError(ctx context.Context, msg string) {
	_ = r.send(ctx, errorEvent{Type: "error", Provider: asr.FunASRRealtime, Message: msg})
}
