package funasr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// Event types delivered by Session.Events.
const (
	EventResult   = "result"
	EventComplete = "complete"
	EventError    = "error"
)

// ErrSessionFinished is returned when audio is sent after Finish.
var ErrSessionFinished = errors.New("fun-asr: session already finished")

// Event is one recognition update.
type Event struct {
	Type        string         `json:"type"`
	Text        string         `json:"text,omitempty"`
	SentenceEnd bool           `json:"sentence_end"`
	RequestID   string         `json:"request_id,omitempty"`
	Usage       map[string]any `json:"usage,omitempty"`
	Error       string         `json:"error,omitempty"`
}

type header struct {
	Action    string `json:"action"`
	TaskID    string `json:"task_id"`
	Streaming string `json:"streaming"`
}

type runTaskPayload struct {
	TaskGroup  string         `json:"task_group"`
	Task       string         `json:"task"`
	Function   string         `json:"function"`
	Model      string         `json:"model"`
	Parameters parameters     `json:"parameters"`
	Input      map[string]any `json:"input"`
}

type parameters struct {
	Format                     string   `json:"format"`
	SampleRate                 int      `json:"sample_rate"`
	SemanticPunctuationEnabled bool     `json:"semantic_punctuation_enabled"`
	MaxSentenceSilence         int      `json:"max_sentence_silence,omitempty"`
	MultiThresholdModeEnabled  bool     `json:"multi_threshold_mode_enabled"`
	Heartbeat                  bool     `json:"heartbeat"`
	LanguageHints              []string `json:"language_hints,omitempty"`
	VocabularyID               string   `json:"vocabulary_id,omitempty"`
	SpeechNoiseThreshold       *float64 `json:"speech_noise_threshold,omitempty"`
}

type message struct {
	Header  header `json:"header"`
	Payload any    `json:"payload"`
}

// Session is one duplex recognition task. Audio goes in through SendAudio,
// recognition updates come out of Events.
type Session struct {
	conn   *websocket.Conn
	taskID string
	events chan Event

	finished atomic.Bool
	done     chan struct{}
	cancel   context.CancelFunc
	once     sync.Once
	wg       sync.WaitGroup
}

// Open dials DashScope, starts a recognition task and waits for the server
// to accept it. The caller must Close the session.
func (p *Provider) Open(ctx context.Context, format string, sampleRate int) (*Session, error) {
	if err := p.CheckConfig(); err != nil {
		return nil, err
	}
	if format == "" {
		format = p.cfg.Format
	}
	if sampleRate <= 0 {
		sampleRate = p.cfg.SampleRate
	}

	headers := http.Header{}
	headers.Set("Authorization", "bearer "+p.cfg.APIKey)
	headers.Set("X-DashScope-DataInspection", "enable")
	conn, _, err := websocket.Dial(ctx, p.cfg.URL, &websocket.DialOptions{HTTPHeader: headers})
	if err != nil {
		return nil, fmt.Errorf("fun-asr: dial: %w", err)
	}
	conn.SetReadLimit(1 << 20)

	s := &Session{
		conn:   conn,
		taskID: strings.ReplaceAll(uuid.NewString(), "-", ""),
		events: make(chan Event, 256),
		done:   make(chan struct{}),
	}
	if err := s.start(ctx, p.runTask(format, sampleRate)); err != nil {
		conn.Close(websocket.StatusInternalError, "start failed")
		return nil, err
	}

	readCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.wg.Add(1)
	go s.readLoop(readCtx)
	return s, nil
}

func (p *Provider) runTask(format string, sampleRate int) runTaskPayload {
	return runTaskPayload{
		TaskGroup: "audio",
		Task:      "asr",
		Function:  "recognition",
		Model:     p.cfg.Model,
		Parameters: parameters{
			Format:                     format,
			SampleRate:                 sampleRate,
			SemanticPunctuationEnabled: p.cfg.SemanticPunctuation,
			MaxSentenceSilence:         p.cfg.MaxSentenceSilence,
			MultiThresholdModeEnabled:  p.cfg.MultiThresholdMode,
			Heartbeat:                  p.cfg.Heartbeat,
			LanguageHints:              p.cfg.LanguageHints,
			VocabularyID:               strings.TrimSpace(p.cfg.VocabularyID),
			SpeechNoiseThreshold:       p.cfg.SpeechNoiseThreshold,
		},
		Input: map[string]any{},
	}
}

func (s *Session) start(ctx context.Context, payload runTaskPayload) error {
	if err := s.send(ctx, "run-task", payload); err != nil {
		return err
	}
	for {
		_, msg, err := s.conn.Read(ctx)
		if err != nil {
			return fmt.Errorf("fun-asr: waiting for task-started: %w", err)
		}
		switch gjson.GetBytes(msg, "header.event").String() {
		case "task-started":
			return nil
		case "task-failed":
			return fmt.Errorf("fun-asr: start failed: %s", failureMessage(msg))
		}
	}
}

// TaskID returns the DashScope task id.
func (s *Session) TaskID() string { return s.taskID }

// Events returns recognition updates. The channel is closed after the
// task finishes, fails or the connection drops.
func (s *Session) Events() <-chan Event { return s.events }

// SendAudio forwards one audio frame. Empty frames are ignored.
func (s *Session) SendAudio(ctx context.Context, frame []byte) error {
	if s.finished.Load() {
		return ErrSessionFinished
	}
	if len(frame) == 0 {
		return nil
	}
	if err := s.conn.Write(ctx, websocket.MessageBinary, frame); err != nil {
		return fmt.Errorf("fun-asr: send audio frame: %w", err)
	}
	return nil
}

// Finish tells the server no more audio follows. The remaining results
// and a final complete event are still delivered on Events.
func (s *Session) Finish(ctx context.Context) error {
	if s.finished.Swap(true) {
		return nil
	}
	return s.send(ctx, "finish-task", map[string]any{"input": map[string]any{}})
}

// Close stops the read loop and closes the connection.
func (s *Session) Close() error {
	s.once.Do(func() {
		close(s.done)
		s.cancel()
		s.conn.Close(websocket.StatusNormalClosure, "session closed")
		s.wg.Wait()
	})
	return nil
}

func (s *Session) send(ctx context.Context, action string, payload any) error {
	b, err := json.Marshal(message{
		Header:  header{Action: action, TaskID: s.taskID, Streaming: "duplex"},
		Payload: payload,
	})
	if err != nil {
		return fmt.Errorf("fun-asr: encode %s: %w", action, err)
	}
	if err := s.conn.Write(ctx, websocket.MessageText, b); err != nil {
		return fmt.Errorf("fun-asr: send %s: %w", action, err)
	}
	return nil
}

func (s *Session) readLoop(ctx context.Context) {
	defer s.wg.Done()
	defer close(s.events)

	for {
		_, msg, err := s.conn.Read(ctx)
		if err != nil {
			select {
			case <-s.done:
			default:
				s.emit(Event{Type: EventError, RequestID: s.taskID, Error: fmt.Sprintf("connection lost: %v", err)})
			}
			return
		}

		switch gjson.GetBytes(msg, "header.event").String() {
		case "result-generated":
			sentence := gjson.GetBytes(msg, "payload.output.sentence")
			if sentence.Get("heartbeat").Bool() {
				continue
			}
			ev := Event{
				Type:        EventResult,
				Text:        strings.TrimSpace(sentence.Get("text").String()),
				SentenceEnd: sentence.Get("sentence_end").Bool(),
				RequestID:   s.taskID,
			}
			if usage, ok := gjson.GetBytes(msg, "payload.usage").Value().(map[string]any); ok {
				ev.Usage = usage
			}
			s.emit(ev)
		case "task-finished":
			s.emit(Event{Type: EventComplete, RequestID: s.taskID})
			return
		case "task-failed":
			s.emit(Event{Type: EventError, RequestID: s.taskID, Error: failureMessage(msg)})
			return
		}
	}
}

func (s *Session) emit(ev Event) {
	select {
	case s.events <- ev:
	case <-s.done:
	}
}

func failureMessage(msg []byte) string {
	h := gjson.GetBytes(msg, "header")
	if m := h.Get("error_message").String(); m != "" {
		return m
	}
	if c := h.Get("error_code").String(); c != "" {
		return c
	}
	return "unknown error"
}
