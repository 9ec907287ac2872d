// Package funasrtest provides an in-process DashScope Fun-ASR server for
// tests.
package funasrtest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/coder/websocket"
	"github.com/tidwall/gjson"
)

// Sentence is one scripted result-generated event.
type Sentence struct {
	Text        string
	SentenceEnd bool
}

// Server is a fake Fun-ASR endpoint. After finish-task it replays Script
// and then reports task-finished, or task-failed when FailWith is set.
type Server struct {
	*httptest.Server

	// APIKey, when set, must appear as the bearer token.
	APIKey string
	// Script is replayed after finish-task.
	Script []Sentence
	// RejectStart fails the task instead of starting it.
	RejectStart string
	// FailWith fails the task after the script.
	FailWith string

	mu         sync.Mutex
	parameters gjson.Result
	model      string
	frames     int
	audio      []byte
}

// NewServer starts a fake server. Set fields before the first dial.
func NewServer() *Server {
	s := &Server{}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// URL returns the websocket URL of the server.
func (s *Server) URL() string {
	return "ws" + strings.TrimPrefix(s.Server.URL, "http")
}

// Parameters returns the parameters of the last run-task.
func (s *Server) Parameters() gjson.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.parameters
}

// Model returns the model of the last run-task.
func (s *Server) Model() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model
}

// Received returns the number of binary frames and the concatenated audio.
func (s *Server) Received() (int, []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames, append([]byte(nil), s.audio...)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if s.APIKey != "" && r.Header.Get("Authorization") != "bearer "+s.APIKey {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	var taskID string
	for {
		typ, msg, err := conn.Read(ctx)
		if err != nil {
			return
		}
		if typ == websocket.MessageBinary {
			s.mu.Lock()
			s.frames++
			s.audio = append(s.audio, msg...)
			s.mu.Unlock()
			continue
		}

		switch gjson.GetBytes(msg, "header.action").String() {
		case "run-task":
			taskID = gjson.GetBytes(msg, "header.task_id").String()
			s.mu.Lock()
			s.parameters = gjson.GetBytes(msg, "payload.parameters")
			s.model = gjson.GetBytes(msg, "payload.model").String()
			s.mu.Unlock()
			if s.RejectStart != "" {
				s.event(ctx, conn, taskID, "task-failed", nil, s.RejectStart)
				return
			}
			s.event(ctx, conn, taskID, "task-started", nil, "")
		case "finish-task":
			for _, sentence := range s.Script {
				s.event(ctx, conn, taskID, "result-generated", map[string]any{
					"output": map[string]any{"sentence": map[string]any{
						"text": sentence.Text, "sentence_end": sentence.SentenceEnd,
					}},
					"usage": map[string]any{"duration": 1},
				}, "")
			}
			if s.FailWith != "" {
				s.event(ctx, conn, taskID, "task-failed", nil, s.FailWith)
			} else {
				s.event(ctx, conn, taskID, "task-finished", map[string]any{}, "")
			}
			_ = conn.Close(websocket.StatusNormalClosure, "")
			return
		}
	}
}

func (s *Server) event(ctx context.Context, conn *websocket.Conn, taskID, name string, payload map[string]any, errMsg string) {
	header := map[string]any{"task_id": taskID, "event": name}
	if errMsg != "" {
		header["error_code"] = "ClientError"
		header["error_message"] = errMsg
	}
	b, _ := json.Marshal(map[string]any{"header": header, "payload": payload})
	_ = conn.Write(ctx, websocket.MessageText, b)
}
