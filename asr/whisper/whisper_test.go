package whisper

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kbukum/voicegate/asr"
)

func newSidecar(t *testing.T, healthy bool, body string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		if !healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	})
	mux.HandleFunc("/transcribe", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if r.FormValue("model") != "small" || r.FormValue("language") != "de" {
			http.Error(w, "unexpected fields", http.StatusBadRequest)
			return
		}
		f, hdr, err := r.FormFile("audio")
		if err != nil || hdr.Filename != "note.mp3" {
			http.Error(w, "missing audio", http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(f)
		if string(data) != "mp3-bytes" {
			http.Error(w, "bad audio", http.StatusBadRequest)
			return
		}
		_, _ = io.WriteString(w, body)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestExecute(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantText string
		wantErr  string
	}{
		{"text", `{"text":" Guten Tag ","language":"de"}`, "Guten Tag", ""},
		{"segments only", `{"text":"","segments":[{"text":" Guten "},{"text":"Tag"}]}`, "Guten Tag", ""},
		{"empty", `{"text":""}`, "", "no text"},
		{"bad json", `nope`, "", "decode whisper response"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := newSidecar(t, true, tc.body)
			p := NewProvider(Config{URL: srv.URL, Model: "small", Language: "en"})
			res, err := p.Execute(context.Background(), asr.Request{Audio: []byte("mp3-bytes"), Filename: "note.mp3", Language: "de"})
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Execute: %v", err)
			}
			if res.Text != tc.wantText {
				t.Errorf("got %q, want %q", res.Text, tc.wantText)
			}
		})
	}
}

func TestExecute_StatusError(t *testing.T) {
	srv := newSidecar(t, true, "")
	// default model and language fail the sidecar's field check
	_, err := NewProvider(Config{URL: srv.URL}).Execute(context.Background(), asr.Request{Audio: []byte("x")})
	if err == nil || !strings.Contains(err.Error(), "status 400") {
		t.Fatalf("expected status 400, got %v", err)
	}
}

func TestProbe(t *testing.T) {
	if res := NewProvider(Config{URL: newSidecar(t, true, "").URL}).Probe(context.Background()); !res.OK {
		t.Errorf("expected healthy, got %+v", res)
	}
	res := NewProvider(Config{URL: newSidecar(t, false, "").URL}).Probe(context.Background())
	if res.OK || !strings.Contains(res.Reason, "503") {
		t.Errorf("expected 503 failure, got %+v", res)
	}
}
