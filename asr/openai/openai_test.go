package openai

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kbukum/voicegate/asr"
)

func TestExecute(t *testing.T) {
	var gotModel, gotLang, gotAuth, gotFile string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/transcriptions" {
			http.NotFound(w, r)
			return
		}
		gotAuth = r.Header.Get("Authorization")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		gotModel, gotLang = r.FormValue("model"), r.FormValue("language")
		if _, hdr, err := r.FormFile("file"); err == nil {
			gotFile = hdr.Filename
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"text":" bonjour ","language":"french"}`)
	}))
	defer srv.Close()

	p := NewProvider(Config{APIKey: "sk-1", BaseURL: srv.URL + "/v1"})
	res, err := p.Execute(context.Background(), asr.Request{Audio: []byte("x"), Filename: "hello.webm", Language: "fr"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Text != "bonjour" || res.Language != "french" {
		t.Errorf("unexpected response %+v", res)
	}
	if gotModel != "whisper-1" || gotLang != "fr" || gotAuth != "Bearer sk-1" || gotFile != "hello.webm" {
		t.Errorf("unexpected request model=%q lang=%q auth=%q file=%q", gotModel, gotLang, gotAuth, gotFile)
	}
}

func TestExecute_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	_, err := NewProvider(Config{APIKey: "sk-1", BaseURL: srv.URL + "/v1"}).
		Execute(context.Background(), asr.Request{Audio: []byte("x")})
	if err == nil || !strings.Contains(err.Error(), "bad key") {
		t.Fatalf("expected api error, got %v", err)
	}
}

func TestMissingKey(t *testing.T) {
	p := NewProvider(Config{})
	if err := p.CheckConfig(); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("expected ErrMissingAPIKey, got %v", err)
	}
	if res := p.Probe(context.Background()); res.OK {
		t.Error("probe should fail without a key")
	}
	if _, err := p.Execute(context.Background(), asr.Request{Audio: []byte("x")}); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("expected ErrMissingAPIKey, got %v", err)
	}
}
