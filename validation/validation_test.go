package validation

import (
	"errors"
	"strings"
	"testing"

	apperrors "github.com/kbukum/voicegate/errors"
)

type enrollBody struct {
	AudioURL      string   `json:"audio_url" validate:"required,http_url"`
	Prefix        string   `json:"prefix" validate:"omitempty,voice_prefix"`
	LanguageHints []string `json:"language_hints" validate:"max=4,dive,oneof=zh en ja"`
	PageSize      int      `json:"page_size" validate:"gte=1,lte=100"`
}

type nested struct {
	Providers struct {
		ProbeTimeoutMS int `mapstructure:"probe_timeout_ms" validate:"gt=0"`
	} `mapstructure:"providers"`
}

func fieldsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	app, ok := apperrors.AsAppError(err)
	if !ok {
		t.Fatalf("expected AppError, got %v", err)
	}
	if app.Code != apperrors.ErrCodeInvalidInput {
		t.Fatalf("expected INVALID_INPUT, got %s", app.Code)
	}
	out := map[string]string{}
	for _, f := range app.Details["fields"].([]FieldError) {
		out[f.Field] = f.Message
	}
	return out
}

func TestStruct_Valid(t *testing.T) {
	body := enrollBody{AudioURL: "https://cdn.example.com/a.wav", Prefix: "voice_01", LanguageHints: []string{"zh"}, PageSize: 10}
	if err := Struct(body); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestStruct_Errors(t *testing.T) {
	body := enrollBody{AudioURL: "not a url", Prefix: "has-dash", LanguageHints: []string{"fr"}, PageSize: 0}
	fields := fieldsOf(t, Struct(body))

	want := map[string]string{
		"audio_url":         "must be a valid URL",
		"prefix":            "must be 1-16 letters, digits or underscores",
		"language_hints[0]": "must be one of: zh en ja",
		"page_size":         "must be >= 1",
	}
	for field, msg := range want {
		if fields[field] != msg {
			t.Errorf("field %s: expected %q, got %q (all: %v)", field, msg, fields[field], fields)
		}
	}
}

func TestStruct_LongPrefix(t *testing.T) {
	body := enrollBody{AudioURL: "https://x.io/a.wav", Prefix: strings.Repeat("a", 17), PageSize: 1}
	if _, ok := fieldsOf(t, Struct(body))["prefix"]; !ok {
		t.Error("expected prefix error for 17 characters")
	}
}

func TestStruct_NestedUsesMapstructureNames(t *testing.T) {
	fields := fieldsOf(t, Struct(nested{}))
	if fields["providers.probe_timeout_ms"] != "must be > 0" {
		t.Errorf("unexpected fields %v", fields)
	}
}

func TestValidator(t *testing.T) {
	v := New().
		Required("dashscope.api_key", " ").
		Range("server.port", 70000, 0, 65535).
		OneOf("asr.default_format", "flac", []string{"pcm", "wav"}).
		OneOf("asr.default_format", "", []string{"pcm"}).
		Custom(false, "tts.priority", "must not be empty")

	if len(v.Errors()) != 4 {
		t.Fatalf("expected 4 errors, got %v", v.Errors())
	}
	err := v.Validate()
	if err == nil || !strings.Contains(err.Message, "server.port: must be between 0 and 65535") {
		t.Errorf("unexpected message %v", err)
	}
	if New().Err() != nil {
		t.Error("empty validator should be valid")
	}
}

func TestValidator_Merge(t *testing.T) {
	v := New()
	v.Merge("ignored", Struct(nested{}))
	v.Merge("server", errors.New("server.port must be between 0 and 65535"))
	v.Merge("nothing", nil)

	got := v.Errors()
	if len(got) != 2 || got[0].Field != "providers.probe_timeout_ms" || got[1].Field != "server" {
		t.Errorf("unexpected merged errors %v", got)
	}
}

func TestToSnakeCase(t *testing.T) {
	tests := map[string]string{"AudioURL": "audio_u_r_l", "PageSize": "page_size", "id": "id"}
	for in, want := range tests {
		if got := toSnakeCase(in); got != want {
			t.Errorf("toSnakeCase(%q) = %q, want %q", in, got, want)
		}
	}
}
