package asr

import (
	"path"
	"strings"

	"github.com/kbukum/voicegate/audio"
)

var knownFormats = map[string]bool{
	"pcm": true, "wav": true, "mp3": true, "opus": true,
	"speex": true, "aac": true, "amr": true,
}

// InferFormat returns the audio format named by filename's suffix, or
// fallback when the suffix is missing or unsupported.
func InferFormat(filename, fallback string) string {
	ext := strings.TrimPrefix(path.Ext(strings.ToLower(strings.TrimSpace(filename))), ".")
	if knownFormats[ext] {
		return ext
	}
	return fallback
}

// InferSampleRate reads the sample rate from a WAV header. Any other
// format, or a header that cannot be parsed, yields fallback.
func InferSampleRate(data []byte, format string, fallback int) int {
	if format != "wav" {
		return fallback
	}
	rate, ok := audio.WAVSampleRate(data)
	if !ok || rate <= 0 {
		return fallback
	}
	return rate
}
