// Package asr is the speech-to-text capability of the broker.
//
// Adapters live in the sub-packages (sensevoice, funasr, whisper, openai)
// and satisfy Provider. Service wraps the ASR orchestrator and is what the
// HTTP layer calls.
package asr
