// Package tts is the text-to-speech capability of the broker.
//
// Adapters live in the sub-packages (gptsovits, qwen, openai) and satisfy
// Provider. Service wraps the TTS orchestrator and, when a voice clone
// backend is configured, its voice management.
package tts
