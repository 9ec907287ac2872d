// Package api exposes the ASR and TTS services over HTTP.
//
// Routes live under /v1 on the server's Gin engine:
//
//	GET    /v1/asr/providers
//	POST   /v1/asr/transcribe
//	GET    /v1/asr/fun/realtime/usage
//	GET    /v1/asr/fun/realtime/ws
//	GET    /v1/tts/providers
//	POST   /v1/tts/synthesize
//	POST   /v1/tts/{qwen,cosyvoice}/enroll
//	GET    /v1/tts/{qwen,cosyvoice}/voices
//	DELETE /v1/tts/qwen/voice
//	GET    /v1/providers/state
//
// Failures are written with server.RespondWithError so every route shares
// the errors.ErrorResponse envelope.
package api
