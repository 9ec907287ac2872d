// Package server provides the voicegate HTTP server: Gin routes served over
// HTTP/1.1 and h2c, the standard middleware stack and the probe endpoints.
//
// # Middleware
//
// Built-in middleware (server/middleware) wraps the root handler so it also
// covers websocket upgrades:
//
//   - Recovery: panic recovery with the standard error envelope
//   - RequestID: X-Request-Id generation and propagation into log context
//   - Metrics: request count, latency and in-flight gauge
//   - RequestLogger: request logging with duration tracking
//   - CORS: cross-origin configuration, exposing the TTS provider headers
//   - Auth: optional HMAC JWT bearer authentication
//   - RateLimit: optional per-client token buckets
//   - BodySizeLimit: request body size limit
//
// # Endpoints
//
// Built-in endpoints (server/endpoint): /health, /liveness, /readiness,
// /info and /metrics.
package server
