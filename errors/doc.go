// Package errors defines the AppError type shared by every voicegate layer.
// Errors carry a machine-readable code, an HTTP status and a retryable flag
// so the route layer can render them without inspecting provider internals.
package errors
