// Package component defines lifecycle-managed infrastructure for voicegate.
//
// A Component is started in registration order, stopped in reverse order and
// reports its health through observability.HealthChecker, so the /health
// endpoint can aggregate components and provider chains alike.
package component
