// Package resilience provides the call guards wrapped around provider
// adapters and their upstream polling loops.
//
//   - Retry re-runs an operation with capped exponential backoff.
//   - Bulkhead bounds the number of concurrent calls into one provider.
//   - RateLimiter is a token bucket backed by golang.org/x/time/rate.
//
// Cooldown after failure is not handled here; the availability ledger owns
// that decision.
package resilience
