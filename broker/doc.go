// Package broker runs one capability request across an ordered list of
// providers and returns the first success.
//
// For each candidate the Orchestrator consults the availability ledger:
// providers cooling down are skipped without a call, stale providers are
// probed first, and every probe or invocation outcome is written back.
// Candidates are tried strictly in order, one at a time, so the worst-case
// latency of a request is the sum of the per-provider probe and call
// timeouts. Keep priority lists short.
//
// When every candidate fails the caller receives a single
// PROVIDER_UNAVAILABLE error listing each provider with its reason.
package broker
