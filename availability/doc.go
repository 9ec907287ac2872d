// Package availability tracks per-provider health for the fallback broker.
//
// A Ledger holds one State per provider key. Keys are namespaced by
// capability ("asr:sensevoice_http") and must already be canonical, so an
// alias and its target share one entry.
//
// A failure opens a fixed cooldown window from the moment it is recorded.
// Repeated failures restart the same window rather than extending it, and a
// success closes it at once. Probe bookkeeping is kept separately so that
// reachability checks can be rate limited independently of cooldown.
//
// State lives in memory for the process lifetime; a restart forgets it.
package availability
