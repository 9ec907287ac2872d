// Package provider defines the adapter contract shared by every speech
// backend and the registry and middleware built around it.
//
// An adapter is a RequestResponse[I, O]: it has a canonical Name, a cheap
// Probe, and Execute for the real operation. Adapters that can detect
// missing credentials locally also implement ConfigChecker.
//
// A Registry holds the adapters of one capability. Legacy names are mapped
// onto canonical ones with Alias, and Resolve turns a configured priority
// list into canonical, de-duplicated order:
//
//	reg := provider.NewRegistry[asr.Provider]()
//	reg.Register(sensevoice)
//	reg.Alias("cosyvoice_tts", "qwen_clone_tts")
//	order, unknown := reg.Resolve(cfg.Priority, asr.DefaultPriority)
//
// Middleware wraps adapters with logging, metrics, tracing and call guards:
//
//	p = provider.Chain(
//	    provider.WithLogging[In, Out](log),
//	    provider.WithTracing[In, Out]("asr"),
//	    provider.WithMetrics[In, Out](metrics, "asr"),
//	    provider.WithResilience[In, Out](guards),
//	)(p)
package provider
