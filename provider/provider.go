package provider

import "context"

// Provider is implemented by every backend adapter.
type Provider interface {
	// Name returns the canonical provider name, such as "sensevoice_http".
	Name() string
	// Probe is a cheap reachability or prerequisite check. It must respect
	// ctx and report failures in the result rather than panicking.
	Probe(ctx context.Context) ProbeResult
}

// RequestResponse is a provider that turns one input into one output.
type RequestResponse[I, O any] interface {
	Provider
	Execute(ctx context.Context, input I) (O, error)
}

// ConfigChecker is implemented by providers that can tell, without any
// network traffic, whether their required settings are present.
type ConfigChecker interface {
	CheckConfig() error
}

// ProbeResult is the outcome of Provider.Probe.
type ProbeResult struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason"`
}

// ProbeOK is the result for a passing probe.
func ProbeOK() ProbeResult {
	return ProbeResult{OK: true, Reason: "ok"}
}

// ProbeFailed is the result for a failing probe.
func ProbeFailed(reason string) ProbeResult {
	return ProbeResult{Reason: reason}
}

// CheckConfig runs p's ConfigChecker if it has one.
func CheckConfig(p any) error {
	if c, ok := p.(ConfigChecker); ok {
		return c.CheckConfig()
	}
	return nil
}
