package broker

import (
	"fmt"
	"time"
)

// Default timings.
const (
	DefaultFailureCooldown = 30 * time.Second
	DefaultProbeInterval   = 15 * time.Second
	DefaultProbeTimeout    = 1500 * time.Millisecond
	DefaultCallTimeout     = 60 * time.Second
)

// Config is the per-capability orchestration policy.
type Config struct {
	// Capability namespaces ledger keys, e.g. "asr".
	Capability string
	// Priority is the configured order. Empty means Defaults.
	Priority []string
	// Defaults is the built-in order.
	Defaults []string
	// FailureCooldown is applied on every probe or call failure.
	FailureCooldown time.Duration
	// ProbeInterval is the minimum time between probes of one provider.
	ProbeInterval time.Duration
	// ProbeTimeout bounds each probe and should be well below CallTimeout.
	ProbeTimeout time.Duration
	// CallTimeout bounds each provider invocation.
	CallTimeout time.Duration
	// UnavailableMessage prefixes the exhaustion summary.
	UnavailableMessage string
	// NoProviderReason is used when the candidate list is empty.
	NoProviderReason string
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.FailureCooldown <= 0 {
		c.FailureCooldown = DefaultFailureCooldown
	}
	if c.ProbeInterval <= 0 {
		c.ProbeInterval = DefaultProbeInterval
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = DefaultProbeTimeout
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = DefaultCallTimeout
	}
	if c.UnavailableMessage == "" {
		c.UnavailableMessage = c.Capability + " is unavailable"
	}
	if c.NoProviderReason == "" {
		c.NoProviderReason = "no " + c.Capability + " provider configured"
	}
}

// Validate checks the policy after defaults are applied.
func (c *Config) Validate() error {
	if c.Capability == "" {
		return fmt.Errorf("broker: capability is required")
	}
	if c.ProbeTimeout >= c.CallTimeout {
		return fmt.Errorf("broker %s: probe timeout %s must be shorter than call timeout %s",
			c.Capability, c.ProbeTimeout, c.CallTimeout)
	}
	return nil
}
