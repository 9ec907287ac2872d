package bootstrap

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/kbukum/voicegate/component"
	"github.com/kbukum/voicegate/observability"
)

// ProviderChain is the resolved fallback order of one capability.
type ProviderChain struct {
	Capability string
	Chain      []string
	// Unknown lists configured names that matched no provider.
	Unknown []string
}

// Summary collects what the startup summary prints.
type Summary struct {
	serviceName     string
	version         string
	startupDuration time.Duration
	providers       []ProviderChain
	out             io.Writer
}

// NewSummary creates a summary that writes to stdout.
func NewSummary(serviceName, version string) *Summary {
	return &Summary{serviceName: serviceName, version: version, out: os.Stdout}
}

// SetStartupDuration records the total startup time.
func (s *Summary) SetStartupDuration(d time.Duration) {
	s.startupDuration = d
}

// TrackProviders records a capability's fallback chain.
func (s *Summary) TrackProviders(capability string, chain, unknown []string) {
	s.providers = append(s.providers, ProviderChain{Capability: capability, Chain: chain, Unknown: unknown})
}

// Display prints the summary with infrastructure and routes taken from the
// registry and a live health check.
func (s *Summary) Display(ctx context.Context, registry *component.Registry) {
	w := s.out
	fmt.Fprintf(w, "\n🚀 %s %s started in %.2fs\n", s.serviceName, s.version, s.startupDuration.Seconds())

	if registry != nil {
		if infra := registry.Describe(); len(infra) > 0 {
			fmt.Fprintf(w, "\n📊 Infrastructure\n")
			for i, d := range infra {
				details := d.Details
				if d.Port > 0 {
					details = fmt.Sprintf("%s (:%d)", details, d.Port)
				}
				fmt.Fprintf(w, "   %s %s [%s]: %s\n", branch(i, len(infra)), d.Name, d.Type, details)
			}
		}
	}

	if len(s.providers) > 0 {
		fmt.Fprintf(w, "\n🔀 Providers\n")
		for i, p := range s.providers {
			chain := strings.Join(p.Chain, " → ")
			if chain == "" {
				chain = "(none)"
			}
			fmt.Fprintf(w, "   %s %s: %s\n", branch(i, len(s.providers)), p.Capability, chain)
			if len(p.Unknown) > 0 {
				fmt.Fprintf(w, "       ⚠️  ignored: %s\n", strings.Join(p.Unknown, ", "))
			}
		}
	}

	if registry == nil {
		fmt.Fprintln(w)
		return
	}

	var routes []component.Route
	for _, c := range registry.Checkers() {
		if rp, ok := c.(component.RouteProvider); ok {
			routes = append(routes, rp.Routes()...)
		}
	}
	if len(routes) > 0 {
		fmt.Fprintf(w, "\n🌐 Routes (%d)\n", len(routes))
		for i, r := range routes {
			fmt.Fprintf(w, "   %s %-7s %s → %s\n", branch(i, len(routes)), r.Method, r.Path, r.Handler)
		}
	}

	if results := registry.HealthAll(ctx); len(results) > 0 {
		fmt.Fprintf(w, "\n🏥 Health Check\n")
		for i, h := range results {
			msg := ""
			if h.Message != "" {
				msg = " - " + h.Message
			}
			fmt.Fprintf(w, "   %s %s %s: %s%s\n", branch(i, len(results)), healthIcon(h.Status), h.Name, h.Status, msg)
		}
	}
	fmt.Fprintln(w)
}

func branch(i, n int) string {
	if i == n-1 {
		return "└──"
	}
	return "├──"
}

func healthIcon(status observability.HealthStatus) string {
	switch status {
	case observability.HealthStatusUp:
		return "✅"
	case observability.HealthStatusDegraded:
		return "⚠️"
	case observability.HealthStatusDown:
		return "❌"
	default:
		return "❓"
	}
}
