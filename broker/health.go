package broker

import (
	"context"
	"fmt"

	"github.com/kbukum/voicegate/availability"
	"github.com/kbukum/voicegate/observability"
)

var _ observability.HealthChecker = (*Orchestrator[any, any])(nil)

// CheckHealth summarizes the fallback chain from the ledger without probing.
// Cooling providers degrade the result; only an empty chain is down.
func (o *Orchestrator[I, O]) CheckHealth(context.Context) observability.Health {
	h := observability.Health{
		Name:    o.cfg.Capability + "-providers",
		Status:  observability.HealthStatusUp,
		Details: map[string]string{},
	}
	chain, _ := o.Candidates("")
	if len(chain) == 0 {
		h.Status = observability.HealthStatusDown
		h.Message = o.cfg.NoProviderReason
		return h
	}

	now := o.ledger.Now()
	cooling := 0
	for _, name := range chain {
		state, seen := o.ledger.State(availability.Key(o.cfg.Capability, name))
		switch {
		case state.CoolingDown(now):
			cooling++
			h.Details[name] = "cooling down: " + state.LastError
		case !seen:
			h.Details[name] = "unchecked"
		default:
			h.Details[name] = "available"
		}
	}
	if cooling > 0 {
		h.Status = observability.HealthStatusDegraded
		h.Message = fmt.Sprintf("%d of %d providers cooling down", cooling, len(chain))
	}
	return h
}
