package broker

import (
	"context"
	"testing"
	"time"

	"github.com/kbukum/voicegate/observability"
	"github.com/kbukum/voicegate/provider"
)

func TestCheckHealth(t *testing.T) {
	a := &fakeProvider{name: "a", probe: provider.ProbeFailed("unreachable")}
	b := healthy("b", "from b")
	h := newHarness(t, []string{"a", "b"}, a, b)

	got := h.orch.CheckHealth(context.Background())
	if got.Name != "asr-providers" || got.Status != observability.HealthStatusUp {
		t.Fatalf("unexpected initial health %+v", got)
	}
	if got.Details["a"] != "unchecked" {
		t.Errorf("expected a unchecked, got %q", got.Details["a"])
	}

	if _, err := h.orch.Execute(context.Background(), "audio", ""); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	got = h.orch.CheckHealth(context.Background())
	if got.Status != observability.HealthStatusDegraded {
		t.Errorf("expected degraded while a cools down, got %s", got.Status)
	}
	if got.Details["b"] != "available" {
		t.Errorf("expected b available, got %q", got.Details["b"])
	}
	if got.Message != "1 of 2 providers cooling down" {
		t.Errorf("unexpected message %q", got.Message)
	}
	if probes, _ := a.counts(); probes != 1 {
		t.Errorf("health must not probe, got %d probes", probes)
	}

	h.clock.advance(31 * time.Second)
	if got := h.orch.CheckHealth(context.Background()); got.Status != observability.HealthStatusUp {
		t.Errorf("expected up after cooldown, got %s", got.Status)
	}
}

func TestCheckHealth_EmptyChain(t *testing.T) {
	h := newHarness(t, nil)
	got := h.orch.CheckHealth(context.Background())
	if got.Status != observability.HealthStatusDown {
		t.Errorf("expected down with no providers, got %s", got.Status)
	}
}
