package component

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/voicegate/logger"
	"github.com/kbukum/voicegate/observability"
)

type mockComponent struct {
	name       string
	startErr   error
	stopErr    error
	health     observability.Health
	startOrder *[]string
	stopOrder  *[]string
	hangOnStop bool
}

func (m *mockComponent) Name() string { return m.name }
func (m *mockComponent) Start(ctx context.Context) error {
	if m.startOrder != nil {
		*m.startOrder = append(*m.startOrder, m.name)
	}
	return m.startErr
}
func (m *mockComponent) Stop(ctx context.Context) error {
	if m.stopOrder != nil {
		*m.stopOrder = append(*m.stopOrder, m.name)
	}
	if m.hangOnStop {
		<-ctx.Done()
		return ctx.Err()
	}
	return m.stopErr
}
func (m *mockComponent) CheckHealth(ctx context.Context) observability.Health {
	return m.health
}

type describedComponent struct {
	mockComponent
}

func (d *describedComponent) Describe() Description {
	return Description{Type: "database", Details: "memory"}
}

func up(name string) observability.Health {
	return observability.Health{Name: name, Status: observability.HealthStatusUp}
}

func TestRegisterDuplicate(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&mockComponent{name: "database"}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := r.Register(&mockComponent{name: "database"}); err == nil {
		t.Error("expected error for duplicate registration")
	}
}

func TestStartAll(t *testing.T) {
	r := NewRegistry()
	order := []string{}
	_ = r.Register(&mockComponent{name: "database", startOrder: &order})
	_ = r.Register(&mockComponent{name: "server", startOrder: &order})

	if err := r.StartAll(context.Background()); err != nil {
		t.Fatalf("StartAll failed: %v", err)
	}
	if len(order) != 2 || order[0] != "database" || order[1] != "server" {
		t.Errorf("expected start order [database server], got %v", order)
	}
}

func TestStartAll_SkipsStarted(t *testing.T) {
	r := NewRegistry()
	order := []string{}
	_ = r.Register(&mockComponent{name: "database", startOrder: &order})
	if err := r.StartAll(context.Background()); err != nil {
		t.Fatal(err)
	}
	_ = r.Register(&mockComponent{name: "server", startOrder: &order})
	if err := r.StartAll(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(order) != 2 || order[1] != "server" {
		t.Errorf("expected database once then server, got %v", order)
	}
}

func TestStartAllError(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(&mockComponent{name: "database", startErr: fmt.Errorf("disk full")})

	if err := r.StartAll(context.Background()); err == nil {
		t.Error("expected error from StartAll")
	}
}

func TestStopAllReverseOrder(t *testing.T) {
	r := NewRegistry()
	order := []string{}
	for _, name := range []string{"database", "voicestore", "server"} {
		_ = r.Register(&mockComponent{name: name, stopOrder: &order})
	}

	_ = r.StartAll(context.Background())
	if err := r.StopAll(context.Background()); err != nil {
		t.Fatalf("StopAll failed: %v", err)
	}
	if len(order) != 3 || order[0] != "server" || order[1] != "voicestore" || order[2] != "database" {
		t.Errorf("expected reverse stop order, got %v", order)
	}
}

func TestStopAllSkipsUnstarted(t *testing.T) {
	r := NewRegistry()
	order := []string{}
	_ = r.Register(&mockComponent{name: "database", stopOrder: &order})

	if err := r.StopAll(context.Background()); err != nil {
		t.Fatalf("StopAll failed: %v", err)
	}
	if len(order) != 0 {
		t.Errorf("expected 0 stops for unstarted components, got %d", len(order))
	}
}

func TestStopAllWithErrors(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(&mockComponent{name: "database", stopErr: fmt.Errorf("stop failed")})
	_ = r.StartAll(context.Background())

	if err := r.StopAll(context.Background()); err == nil {
		t.Error("expected error from StopAll")
	}
}

func TestStopAll_JoinsErrorsAndStopsEveryComponent(t *testing.T) {
	r := NewRegistry(WithLogger(logger.NewNop()), WithStopTimeout(20*time.Millisecond))
	order := []string{}
	_ = r.Register(&mockComponent{name: "database", stopOrder: &order, stopErr: errors.New("close failed")})
	_ = r.Register(&mockComponent{name: "server", stopOrder: &order, hangOnStop: true})
	if err := r.StartAll(context.Background()); err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	err := r.StopAll(context.Background())
	if time.Since(start) > time.Second {
		t.Errorf("stop timeout not applied, took %s", time.Since(start))
	}
	if !errors.Is(err, context.DeadlineExceeded) || !strings.Contains(err.Error(), "close failed") {
		t.Errorf("expected both stop errors joined, got %v", err)
	}
	if len(order) != 2 || order[0] != "server" || order[1] != "database" {
		t.Errorf("expected every component stopped in reverse, got %v", order)
	}
	if err := r.StopAll(context.Background()); err != nil {
		t.Errorf("stopped components should not stop twice, got %v", err)
	}
}

func TestHealthAllAndCheckers(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(&mockComponent{name: "database", health: up("database")})
	_ = r.Register(&mockComponent{name: "server", health: observability.Health{
		Name: "server", Status: observability.HealthStatusDown, Message: "not listening",
	}})

	results := r.HealthAll(context.Background())
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Status != observability.HealthStatusUp || results[1].Status != observability.HealthStatusDown {
		t.Errorf("unexpected statuses %+v", results)
	}

	sh := observability.Check(context.Background(), "voicegate", "dev", r.Checkers()...)
	if sh.Status != observability.HealthStatusDown {
		t.Errorf("expected aggregated status down, got %s", sh.Status)
	}
}

func TestDescribe(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(&mockComponent{name: "plain"})
	_ = r.Register(&describedComponent{mockComponent{name: "database"}})

	got := r.Describe()
	if len(got) != 1 {
		t.Fatalf("expected 1 description, got %d", len(got))
	}
	if got[0].Name != "database" || got[0].Type != "database" {
		t.Errorf("expected name defaulted from component, got %+v", got[0])
	}
}
