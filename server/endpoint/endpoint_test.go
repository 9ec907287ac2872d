package endpoint

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/voicegate/observability"
)

type staticChecker observability.Health

func (s staticChecker) CheckHealth(context.Context) observability.Health {
	return observability.Health(s)
}

func healthOf(statuses ...observability.HealthStatus) HealthFunc {
	return func(ctx context.Context) *observability.ServiceHealth {
		var checkers []observability.HealthChecker
		for i, st := range statuses {
			checkers = append(checkers, staticChecker{Name: string(rune('a' + i)), Status: st})
		}
		return observability.Check(ctx, "voicegate", "dev", checkers...)
	}
}

func serve(t *testing.T, h gin.HandlerFunc) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", h)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/x", http.NoBody))
	var body map[string]any
	if strings.HasPrefix(rr.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
	}
	return rr, body
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		statuses   []observability.HealthStatus
		wantCode   int
		wantStatus string
	}{
		{"all up", []observability.HealthStatus{observability.HealthStatusUp, observability.HealthStatusUp}, http.StatusOK, "up"},
		{"degraded chain", []observability.HealthStatus{observability.HealthStatusUp, observability.HealthStatusDegraded}, http.StatusOK, "degraded"},
		{"database down", []observability.HealthStatus{observability.HealthStatusDown, observability.HealthStatusDegraded}, http.StatusServiceUnavailable, "down"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr, body := serve(t, Health(healthOf(tc.statuses...)))
			if rr.Code != tc.wantCode {
				t.Errorf("expected %d, got %d", tc.wantCode, rr.Code)
			}
			if body["status"] != tc.wantStatus || body["service"] != "voicegate" {
				t.Errorf("unexpected body %v", body)
			}
			if comps, _ := body["components"].([]any); len(comps) != len(tc.statuses) {
				t.Errorf("expected %d components, got %v", len(tc.statuses), body["components"])
			}
		})
	}
}

func TestReadinessAndLiveness(t *testing.T) {
	rr, body := serve(t, Readiness(healthOf(observability.HealthStatusDown)))
	if rr.Code != http.StatusServiceUnavailable || body["status"] != "not_ready" {
		t.Errorf("unexpected readiness %d %v", rr.Code, body)
	}
	rr, body = serve(t, Readiness(healthOf(observability.HealthStatusDegraded)))
	if rr.Code != http.StatusOK || body["status"] != "ready" {
		t.Errorf("degraded should still be ready, got %d %v", rr.Code, body)
	}
	rr, body = serve(t, Liveness("voicegate"))
	if rr.Code != http.StatusOK || body["status"] != "alive" {
		t.Errorf("unexpected liveness %d %v", rr.Code, body)
	}
}

func TestInfo(t *testing.T) {
	rr, body := serve(t, Info("voicegate", "staging"))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if body["service"] != "voicegate" || body["environment"] != "staging" || body["version"] == "" {
		t.Errorf("unexpected info %v", body)
	}
}

func TestMetrics(t *testing.T) {
	rr, _ := serve(t, Metrics())
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "go_goroutines") {
		t.Error("expected default Go collector output")
	}
}
