package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errNotReady = errors.New("voice not ready")

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	var retried []int
	cfg := RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		OnRetry:        func(attempt int, _ error, _ time.Duration) { retried = append(retried, attempt) },
	}

	got, err := Retry(context.Background(), cfg, func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errNotReady
		}
		return "READY", nil
	})
	if err != nil || got != "READY" {
		t.Fatalf("expected READY, got %q, %v", got, err)
	}
	if calls != 3 || len(retried) != 2 {
		t.Errorf("expected 3 calls and 2 retries, got %d and %v", calls, retried)
	}
}

func TestRetry_ReturnsLastError(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), PollConfig(time.Millisecond, 4, nil), func(context.Context) (int, error) {
		calls++
		return 0, errNotReady
	})
	if !errors.Is(err, errNotReady) {
		t.Errorf("expected last error, got %v", err)
	}
	if calls != 4 {
		t.Errorf("expected 4 calls, got %d", calls)
	}
}

func TestRetry_RetryIfStopsEarly(t *testing.T) {
	permanent := errors.New("voice rejected")
	calls := 0
	cfg := PollConfig(time.Millisecond, 5, func(err error) bool { return errors.Is(err, errNotReady) })

	_, err := Retry(context.Background(), cfg, func(context.Context) (struct{}, error) {
		calls++
		return struct{}{}, permanent
	})
	if !errors.Is(err, permanent) || calls != 1 {
		t.Errorf("expected one call ending in permanent error, got %d calls, %v", calls, err)
	}
}

func TestRetry_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := PollConfig(time.Hour, 3, nil)
	cfg.OnRetry = func(int, error, time.Duration) { cancel() }

	_, err := Retry(ctx, cfg, func(context.Context) (int, error) { return 0, errNotReady })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRetry_ContextAlreadyDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	_, err := Retry(ctx, DefaultRetryConfig(), func(context.Context) (int, error) {
		calls++
		return 1, nil
	})
	if !errors.Is(err, context.Canceled) || calls != 0 {
		t.Errorf("expected no calls on a done context, got %d, %v", calls, err)
	}
}

func TestBackoff(t *testing.T) {
	cfg := RetryConfig{InitialBackoff: 100 * time.Millisecond, MaxBackoff: 300 * time.Millisecond, BackoffFactor: 2}
	cfg.normalize()
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 300 * time.Millisecond}
	for i, w := range want {
		if got := cfg.backoff(i + 1); got != w {
			t.Errorf("attempt %d: expected %v, got %v", i+1, w, got)
		}
	}

	fixed := PollConfig(500*time.Millisecond, 3, nil)
	fixed.normalize()
	if fixed.backoff(1) != fixed.backoff(3) {
		t.Error("poll config should use a fixed interval")
	}
}

func TestDefaultRetryIf(t *testing.T) {
	if DefaultRetryIf(context.Canceled) || DefaultRetryIf(context.DeadlineExceeded) {
		t.Error("context errors must not be retried")
	}
	if !DefaultRetryIf(errNotReady) {
		t.Error("plain errors should be retried")
	}
}
