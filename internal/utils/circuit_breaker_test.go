package utils

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCircuitBreakerOpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:             "test-open",
		FailureThreshold: 3,
		ResetTimeout:     time.Hour,
		CallTimeout:      time.Second,
	})

	failing := func(context.Context) error { return errors.New("boom") }

	for i := 0; i < 3; i++ {
		if err := cb.Call(context.Background(), failing); err == nil {
			t.Fatalf("Expected failure on call %d", i)
		}
	}

	if cb.GetState() != StateOpen {
		t.Fatalf("Expected state open, got %s", cb.GetState())
	}

	called := false
	err := cb.Call(context.Background(), func(context.Context) error {
		called = true
		return nil
	})

	var cbErr *CircuitBreakerError
	if !errors.As(err, &cbErr) {
		t.Fatalf("Expected CircuitBreakerError, got %v", err)
	}
	if called {
		t.Error("Function should not run while the breaker is open")
	}

	m := cb.GetMetrics()
	if m.TotalFailures != 3 || m.TotalRejected != 1 {
		t.Errorf("Unexpected metrics %+v", m)
	}
}

func TestCircuitBreakerHalfOpenRecovers(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:             "test-recover",
		FailureThreshold: 1,
		ResetTimeout:     10 * time.Millisecond,
		CallTimeout:      time.Second,
	})

	_ = cb.Call(context.Background(), func(context.Context) error { return errors.New("boom") })
	if cb.GetState() != StateOpen {
		t.Fatalf("Expected state open, got %s", cb.GetState())
	}

	time.Sleep(20 * time.Millisecond)

	if err := cb.Call(context.Background(), func(context.Context) error { return nil }); err != nil {
		t.Fatalf("Expected trial call to succeed: %v", err)
	}
	if cb.GetState() != StateClosed {
		t.Errorf("Expected state closed, got %s", cb.GetState())
	}
}

func TestCircuitBreakerIgnoresCallerCancellation(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:             "test-cancel",
		FailureThreshold: 1,
		ResetTimeout:     time.Hour,
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := cb.Call(ctx, func(ctx context.Context) error { return ctx.Err() })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if cb.GetState() != StateClosed {
		t.Errorf("Cancelled call should not open the breaker, state %s", cb.GetState())
	}
}

func TestCircuitBreakerRegistry(t *testing.T) {
	r := NewCircuitBreakerRegistry()
	a := r.GetOrCreate("github", CircuitBreakerConfig{FailureThreshold: 2})
	b := r.GetOrCreate("github", CircuitBreakerConfig{FailureThreshold: 9})

	if a != b {
		t.Error("Registry should return the same breaker for the same name")
	}
	if _, ok := r.GetAllMetrics()["github"]; !ok {
		t.Error("Expected metrics for github breaker")
	}
}
