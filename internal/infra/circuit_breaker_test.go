package infra

import "testing"

func TestCircuitBreakerOpensAfterFailures(t *testing.T) {
	cb := NewCircuitBreaker("test")

	for i := 0; i < 5; i++ {
		if !cb.Allow() {
			t.Fatalf("breaker rejected call %d while closed", i)
		}
		cb.RecordFailure()
	}

	if cb.State() != BreakerOpen {
		t.Fatalf("state = %s, want OPEN", cb.State())
	}
	if cb.Allow() {
		t.Fatal("open breaker must reject")
	}
}

func TestCircuitBreakerRecoversThroughHalfOpen(t *testing.T) {
	cb := NewCircuitBreaker("test")
	cb.timeout = 0 // probe immediately

	for i := 0; i < 5; i++ {
		cb.RecordFailure()
	}
	if cb.State() != BreakerOpen {
		t.Fatalf("state = %s, want OPEN", cb.State())
	}

	// First Allow after the timeout probes half-open.
	if !cb.Allow() {
		t.Fatal("expired open breaker must probe")
	}
	cb.RecordSuccess()
	cb.RecordSuccess()

	if cb.State() != BreakerClosed {
		t.Fatalf("state = %s, want CLOSED", cb.State())
	}
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker("test")
	cb.timeout = 0

	for i := 0; i < 5; i++ {
		cb.RecordFailure()
	}
	if !cb.Allow() {
		t.Fatal("expected half-open probe")
	}
	cb.RecordFailure()

	if cb.State() != BreakerOpen {
		t.Fatalf("state = %s, want OPEN after half-open failure", cb.State())
	}
}
