package resilience

import (
	"errors"
	"testing"
	"time"
)

func TestCircuitBreaker_StateClosed(t *testing.T) {
	cb := NewCircuitBreaker("test", 3, 1*time.Second)

	if cb.State() != StateClosed {
		t.Errorf("Expected initial state to be Closed, got %d", cb.State())
	}

	// Should allow requests
	if !cb.allowRequest() {
		t.Error("Expected to allow request in Closed state")
	}
}

func TestCircuitBreaker_OpenAfterFailures(t *testing.T) {
	cb := NewCircuitBreaker("test", 3, 1*time.Second)

	// Record failures
	cb.recordResult(false)
	cb.recordResult(false)
	if cb.State() != StateClosed {
		t.Error("Expected state to still be Closed after 2 failures")
	}

	// Third failure should open circuit
	cb.recordResult(false)
	if cb.State() != StateOpen {
		t.Error("Expected state to be Open after 3 failures")
	}

	// Should not allow requests
	if cb.allowRequest() {
		t.Error("Expected to not allow request in Open state")
	}
}

func TestCircuitBreaker_HalfOpen(t *testing.T) {
	cb := NewCircuitBreaker("test", 3, 100*time.Millisecond)

	// Open the circuit
	cb.recordResult(false)
	cb.recordResult(false)
	cb.recordResult(false)

	if cb.State() != StateOpen {
		t.Fatal("Expected circuit to be Open")
	}

	// Wait for reset timeout
	time.Sleep(150 * time.Millisecond)

	// Should transition to HalfOpen
	if !cb.allowRequest() {
		t.Error("Expected to allow request after timeout (HalfOpen)")
	}

	if cb.State() != StateHalfOpen {
		t.Errorf("Expected state to be HalfOpen, got %d", cb.State())
	}
}

func TestCircuitBreaker_CloseAfterSuccess(t *testing.T) {
	cb := NewCircuitBreaker("test", 3, 100*time.Millisecond)

	// Open the circuit
	cb.recordResult(false)
	cb.recordResult(false)
	cb.recordResult(false)

	// Wait for reset timeout
	time.Sleep(150 * time.Millisecond)

	// Record enough successes in half-open to close the circuit
	for i := 0; i < 3; i++ {
		if !cb.allowRequest() {
			t.Fatalf("Expected half-open request %d to be allowed", i+1)
		}
		cb.recordResult(true)
	}

	if cb.State() != StateClosed {
		t.Errorf("Expected state to be Closed after successes, got %d", cb.State())
	}
}

func TestCircuitBreaker_ReopenOnHalfOpenFailure(t *testing.T) {
	cb := NewCircuitBreaker("test", 3, 100*time.Millisecond)

	// Open the circuit
	cb.recordResult(false)
	cb.recordResult(false)
	cb.recordResult(false)

	time.Sleep(150 * time.Millisecond)

	if !cb.allowRequest() {
		t.Fatal("Expected half-open request to be allowed")
	}

	// A single failure in half-open re-opens the circuit
	cb.recordResult(false)
	if cb.State() != StateOpen {
		t.Errorf("Expected state to be Open after half-open failure, got %d", cb.State())
	}
}

func TestCircuitBreaker_Call(t *testing.T) {
	cb := NewCircuitBreaker("test", 2, 1*time.Second)
	testErr := errors.New("boom")

	// Failures propagate and eventually open the circuit
	for i := 0; i < 2; i++ {
		if err := cb.Call(func() error { return testErr }); !errors.Is(err, testErr) {
			t.Errorf("Expected wrapped error, got %v", err)
		}
	}

	// Circuit is now open; calls are rejected without executing fn
	executed := false
	err := cb.Call(func() error {
		executed = true
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Expected ErrCircuitOpen, got %v", err)
	}
	if executed {
		t.Error("Expected fn not to execute while circuit is open")
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb := NewCircuitBreaker("test", 1, 1*time.Hour)

	cb.recordResult(false)
	if cb.State() != StateOpen {
		t.Fatal("Expected circuit to be Open")
	}

	cb.Reset()
	if cb.State() != StateClosed {
		t.Errorf("Expected state to be Closed after reset, got %d", cb.State())
	}
	if !cb.allowRequest() {
		t.Error("Expected to allow request after reset")
	}
}

func TestCircuitBreaker_OnStateChange(t *testing.T) {
	cb := NewCircuitBreaker("test", 1, 1*time.Hour)

	var states []CircuitState
	cb.OnStateChange(func(name string, state CircuitState) {
		if name != "test" {
			t.Errorf("Expected breaker name 'test', got %q", name)
		}
		states = append(states, state)
	})

	cb.recordResult(false)
	cb.Reset()

	if len(states) != 2 || states[0] != StateOpen || states[1] != StateClosed {
		t.Errorf("Expected transitions [Open Closed], got %v", states)
	}
}
