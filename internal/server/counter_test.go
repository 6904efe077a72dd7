package server

import (
	"sync"
	"testing"
)

// TestViewCounterConcurrentIncrements verifies that no increments are lost
// under concurrent use.
func TestViewCounterConcurrentIncrements(t *testing.T) {
	const goroutines = 8
	const perGoroutine = 1000

	var counter ViewCounter

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				counter.Increment()
			}
		}()
	}
	wg.Wait()

	if got := counter.Value(); got != goroutines*perGoroutine {
		t.Errorf("Expected %d, got %d", goroutines*perGoroutine, got)
	}
}

// TestViewCounterReset verifies that Reset returns the counter to zero and
// counting can continue afterwards.
func TestViewCounterReset(t *testing.T) {
	var counter ViewCounter

	counter.Increment()
	counter.Increment()
	if got := counter.Value(); got != 2 {
		t.Fatalf("Expected 2 before reset, got %d", got)
	}

	counter.Reset()
	if got := counter.Value(); got != 0 {
		t.Errorf("Expected 0 after reset, got %d", got)
	}

	counter.Increment()
	if got := counter.Value(); got != 1 {
		t.Errorf("Expected 1 after reset and increment, got %d", got)
	}
}
