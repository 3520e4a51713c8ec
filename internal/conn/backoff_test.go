package conn

import (
	"testing"
	"time"
)

func TestBackoffMonotonicWithCap(t *testing.T) {
	r := newReconnector(2*time.Second, 30*time.Second, 1.5, 0)

	prev := time.Duration(0)
	for i := 0; i < 12; i++ {
		d := r.nextDelay()
		if d < prev {
			t.Fatalf("delay %v at attempt %d < previous %v", d, i, prev)
		}
		if d > 30*time.Second {
			t.Fatalf("delay %v exceeds cap", d)
		}
		prev = d
	}
	if prev != 30*time.Second {
		t.Errorf("final delay = %v, want capped at 30s", prev)
	}
}

func TestBackoffBaseline(t *testing.T) {
	r := newReconnector(2*time.Second, 30*time.Second, 1.5, 5)

	if d := r.nextDelay(); d != 2*time.Second {
		t.Errorf("first delay = %v, want baseline 2s", d)
	}
	if d := r.nextDelay(); d != 3*time.Second {
		t.Errorf("second delay = %v, want 3s (2s x1.5)", d)
	}
}

func TestBackoffResetReturnsToBaseline(t *testing.T) {
	r := newReconnector(2*time.Second, 30*time.Second, 1.5, 5)

	for i := 0; i < 4; i++ {
		r.nextDelay()
	}
	r.reset()
	if d := r.nextDelay(); d != 2*time.Second {
		t.Errorf("delay after reset = %v, want baseline 2s", d)
	}
}

func TestBackoffExhaustion(t *testing.T) {
	r := newReconnector(time.Millisecond, time.Second, 1.5, 3)

	for i := 0; i < 3; i++ {
		if r.exhausted() {
			t.Fatalf("exhausted after %d attempts, budget is 3", i)
		}
		r.nextDelay()
	}
	if !r.exhausted() {
		t.Error("not exhausted after 3 attempts")
	}

	r.reset()
	if r.exhausted() {
		t.Error("still exhausted after reset")
	}
}
