package ratelimit

import (
	"testing"
	"time"
)

// fakeClock advances manually.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(window time.Duration, max int) (*Limiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)}
	l := NewLimiter(window, max)
	l.now = clock.now
	return l, clock
}

func TestLimiterAccumulatesWithinWindow(t *testing.T) {
	l, _ := newTestLimiter(time.Minute, 3)

	for i := 0; i < 3; i++ {
		if l.IsLimited() {
			t.Fatalf("limited after %d requests, want limit at 3", i)
		}
		l.Increment()
	}

	if !l.IsLimited() {
		t.Error("IsLimited() = false after reaching ceiling, want true")
	}
	if got := l.Remaining(); got != 0 {
		t.Errorf("Remaining() = %d, want 0", got)
	}
}

func TestLimiterResetsAfterWindow(t *testing.T) {
	l, clock := newTestLimiter(time.Minute, 2)

	l.Increment()
	l.Increment()
	if !l.IsLimited() {
		t.Fatal("expected limiter to be saturated")
	}

	clock.advance(time.Minute)

	if l.IsLimited() {
		t.Error("IsLimited() = true after window expiry, want false")
	}
	if got := l.Remaining(); got != 2 {
		t.Errorf("Remaining() = %d, want full ceiling after reset", got)
	}
}

func TestLimiterRemainingTime(t *testing.T) {
	l, clock := newTestLimiter(time.Minute, 5)

	l.Increment() // starts the window
	clock.advance(20 * time.Second)

	if got := l.RemainingTime(); got != 40*time.Second {
		t.Errorf("RemainingTime() = %v, want 40s", got)
	}

	clock.advance(40 * time.Second)
	if got := l.RemainingTime(); got != time.Minute {
		// Expired window rolls over, so a fresh full window remains.
		t.Errorf("RemainingTime() = %v, want a fresh window", got)
	}
}

func TestLimiterCheckDoesNotConsume(t *testing.T) {
	l, _ := newTestLimiter(time.Minute, 1)

	// Checking repeatedly must not consume budget; only Increment does.
	for i := 0; i < 5; i++ {
		if l.IsLimited() {
			t.Fatal("IsLimited() consumed budget")
		}
	}
	l.Increment()
	if !l.IsLimited() {
		t.Error("IsLimited() = false after one dispatch with ceiling 1")
	}
}

func TestRegistryKeysAreIndependent(t *testing.T) {
	r := NewRegistry(time.Minute, 1)

	syncLimiter := r.Get("youtube-sync")
	aiLimiter := r.Get("ai-processing")

	syncLimiter.Increment()
	if !syncLimiter.IsLimited() {
		t.Fatal("sync limiter should be saturated")
	}
	if aiLimiter.IsLimited() {
		t.Error("ai limiter shares state with sync limiter")
	}

	if r.Get("youtube-sync") != syncLimiter {
		t.Error("Get() returned a new instance for an existing key")
	}
}
