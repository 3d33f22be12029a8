// Package ratelimit provides a fixed-window request gate, independent of
// the external API quota. It protects against bursty local call rates.
package ratelimit

import (
	"sync"
	"time"
)

// Default limiter settings for sync calls.
const (
	// DefaultWindow is the default fixed window length.
	DefaultWindow = 1 * time.Minute
	// DefaultMaxRequests is the default per-window request ceiling.
	DefaultMaxRequests = 30
)

// Limiter is a fixed-window request counter. It does not block; callers
// check IsLimited before acting and call Increment only after a
// successful dispatch. Check and increment are deliberately two separate
// calls: each limiter key has a single writer.
type Limiter struct {
	window      time.Duration
	maxRequests int

	mu          sync.Mutex
	windowStart time.Time
	count       int

	// now is injectable for tests.
	now func() time.Time
}

// NewLimiter creates a limiter with the given window and request ceiling.
// Non-positive arguments fall back to the defaults.
func NewLimiter(window time.Duration, maxRequests int) *Limiter {
	if window <= 0 {
		window = DefaultWindow
	}
	if maxRequests <= 0 {
		maxRequests = DefaultMaxRequests
	}
	return &Limiter{
		window:      window,
		maxRequests: maxRequests,
		now:         time.Now,
	}
}

// IsLimited reports whether the current window's request ceiling has been
// reached. An expired window is reset before the check.
func (l *Limiter) IsLimited() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.roll()
	return l.count >= l.maxRequests
}

// Increment records one dispatched request in the current window.
func (l *Limiter) Increment() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.roll()
	l.count++
}

// Remaining returns the number of requests left in the current window.
func (l *Limiter) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.roll()
	remaining := l.maxRequests - l.count
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// RemainingTime returns how long until the current window resets.
func (l *Limiter) RemainingTime() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.roll()
	remaining := l.windowStart.Add(l.window).Sub(l.now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// roll starts a new window on first use or once the current one expires.
// Must be called with the mutex held.
func (l *Limiter) roll() {
	now := l.now()
	if l.windowStart.IsZero() || !now.Before(l.windowStart.Add(l.window)) {
		l.windowStart = now
		l.count = 0
	}
}

// Registry hands out independent limiters keyed by purpose (e.g.
// "youtube-sync", "ai-processing"). Limiters for distinct keys never
// share state.
type Registry struct {
	window      time.Duration
	maxRequests int

	mu       sync.Mutex
	limiters map[string]*Limiter
}

// NewRegistry creates a registry whose limiters use the given settings.
func NewRegistry(window time.Duration, maxRequests int) *Registry {
	return &Registry{
		window:      window,
		maxRequests: maxRequests,
		limiters:    make(map[string]*Limiter),
	}
}

// Get returns the limiter for a key, creating it on first use.
func (r *Registry) Get(key string) *Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	if limiter, ok := r.limiters[key]; ok {
		return limiter
	}
	limiter := NewLimiter(r.window, r.maxRequests)
	r.limiters[key] = limiter
	return limiter
}
