// Package ratelimit implements per-key fixed-window admission control.
package ratelimit

import (
	"sync"
	"time"
)

// Decision is the outcome of an admission check.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

type window struct {
	count   int
	resetAt time.Time
}

// Limiter tracks request counts per key within a fixed window. It is
// constructed once at process start and shared by all in-flight requests;
// every update happens under the mutex.
type Limiter struct {
	mu      sync.Mutex
	window  time.Duration
	windows map[string]*window

	now func() time.Time
}

// New creates a limiter with the given window length.
func New(windowLength time.Duration) *Limiter {
	if windowLength <= 0 {
		windowLength = time.Minute
	}
	return &Limiter{
		window:  windowLength,
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// Admit checks and counts one request for key against limit. The caller picks
// the limit per tier; the limiter itself is tier-agnostic. ResetAt is always
// populated so rejected callers can compute a retry delay.
func (l *Limiter) Admit(key string, limit int) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	w, ok := l.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(l.window)}
		l.windows[key] = w
	}

	if w.count >= limit {
		return Decision{Allowed: false, Remaining: 0, ResetAt: w.resetAt}
	}

	w.count++
	return Decision{
		Allowed:   true,
		Remaining: limit - w.count,
		ResetAt:   w.resetAt,
	}
}

// Len returns the number of tracked keys, expired windows included.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}
