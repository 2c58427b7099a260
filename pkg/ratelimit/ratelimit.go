// Package ratelimit provides a fixed-window request limiter for upstream
// transcription calls.
//
// The limiter keeps an ordered list of request timestamps and lazily purges
// entries older than the window on every check. It is a single-process,
// best-effort limiter: counters are not shared across instances and do not
// survive restarts. Methods never return errors, only boolean and duration
// signals.
package ratelimit

import (
	"sync"
	"time"
)

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// SystemClock is the default Clock backed by time.Now.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time { return time.Now() }

// Limiter is a fixed-window counter bounding requests per trailing window.
// Construct once per process and pass by reference to request handlers.
type Limiter struct {
	mu         sync.Mutex
	timestamps []time.Time
	window     time.Duration
	max        int
	clock      Clock
}

// New creates a limiter admitting at most max requests per window.
func New(max int, window time.Duration) *Limiter {
	return NewWithClock(max, window, SystemClock{})
}

// NewWithClock creates a limiter with a substitutable clock.
func NewWithClock(max int, window time.Duration, clock Clock) *Limiter {
	return &Limiter{
		timestamps: make([]time.Time, 0, max),
		window:     window,
		max:        max,
		clock:      clock,
	}
}

// Allow reports whether another request may be made right now.
// It does not record the request; call Record once the request is sent.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.purge()
	return len(l.timestamps) < l.max
}

// Record registers a request at the current time.
// The window can transiently exceed max when callers race Allow and Record;
// admission is the condition, not a hard invariant.
func (l *Limiter) Record() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.timestamps = append(l.timestamps, l.clock.Now())
}

// WaitTime returns how long until the oldest in-window request expires.
// Returns 0 when the window is empty. This approximates the exact reset
// time since the window is recomputed lazily.
func (l *Limiter) WaitTime() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.purge()
	if len(l.timestamps) == 0 {
		return 0
	}
	wait := l.window - l.clock.Now().Sub(l.timestamps[0])
	if wait < 0 {
		return 0
	}
	return wait
}

// Remaining returns how many requests may still be made in the current window.
func (l *Limiter) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.purge()
	remaining := l.max - len(l.timestamps)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Max returns the configured per-window request cap.
func (l *Limiter) Max() int { return l.max }

// Reset discards all recorded requests.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.timestamps = l.timestamps[:0]
}

// purge drops timestamps older than now-window. Caller must hold mu.
func (l *Limiter) purge() {
	cutoff := l.clock.Now().Add(-l.window)
	i := 0
	for i < len(l.timestamps) && !l.timestamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		l.timestamps = append(l.timestamps[:0], l.timestamps[i:]...)
	}
}
