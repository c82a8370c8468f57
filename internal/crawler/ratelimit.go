package crawler

import (
	"context"
	"sync"
	"time"
)

// RateLimiter admits at most limit invocations within any trailing window.
// It keeps a fixed-capacity ring of the timestamps of the last limit
// admitted calls: when the ring is full, a new call waits until one full
// window has elapsed since the oldest recorded call. This is a sliding
// window, not a fixed bucket, so bursts up to limit are admitted but no
// trailing window ever contains more.
type RateLimiter struct {
	mu     sync.Mutex
	window time.Duration
	stamps []time.Time
	head   int
	count  int
}

// NewRateLimiter returns a limiter admitting at most perSecond calls in
// any trailing one-second window. A shared instance serializes all outbound
// traffic for one remote API key.
func NewRateLimiter(perSecond int) *RateLimiter {
	return newRateLimiter(perSecond, time.Second)
}

func newRateLimiter(limit int, window time.Duration) *RateLimiter {
	if limit < 1 {
		limit = 1
	}
	return &RateLimiter{
		window: window,
		stamps: make([]time.Time, limit),
	}
}

// Execute blocks until a window slot is available, then runs fn and returns
// its error. Safe for any number of concurrent callers sharing one
// instance; slot reservation is serialized, the calls themselves are not.
// The wait is abandoned if ctx is cancelled first.
func (l *RateLimiter) Execute(ctx context.Context, fn func() error) error {
	slot := l.reserve(time.Now())
	if wait := time.Until(slot); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return fn()
}

// reserve claims the earliest admissible invocation time at or after now,
// records it in the ring evicting the oldest entry, and returns it.
func (l *RateLimiter) reserve(now time.Time) time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()

	slot := now
	if l.count == len(l.stamps) {
		oldest := l.stamps[l.head]
		if next := oldest.Add(l.window); next.After(slot) {
			slot = next
		}
		l.head = (l.head + 1) % len(l.stamps)
		l.count--
	}
	tail := (l.head + l.count) % len(l.stamps)
	l.stamps[tail] = slot
	l.count++
	return slot
}
