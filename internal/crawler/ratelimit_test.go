package crawler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterAdmitsBurstUpToLimit(t *testing.T) {
	limiter := newRateLimiter(5, time.Second)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 5; i++ {
		require.NoError(t, limiter.Execute(ctx, func() error { return nil }))
	}
	assert.Less(t, time.Since(start), 200*time.Millisecond,
		"first %d calls must not block", 5)
}

// 20 calls against a limit of 5 per window need at least 3 full windows,
// and no trailing window may contain more than 5 invocations.
func TestRateLimiterSlidingWindowBound(t *testing.T) {
	const (
		limit  = 5
		calls  = 20
		window = 200 * time.Millisecond
	)
	limiter := newRateLimiter(limit, window)
	ctx := context.Background()

	times := make([]time.Time, 0, calls)
	start := time.Now()
	for i := 0; i < calls; i++ {
		require.NoError(t, limiter.Execute(ctx, func() error {
			times = append(times, time.Now())
			return nil
		}))
	}
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 3*window,
		"20 calls at 5 per window need at least 3 windows")

	// Sliding check: call i and call i-limit must be a full window apart.
	// Small tolerance for timer jitter on the earlier call.
	const tolerance = 20 * time.Millisecond
	for i := limit; i < len(times); i++ {
		gap := times[i].Sub(times[i-limit])
		assert.GreaterOrEqual(t, gap, window-tolerance,
			"calls %d and %d are %v apart", i-limit, i, gap)
	}
}

func TestRateLimiterConcurrentCallers(t *testing.T) {
	const (
		limit   = 5
		window  = 100 * time.Millisecond
		callers = 4
		each    = 5
	)
	limiter := newRateLimiter(limit, window)

	start := time.Now()
	var wg sync.WaitGroup
	for c := 0; c < callers; c++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < each; i++ {
				limiter.Execute(context.Background(), func() error { return nil })
			}
		}()
	}
	wg.Wait()

	// 20 calls at 5 per window: the last admissible slot is 3 windows in
	assert.GreaterOrEqual(t, time.Since(start), 3*window)
}

func TestRateLimiterPropagatesCallError(t *testing.T) {
	limiter := NewRateLimiter(5)
	want := errors.New("remote unavailable")

	err := limiter.Execute(context.Background(), func() error { return want })
	assert.ErrorIs(t, err, want)
}

func TestRateLimiterContextCancelled(t *testing.T) {
	limiter := newRateLimiter(1, time.Hour)
	require.NoError(t, limiter.Execute(context.Background(), func() error { return nil }))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	called := false
	err := limiter.Execute(ctx, func() error { called = true; return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, called, "fn must not run after the wait is abandoned")
}

func TestRateLimiterMinimumLimit(t *testing.T) {
	limiter := NewRateLimiter(0)
	assert.Len(t, limiter.stamps, 1)
}
