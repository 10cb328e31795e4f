package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter bounds how often an outbound request may be made
type Limiter interface {
	// Allow reports whether a request may proceed now and records it if so
	Allow() bool
	// Wait blocks until a request is allowed or ctx is done
	Wait(ctx context.Context) error
	// Reset clears the limiter state
	Reset()
}

// SlidingWindow allows at most maxRequests within any windowSize interval
type SlidingWindow struct {
	windowSize  time.Duration
	maxRequests int
	requests    []time.Time
	now         func() time.Time
	mu          sync.Mutex
}

// NewSlidingWindow creates a new sliding window rate limiter
func NewSlidingWindow(maxRequests int, windowSize time.Duration) *SlidingWindow {
	if maxRequests < 1 {
		maxRequests = 1
	}
	return &SlidingWindow{
		windowSize:  windowSize,
		maxRequests: maxRequests,
		requests:    make([]time.Time, 0, maxRequests),
		now:         time.Now,
	}
}

// PerMinute is shorthand for a one-minute sliding window.
func PerMinute(n int) *SlidingWindow {
	return NewSlidingWindow(n, time.Minute)
}

// Allow checks if a request can proceed
func (sw *SlidingWindow) Allow() bool {
	_, ok := sw.reserve()
	return ok
}

// reserve records a request if one is allowed; otherwise it returns how long
// until the oldest request leaves the window.
func (sw *SlidingWindow) reserve() (time.Duration, bool) {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := sw.now()
	sw.cleanOldRequests(now)

	if len(sw.requests) < sw.maxRequests {
		sw.requests = append(sw.requests, now)
		return 0, true
	}
	return sw.windowSize - now.Sub(sw.requests[0]), false
}

// Wait blocks until a request is allowed
func (sw *SlidingWindow) Wait(ctx context.Context) error {
	for {
		wait, ok := sw.reserve()
		if ok {
			return nil
		}
		if wait <= 0 {
			wait = 10 * time.Millisecond
		}
		if err := Sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// Reset clears all recorded requests
func (sw *SlidingWindow) Reset() {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	sw.requests = sw.requests[:0]
}

// cleanOldRequests removes requests outside the sliding window
func (sw *SlidingWindow) cleanOldRequests(now time.Time) {
	cutoff := now.Add(-sw.windowSize)

	i := 0
	for i < len(sw.requests) && !sw.requests[i].After(cutoff) {
		i++
	}

	if i > 0 {
		copy(sw.requests, sw.requests[i:])
		sw.requests = sw.requests[:len(sw.requests)-i]
	}
}

// Unlimited never blocks.
type Unlimited struct{}

func (Unlimited) Allow() bool                    { return true }
func (Unlimited) Wait(ctx context.Context) error { return ctx.Err() }
func (Unlimited) Reset()                         {}

// Sleep waits for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
