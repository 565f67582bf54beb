// Package safety contains the independent gates the pipeline consults
// before replying: the sliding-window rate limiter, the per-chat cooldown
// manager, the quiet-hours clock check, and the trigger detector.
package safety

import (
	"sync"
	"time"
)

// RateLimiter is a fixed-capacity sliding-window limiter over all replies
// the bot sends, regardless of chat. Counters live in memory for the
// process lifetime and are never persisted.
type RateLimiter struct {
	mu         sync.Mutex
	maxReplies int
	window     time.Duration
	timestamps []time.Time
	now        func() time.Time
}

// NewRateLimiter creates a limiter allowing maxReplies per one-hour window.
func NewRateLimiter(maxReplies int) *RateLimiter {
	return &RateLimiter{
		maxReplies: maxReplies,
		window:     time.Hour,
		now:        time.Now,
	}
}

func (r *RateLimiter) prune(now time.Time) {
	cutoff := now.Add(-r.window)
	i := 0
	for i < len(r.timestamps) && !r.timestamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		r.timestamps = append(r.timestamps[:0], r.timestamps[i:]...)
	}
}

// CanReply reports whether another reply fits in the current window. It
// never blocks; callers re-check on every pipeline pass.
func (r *RateLimiter) CanReply() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prune(r.now())
	return len(r.timestamps) < r.maxReplies
}

// RecordReply registers a sent reply at the current time.
func (r *RateLimiter) RecordReply() {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	r.prune(now)
	r.timestamps = append(r.timestamps, now)
}

// Remaining returns how many replies are still allowed in the window.
func (r *RateLimiter) Remaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prune(r.now())
	if n := r.maxReplies - len(r.timestamps); n > 0 {
		return n
	}
	return 0
}
