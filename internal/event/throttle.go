package event

import (
	"sync"
	"time"
)

// Limiter permits an action at most once per interval. Unlike a blocking
// throttle it never sleeps: disallowed actions are simply skipped, which is
// the behavior scroll-event emission wants (cadence control, not queueing).
type Limiter struct {
	interval time.Duration

	mu   sync.Mutex
	next time.Time
}

// NewLimiter returns a limiter with the given minimum interval. A
// non-positive interval permits everything.
func NewLimiter(interval time.Duration) *Limiter {
	if interval <= 0 {
		return &Limiter{}
	}
	return &Limiter{interval: interval}
}

// Allow reports whether the action may proceed now, and if so starts the next
// interval.
func (l *Limiter) Allow() bool {
	if l == nil || l.interval <= 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	if now.Before(l.next) {
		return false
	}
	l.next = now.Add(l.interval)
	return true
}
