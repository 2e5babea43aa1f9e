package ratelimit

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultActivityThrottle is how often a user's last-active timestamp is
// worth persisting.
const DefaultActivityThrottle = 30 * time.Second

// ActivityThrottle gates per-user side effects to at most once per interval.
// The router uses one instance to keep plain messages from writing the user
// row to the database on every message, and another to avoid repeating the
// rate-limit warning.
type ActivityThrottle struct {
	mu       sync.Mutex
	cache    *expirable.LRU[int64, time.Time]
	interval time.Duration
	now      func() time.Time
}

// NewActivityThrottle creates a throttle with the given interval; zero means
// DefaultActivityThrottle.
func NewActivityThrottle(interval time.Duration) *ActivityThrottle {
	if interval <= 0 {
		interval = DefaultActivityThrottle
	}
	return &ActivityThrottle{
		// Entries older than twice the interval are useless; let them expire.
		cache:    expirable.NewLRU[int64, time.Time](maxTrackedUsers, nil, 2*interval),
		interval: interval,
		now:      time.Now,
	}
}

// ShouldUpdate reports whether the user's activity should be persisted now
// and, when true, marks the user as updated.
func (a *ActivityThrottle) ShouldUpdate(userID int64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	if last, ok := a.cache.Get(userID); ok && now.Sub(last) < a.interval {
		return false
	}
	a.cache.Add(userID, now)
	return true
}

// Clear forgets a user, forcing the next ShouldUpdate to return true.
func (a *ActivityThrottle) Clear(userID int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cache.Remove(userID)
}

// Size returns the number of tracked users.
func (a *ActivityThrottle) Size() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cache.Len()
}
