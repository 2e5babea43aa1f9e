package ratelimit

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Defaults for the per-user request window.
const (
	DefaultMaxRequests = 10
	DefaultWindow      = time.Minute

	// maxTrackedUsers bounds limiter memory on busy deployments.
	maxTrackedUsers = 16384
)

type entry struct {
	count   int
	resetAt time.Time
}

// Limiter is an in-memory per-user rate limiter. Instances are independent,
// so tests can construct isolated limiters; entries expire with the window.
type Limiter struct {
	mu          sync.Mutex
	cache       *expirable.LRU[int64, *entry]
	maxRequests int
	window      time.Duration
	now         func() time.Time
}

// New creates a Limiter allowing maxRequests per user per window. Zero
// values fall back to the defaults.
func New(maxRequests int, window time.Duration) *Limiter {
	if maxRequests <= 0 {
		maxRequests = DefaultMaxRequests
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Limiter{
		cache:       expirable.NewLRU[int64, *entry](maxTrackedUsers, nil, window),
		maxRequests: maxRequests,
		window:      window,
		now:         time.Now,
	}
}

// Allow records one request for the user and reports whether it is within
// the limit.
func (l *Limiter) Allow(userID int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.cache.Get(userID)
	if !ok || now.After(e.resetAt) {
		l.cache.Add(userID, &entry{count: 1, resetAt: now.Add(l.window)})
		return true
	}

	e.count++
	return e.count <= l.maxRequests
}

// Remaining returns how many requests the user has left in the current
// window.
func (l *Limiter) Remaining(userID int64) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.cache.Get(userID)
	if !ok || l.now().After(e.resetAt) {
		return l.maxRequests
	}
	if e.count >= l.maxRequests {
		return 0
	}
	return l.maxRequests - e.count
}

// ResetAt returns when the user's window resets, or zero time if the user
// has no active window.
func (l *Limiter) ResetAt(userID int64) time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e, ok := l.cache.Get(userID); ok {
		return e.resetAt
	}
	return time.Time{}
}

// Purge drops all tracked users.
func (l *Limiter) Purge() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache.Purge()
}
