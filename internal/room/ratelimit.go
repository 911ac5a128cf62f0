package room

import (
	"time"
)

// rateLimiter gates inbound chat per user: a message landing inside the
// cooldown window of the user's last accepted message is rejected without
// updating state. The map is loop-owned and never evicted, matching the
// original town behavior.
type rateLimiter struct {
	window time.Duration
	last   map[string]time.Time
}

func newRateLimiter(window time.Duration) *rateLimiter {
	return &rateLimiter{
		window: window,
		last:   make(map[string]time.Time),
	}
}

// Allow reports whether a message from userID at now may proceed, stamping
// the acceptance time when it does. A rejected message leaves the previous
// stamp untouched.
func (rl *rateLimiter) Allow(userID string, now time.Time) bool {
	if last, ok := rl.last[userID]; ok && now.Sub(last) < rl.window {
		return false
	}
	rl.last[userID] = now
	return true
}
