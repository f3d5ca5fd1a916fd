package router

import (
	"sync"
	"time"
)

// cooldownTracker records when each rule last fired so that rules with a
// cooldown window fire at most once per window. State is per-process;
// nothing persists across invocations.
type cooldownTracker struct {
	now  func() time.Time
	mu   sync.Mutex
	last map[string]time.Time
}

func newCooldownTracker(now func() time.Time) *cooldownTracker {
	if now == nil {
		now = time.Now
	}
	return &cooldownTracker{now: now, last: make(map[string]time.Time)}
}

// allow reports whether the named rule may fire and, if so, records the
// fire time. A non-positive window disables cooldown for the rule.
func (c *cooldownTracker) allow(name string, window time.Duration) bool {
	if window <= 0 {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if fired, ok := c.last[name]; ok && now.Sub(fired) < window {
		return false
	}
	c.last[name] = now
	return true
}
