package strategy

import (
	"sync"
	"time"
)

// Cooldown throttles per-market decisions so one listing is not re-decided
// every polling cycle. Purely in-memory; reset each run.
type Cooldown struct {
	mu   sync.Mutex
	d    time.Duration
	last map[string]time.Time
}

// NewCooldown builds a cooldown table with the given minimum decision gap.
func NewCooldown(d time.Duration) *Cooldown {
	return &Cooldown{d: d, last: make(map[string]time.Time)}
}

// CanDecide reports whether enough time has passed since the last recorded
// decision for the ticker. A ticker with no prior decision is always eligible.
func (c *Cooldown) CanDecide(ticker string, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	last, ok := c.last[ticker]
	if !ok {
		return true
	}
	return now.Sub(last) >= c.d
}

// Record stamps the decision time for a ticker.
func (c *Cooldown) Record(ticker string, now time.Time) {
	c.mu.Lock()
	c.last[ticker] = now
	c.mu.Unlock()
}
