package monitoring

import (
	"sort"
	"sync"
	"sync/atomic"
)

// Counters is a set of named monotonic counters. Increments are lock-free
// once a counter exists, so the control loop can count from its hot path.
type Counters struct {
	mu sync.RWMutex
	m  map[string]*atomic.Uint64
}

// NewCounters returns an empty counter set.
func NewCounters() *Counters {
	return &Counters{m: make(map[string]*atomic.Uint64)}
}

// Inc adds one to the named counter.
func (c *Counters) Inc(name string) {
	c.Add(name, 1)
}

// Add adds n to the named counter, creating it on first use.
func (c *Counters) Add(name string, n uint64) {
	c.mu.RLock()
	ctr, ok := c.m[name]
	c.mu.RUnlock()
	if !ok {
		c.mu.Lock()
		if ctr, ok = c.m[name]; !ok {
			ctr = new(atomic.Uint64)
			c.m[name] = ctr
		}
		c.mu.Unlock()
	}
	ctr.Add(n)
}

// Get returns the named counter, zero if it was never incremented.
func (c *Counters) Get(name string) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if ctr, ok := c.m[name]; ok {
		return ctr.Load()
	}
	return 0
}

// Snapshot copies every counter.
func (c *Counters) Snapshot() map[string]uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]uint64, len(c.m))
	for name, ctr := range c.m {
		out[name] = ctr.Load()
	}
	return out
}

// Names returns the counter names in sorted order.
func (c *Counters) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.m))
	for name := range c.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
