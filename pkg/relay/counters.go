package relay

import (
	"sync/atomic"
	"time"
)

// Counters tracks process-lifetime totals for the stats endpoint.
type Counters struct {
	start   time.Time
	relays  atomic.Int64
	dropped atomic.Int64
}

func NewCounters() *Counters {
	return &Counters{start: time.Now()}
}

func (c *Counters) AddRelay() { c.relays.Add(1) }

// AddDrop records a mailbox overflow eviction. Drops stay invisible to the
// sender; this counter is how an operator sees them.
func (c *Counters) AddDrop() { c.dropped.Add(1) }

func (c *Counters) Relays() int64  { return c.relays.Load() }
func (c *Counters) Dropped() int64 { return c.dropped.Load() }

// UptimeSeconds reports whole seconds since process start.
func (c *Counters) UptimeSeconds() int64 {
	return int64(time.Since(c.start).Seconds())
}
