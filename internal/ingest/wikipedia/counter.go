package wikipedia

import "sync/atomic"

// atomicCounter is a concurrency-safe page-indexed counter shared across
// the page worker goroutines.
type atomicCounter struct {
	v atomic.Int64
}

func (c *atomicCounter) increment() { c.v.Add(1) }

func (c *atomicCounter) value() int { return int(c.v.Load()) }
