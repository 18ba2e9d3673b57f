package session

import "sync/atomic"

// ID identifies a connection, channel, query, or message. A single process-wide
// allocator hands them out, so an ID is never reused across container kinds.
type ID int64

// None is the sentinel for "no container", used by the empty view.
const None ID = -1

// Allocator issues strictly increasing IDs. Safe for concurrent use.
type Allocator struct {
	last atomic.Int64
}

// NewAllocator returns an allocator whose first Next call yields 0.
func NewAllocator() *Allocator {
	a := &Allocator{}
	a.last.Store(int64(None))
	return a
}

// Next returns a fresh ID strictly greater than every previously issued one.
func (a *Allocator) Next() ID {
	return ID(a.last.Add(1))
}
