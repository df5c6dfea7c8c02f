package core

import "sync/atomic"

// IDGenerator hands out monotonically increasing ids. Ids are never reused.
type IDGenerator struct {
	next atomic.Uint64
}

// Next returns a fresh id. The first id is 0.
func (g *IDGenerator) Next() uint64 {
	return g.next.Add(1) - 1
}

// Peek returns the id the next call to Next will return.
func (g *IDGenerator) Peek() uint64 {
	return g.next.Load()
}
