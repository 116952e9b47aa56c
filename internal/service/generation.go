package service

import (
	"errors"
	"sync/atomic"
)

// ErrStale is returned by a load that was superseded by a newer request
// before it settled. Its result has been discarded.
var ErrStale = errors.New("superseded by a newer request")

// Generation hands out monotonically increasing request ids. A load captures
// an id at dispatch and applies its result only if the id is still current.
type Generation struct {
	n atomic.Uint64
}

// Next starts a new request and returns its id.
func (g *Generation) Next() uint64 {
	return g.n.Add(1)
}

// Current reports whether id belongs to the most recent request.
func (g *Generation) Current(id uint64) bool {
	return g.n.Load() == id
}

// Invalidate supersedes every outstanding request.
func (g *Generation) Invalidate() {
	g.n.Add(1)
}
