package guard

import (
	"errors"
	"sync"
)

// ErrInFlight is returned when a write for the same entity id is
// already pending. Callers disable the control instead of queueing.
var ErrInFlight = errors.New("a write for this entity is already in flight")

// InFlight tracks which entity ids have a pending write. At most one
// write per id may be in flight; different ids proceed independently.
// Scoped per screen instance, not process-wide.
type InFlight struct {
	mu  sync.Mutex
	ids map[int64]struct{}
}

// New returns an empty in-flight set.
func New() *InFlight {
	return &InFlight{ids: make(map[int64]struct{})}
}

// Do admits id, runs fn, and releases id on every exit path, panics
// included. If id is already admitted it refuses with ErrInFlight
// without calling fn.
func (g *InFlight) Do(id int64, fn func() error) error {
	if !g.admit(id) {
		return ErrInFlight
	}
	defer g.release(id)
	return fn()
}

// Busy reports whether a write for id is currently pending.
func (g *InFlight) Busy(id int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.ids[id]
	return ok
}

// Active returns a snapshot of the pending entity ids.
func (g *InFlight) Active() []int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]int64, 0, len(g.ids))
	for id := range g.ids {
		out = append(out, id)
	}
	return out
}

func (g *InFlight) admit(id int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.ids[id]; ok {
		return false
	}
	g.ids[id] = struct{}{}
	return true
}

func (g *InFlight) release(id int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.ids, id)
}
