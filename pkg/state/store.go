// Package state persists per-identity state cells across evaluation
// passes and queues mutation requests until the start of the next tick.
package state

import (
	"reflect"
	"sync"

	"github.com/go-recompose/recompose/pkg/compose"
	"github.com/go-recompose/recompose/pkg/errors"
)

// cell is one unit of persistent state, owned by a specific identity
// and slot. Created on first composition, destroyed at eviction.
type cell struct {
	typ   reflect.Type
	value any
}

type pendingUpdate struct {
	id     compose.Identity
	slot   string
	mutate func(any) any
}

// Store holds state cells keyed by (identity, slot). Reads and the
// drain happen on the tick goroutine; update requests may arrive from
// callbacks outside the tick, so the pending queue is guarded.
type Store struct {
	mu       sync.Mutex
	cells    map[compose.Identity]map[string]*cell
	cleanups map[compose.Identity][]func()
	pending  []pendingUpdate

	onInvalidate func()
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		cells:    make(map[compose.Identity]map[string]*cell),
		cleanups: make(map[compose.Identity][]func()),
	}
}

// SetOnInvalidate registers the callback fired when an update request
// is queued. The scheduler bridge uses it to request the next tick.
func (s *Store) SetOnInvalidate(fn func()) {
	s.mu.Lock()
	s.onInvalidate = fn
	s.mu.Unlock()
}

// GetOrInit returns the value of the named slot for id, creating it via
// init on first use. typ is the slot's value type; a slot revisited
// with a different type returns a StateShapeError and leaves the cell
// untouched.
func (s *Store) GetOrInit(id compose.Identity, slot string, typ reflect.Type, init func() any) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slots := s.cells[id]
	if slots == nil {
		slots = make(map[string]*cell)
		s.cells[id] = slots
	}
	if c, ok := slots[slot]; ok {
		if c.typ != typ {
			return nil, &errors.StateShapeError{
				Identity: id.String(),
				Slot:     slot,
				Want:     c.typ.String(),
				Got:      typ.String(),
			}
		}
		return c.value, nil
	}

	c := &cell{typ: typ, value: init()}
	slots[slot] = c
	return c.value, nil
}

// Get returns the current value of a slot without initializing it.
func (s *Store) Get(id compose.Identity, slot string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.cells[id][slot]; ok {
		return c.value, true
	}
	return nil, false
}

// RequestUpdate queues a mutation of the named slot. Mutations are
// never applied in place; Drain applies them in submission order at
// the start of the next tick.
func (s *Store) RequestUpdate(id compose.Identity, slot string, mutate func(any) any) {
	s.mu.Lock()
	s.pending = append(s.pending, pendingUpdate{id: id, slot: slot, mutate: mutate})
	invalidate := s.onInvalidate
	s.mu.Unlock()

	if invalidate != nil {
		invalidate()
	}
}

// Drain applies all queued mutations in submission order and returns
// how many were applied. Updates targeting an evicted or never-created
// cell are dropped.
func (s *Store) Drain() int {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil

	applied := 0
	for _, p := range pending {
		c, ok := s.cells[p.id][p.slot]
		if !ok {
			continue
		}
		c.value = p.mutate(c.value)
		applied++
	}
	s.mu.Unlock()
	return applied
}

// PendingLen returns the number of queued, undrained updates.
func (s *Store) PendingLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// ResetCleanups drops id's registered cleanups without running them.
// The evaluator calls it when a composition of id begins, so cleanups
// registered during the pass replace the previous pass's set instead of
// accumulating; each destructor runs at most once at eviction.
func (s *Store) ResetCleanups(id compose.Identity) {
	s.mu.Lock()
	delete(s.cleanups, id)
	s.mu.Unlock()
}

// AddCleanup registers a destructor run when id is evicted. Cleanups
// run in reverse registration order.
func (s *Store) AddCleanup(id compose.Identity, cleanup func()) {
	if cleanup == nil {
		return
	}
	s.mu.Lock()
	s.cleanups[id] = append(s.cleanups[id], cleanup)
	s.mu.Unlock()
}

// Evict runs id's cleanups and removes all of its cells. A later
// GetOrInit for the same identity begins a fresh lifecycle.
func (s *Store) Evict(id compose.Identity) {
	s.mu.Lock()
	cleanups := s.cleanups[id]
	delete(s.cleanups, id)
	delete(s.cells, id)
	s.mu.Unlock()

	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
}

// Len returns the number of identities currently holding state.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cells)
}
