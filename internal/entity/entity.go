// Package entity provides the identifiers naming nodes of the UI tree, the
// manager that allocates and recycles them, and the parent/child tree that
// relates them.
//
// An Entity carries no data. Every piece of per-node state (models, views,
// style attributes, observer registrations) lives in side tables keyed by
// Entity and must be released when the entity is destroyed.
package entity

import (
	"iter"
	"strconv"
)

// Entity is an opaque node identifier.
type Entity uint32

const (
	// Root is the first entity created by every context and the root of
	// its tree.
	Root Entity = 0
	// Null never names a live node.
	Null Entity = ^Entity(0)
)

// String renders the entity for logs and snapshots.
func (e Entity) String() string {
	if e == Null {
		return "null"
	}
	return "#" + strconv.FormatUint(uint64(e), 10)
}

// Manager allocates entity ids. Ids grow monotonically; destroyed ids are
// recycled last-in first-out.
type Manager struct {
	next  Entity
	free  []Entity
	alive map[Entity]struct{}
}

// NewManager creates an empty manager. The first Create returns Root.
func NewManager() *Manager {
	return &Manager{alive: make(map[Entity]struct{})}
}

// Create allocates an entity.
func (m *Manager) Create() Entity {
	var e Entity
	if n := len(m.free); n > 0 {
		e = m.free[n-1]
		m.free = m.free[:n-1]
	} else {
		e = m.next
		m.next++
	}
	m.alive[e] = struct{}{}
	return e
}

// Destroy releases e for reuse. Destroying a dead entity is a no-op and
// reports false.
func (m *Manager) Destroy(e Entity) bool {
	if _, ok := m.alive[e]; !ok {
		return false
	}
	delete(m.alive, e)
	m.free = append(m.free, e)
	return true
}

// Alive reports whether e is currently allocated.
func (m *Manager) Alive(e Entity) bool {
	_, ok := m.alive[e]
	return ok
}

// Count returns the number of live entities.
func (m *Manager) Count() int {
	return len(m.alive)
}

// All yields the live entities in no particular order.
func (m *Manager) All() iter.Seq[Entity] {
	return func(yield func(Entity) bool) {
		for e := range m.alive {
			if !yield(e) {
				return
			}
		}
	}
}
