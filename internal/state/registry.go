package state

import (
	"slices"

	"github.com/conneroisu/lenskit/internal/entity"
	"github.com/conneroisu/lenskit/internal/lens"
)

// dependency is one observable thing: a lens over the model stored at owner.
type dependency struct {
	owner entity.Entity
	key   lens.Key
}

// registry is the observer relation. observers keeps insertion order so
// dirty marking is deterministic; reverse and owned exist for teardown.
type registry struct {
	observers map[dependency][]entity.Entity
	reverse   map[entity.Entity][]dependency
	owned     map[entity.Entity][]lens.Key
}

func newRegistry() *registry {
	return &registry{
		observers: make(map[dependency][]entity.Entity),
		reverse:   make(map[entity.Entity][]dependency),
		owned:     make(map[entity.Entity][]lens.Key),
	}
}

// observe adds node to dep's observer set unless node or one of its
// ancestors is already in it. It reports whether node was added.
func (r *registry) observe(tree *entity.Tree, dep dependency, node entity.Entity) bool {
	set, exists := r.observers[dep]
	for _, o := range set {
		if o == node || tree.IsAncestor(o, node) {
			return false
		}
	}
	if !exists {
		r.owned[dep.owner] = append(r.owned[dep.owner], dep.key)
	}
	r.observers[dep] = append(set, node)
	r.reverse[node] = append(r.reverse[node], dep)
	return true
}

func (r *registry) has(dep dependency) bool {
	_, ok := r.observers[dep]
	return ok
}

func (r *registry) observersOf(dep dependency) []entity.Entity {
	return slices.Clone(r.observers[dep])
}

// dependenciesOf returns what node observes.
func (r *registry) dependenciesOf(node entity.Entity) []dependency {
	return slices.Clone(r.reverse[node])
}

// unobserve removes node from every set it belongs to and returns the
// dependencies left without observers. Those are forgotten.
func (r *registry) unobserve(node entity.Entity) []dependency {
	var emptied []dependency
	for _, dep := range r.reverse[node] {
		set := slices.DeleteFunc(r.observers[dep], func(o entity.Entity) bool { return o == node })
		if len(set) > 0 {
			r.observers[dep] = set
			continue
		}
		delete(r.observers, dep)
		r.owned[dep.owner] = slices.DeleteFunc(r.owned[dep.owner], func(k lens.Key) bool { return k == dep.key })
		if len(r.owned[dep.owner]) == 0 {
			delete(r.owned, dep.owner)
		}
		emptied = append(emptied, dep)
	}
	delete(r.reverse, node)
	return emptied
}

// dropOwner forgets every dependency on models stored at owner.
func (r *registry) dropOwner(owner entity.Entity) {
	for _, key := range r.owned[owner] {
		dep := dependency{owner: owner, key: key}
		for _, o := range r.observers[dep] {
			r.reverse[o] = slices.DeleteFunc(r.reverse[o], func(d dependency) bool { return d == dep })
			if len(r.reverse[o]) == 0 {
				delete(r.reverse, o)
			}
		}
		delete(r.observers, dep)
	}
	delete(r.owned, owner)
}

func (r *registry) len() int {
	return len(r.observers)
}
