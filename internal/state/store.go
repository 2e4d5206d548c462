package state

import (
	"reflect"
	"slices"

	"github.com/conneroisu/lenskit/internal/entity"
	"github.com/conneroisu/lenskit/internal/lens"
)

// modelStore is the per-node table of attached models and of the witnesses
// watching them. Models are held as *M keyed by M; order is attach order,
// which is also dispatch order.
type modelStore struct {
	models map[reflect.Type]any
	order  []reflect.Type

	witnesses    map[lens.Key]witness
	witnessOrder []lens.Key
}

func newModelStore() *modelStore {
	return &modelStore{
		models:    make(map[reflect.Type]any),
		witnesses: make(map[lens.Key]witness),
	}
}

func (s *modelStore) addWitness(key lens.Key, w witness) {
	if _, ok := s.witnesses[key]; !ok {
		s.witnessOrder = append(s.witnessOrder, key)
	}
	s.witnesses[key] = w
}

func (s *modelStore) removeWitness(key lens.Key) {
	if _, ok := s.witnesses[key]; !ok {
		return
	}
	delete(s.witnesses, key)
	s.witnessOrder = slices.DeleteFunc(s.witnessOrder, func(k lens.Key) bool { return k == key })
}

func (cx *Context) storeFor(node entity.Entity) *modelStore {
	st, ok := cx.stores[node]
	if !ok {
		st = newModelStore()
		cx.stores[node] = st
	}
	return st
}

func (cx *Context) dropWitnessIfUnobserved(dep dependency) {
	if cx.registry.has(dep) {
		return
	}
	if st, ok := cx.stores[dep.owner]; ok {
		st.removeWitness(dep.key)
	}
}

// detect polls every witness at node reading a model of type mt and marks
// the observers of changed ones dirty.
func (cx *Context) detect(node entity.Entity, mt reflect.Type) error {
	st, ok := cx.stores[node]
	if !ok {
		return nil
	}
	model, ok := st.models[mt]
	if !ok {
		return nil
	}

	for _, key := range slices.Clone(st.witnessOrder) {
		w := st.witnesses[key]
		if w == nil || w.source() != mt {
			continue
		}
		changed, err := w.update(model)
		if err != nil {
			return withEntity(err, node)
		}
		if !changed {
			continue
		}
		observers := cx.registry.observersOf(dependency{owner: node, key: key})
		cx.logger.Debug(cx.logCtx, "observed value changed",
			"owner", node, "lens", key.String(), "observers", len(observers))
		for _, o := range observers {
			cx.markDirty(o)
		}
	}
	return nil
}

// Models returns the type names of the models attached at node in attach
// order.
func (cx *Context) Models(node entity.Entity) []string {
	st, ok := cx.stores[node]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(st.order))
	for _, mt := range st.order {
		names = append(names, mt.String())
	}
	return names
}

// Observed describes one witness for inspection.
type Observed struct {
	Owner     entity.Entity
	Lens      string
	Value     any
	Present   bool
	Observers []entity.Entity
}

// Observations lists the witnesses held at node.
func (cx *Context) Observations(node entity.Entity) []Observed {
	st, ok := cx.stores[node]
	if !ok {
		return nil
	}
	out := make([]Observed, 0, len(st.witnessOrder))
	for _, key := range st.witnessOrder {
		v, present := st.witnesses[key].value()
		out = append(out, Observed{
			Owner:     node,
			Lens:      key.String(),
			Value:     v,
			Present:   present,
			Observers: cx.registry.observersOf(dependency{owner: node, key: key}),
		})
	}
	return out
}

// Observes returns the lens keys node is registered for.
func (cx *Context) Observes(node entity.Entity) []string {
	deps := cx.registry.dependenciesOf(node)
	out := make([]string, 0, len(deps))
	for _, d := range deps {
		out = append(out, d.key.String())
	}
	return out
}
