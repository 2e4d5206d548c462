package state

import (
	"reflect"
	"slices"

	"github.com/conneroisu/lenskit/internal/entity"
	lkerrors "github.com/conneroisu/lenskit/internal/errors"
	"github.com/conneroisu/lenskit/internal/lens"
	"github.com/conneroisu/lenskit/internal/logging"
)

// binding is a node whose children are produced by a builder that is re-run
// whenever the observed lens value changes. The builder is taken out of the
// binding for the duration of a build and put back afterwards; a nil builder
// means a build is in progress.
type binding struct {
	node    entity.Entity
	key     lens.Key
	builder func(*Context)
	inert   bool
	builds  int
}

// NewBinding declares a binding on l at the current position and builds it
// once. The builder's children are attached under the binding node.
//
// When no model of type S exists on the node's lineage the binding is still
// built once but never rebuilt, and an ErrMissingModel error is returned
// after a warning is logged and a diagnostic recorded.
func NewBinding[S, T any](cx *Context, l lens.Lens[S, T], builder func(*Context, Field[S, T])) (Handle, error) {
	node, reused := cx.nextChild()
	if reused {
		delete(cx.views, node)
		delete(cx.actions, node)
	}
	cx.styles.Add(node)
	cx.styles.SetElement(node, "binding")

	key := lens.KeyOf(l)
	b, existed := cx.bindings[node]
	if !existed {
		b = &binding{node: node}
		cx.bindings[node] = b
	}

	var regErr error
	if !existed || b.key != key || b.inert {
		if existed {
			for _, dep := range cx.registry.unobserve(node) {
				cx.dropWitnessIfUnobserved(dep)
			}
		}
		b.key = key
		regErr = register(cx, node, l, key)
		b.inert = regErr != nil
		if regErr != nil {
			cx.logger.Warn(cx.logCtx, regErr, "binding cannot observe its lens",
				"lens", key.String(), "entity", node)
			cx.diagnostics.AddError(regErr)
		} else {
			cx.logger.Debug(cx.logCtx, "binding declared", "lens", key.String(), "entity", node)
		}
	}

	field := Field[S, T]{lens: l, node: node}
	b.builder = func(cx *Context) { builder(cx, field) }

	buildErr := cx.rebuild(b)
	return Handle{cx: cx, Entity: node}, lkerrors.CombineErrors(regErr, buildErr)
}

// register makes node an observer of l over the nearest model of type S on
// its lineage, creating the witness on first use.
func register[S, T any](cx *Context, node entity.Entity, l lens.Lens[S, T], key lens.Key) error {
	mt := reflect.TypeFor[S]()
	for owner := range cx.tree.Lineage(node) {
		st, ok := cx.stores[owner]
		if !ok {
			continue
		}
		raw, ok := st.models[mt]
		if !ok {
			continue
		}
		model, ok := raw.(*S)
		if !ok {
			return lkerrors.NewDowncastError(reflect.TypeFor[*S]().String(),
				reflect.TypeOf(raw).String(), uint32(owner))
		}

		if _, exists := st.witnesses[key]; !exists {
			w, err := newWitness(l, model)
			if err != nil {
				return withEntity(err, node)
			}
			st.addWitness(key, w)
		}
		cx.registry.observe(cx.tree, dependency{owner: owner, key: key}, node)
		return nil
	}
	return lkerrors.NewMissingModelError(reflect.TypeFor[*S]().String(), key.String(), uint32(node))
}

// rebuild re-runs b's builder with the position reset to the start of b's
// children, then prunes children the builder did not produce. A panicking
// builder is recovered into an ErrBuilderPanic error; the builder and the
// position are restored either way.
func (cx *Context) rebuild(b *binding) (err error) {
	builder := b.builder
	if builder == nil {
		return nil
	}
	b.builder = nil

	savedCur, savedCount := cx.current, cx.count
	cx.current, cx.count = b.node, 0
	op := logging.StartOperation(cx.logger, "rebuild")

	defer func() {
		if r := recover(); r != nil {
			err = lkerrors.NewBuilderPanicError(r, uint32(b.node))
			cx.logger.Error(cx.logCtx, err, "binding builder panicked", "entity", b.node)
			cx.diagnostics.AddError(err)
			cx.fail(err)
		} else {
			cx.prune(b.node, cx.count)
			op.End(cx.logCtx, "entity", b.node, "children", cx.count)
		}
		b.builds++
		b.builder = builder
		cx.current, cx.count = savedCur, savedCount
	}()

	builder(cx)
	return nil
}

// Rebuild forces the binding at node to rebuild.
func (cx *Context) Rebuild(node entity.Entity) error {
	b, ok := cx.bindings[node]
	if !ok {
		return lkerrors.NewEntityNotFoundError(uint32(node)).WithContext("reason", "not a binding")
	}
	_ = cx.rebuild(b)
	return cx.takeFailures()
}

// BuildCount returns how many times the binding at node has run its builder.
func (cx *Context) BuildCount(node entity.Entity) int {
	if b, ok := cx.bindings[node]; ok {
		return b.builds
	}
	return 0
}

// rebuildDirty rebuilds the pending bindings outermost first. A binding below
// one rebuilt in the same pass is skipped; the outer rebuild re-declared it.
// Builder panics are left in the context's failures.
func (cx *Context) rebuildDirty() {
	if len(cx.dirty) == 0 {
		return
	}
	pending := cx.dirty
	cx.dirty = nil
	clear(cx.dirtySet)

	depth := make(map[entity.Entity]int, len(pending))
	for _, e := range pending {
		depth[e] = cx.tree.Depth(e)
	}
	slices.SortStableFunc(pending, func(a, b entity.Entity) int { return depth[a] - depth[b] })

	var rebuilt []entity.Entity
	for _, node := range pending {
		b, ok := cx.bindings[node]
		if !ok || !cx.tree.Contains(node) {
			continue
		}
		if slices.ContainsFunc(rebuilt, func(r entity.Entity) bool { return cx.tree.IsAncestor(r, node) }) {
			continue
		}
		_ = cx.rebuild(b)
		rebuilt = append(rebuilt, node)
	}
}
