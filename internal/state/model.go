package state

import (
	"errors"
	"reflect"

	"github.com/conneroisu/lenskit/internal/entity"
	lkerrors "github.com/conneroisu/lenskit/internal/errors"
)

// EventHandler is implemented by models that react to events. The handler
// runs with the context's current node set to the node holding the model.
type EventHandler interface {
	Event(cx *Context, ev *Event)
}

// Updater is implemented by models that need to run once right after they
// are attached, for example to emit an initial event. Changes the hook makes
// to the model are detected when it returns.
type Updater interface {
	Update(cx *Context)
}

// Build attaches m at the current node.
func Build[M any](cx *Context, m *M) error {
	return Attach(cx, cx.current, m)
}

// Attach attaches m at node. A node holds at most one model per type: a
// second attachment of the same type is rejected with ErrDuplicateModel and
// the first instance stays in place, so model state survives rebuilds that
// re-run the code attaching it.
func Attach[M any](cx *Context, node entity.Entity, m *M) error {
	mt := reflect.TypeFor[M]()
	if !cx.tree.Contains(node) {
		return lkerrors.NewEntityNotFoundError(uint32(node)).WithContext("model", mt.String())
	}
	if m == nil {
		return lkerrors.NewInternalError(lkerrors.ErrCodeInternalError, "nil model "+mt.String(), nil).
			WithEntity(uint32(node))
	}

	st := cx.storeFor(node)
	if _, exists := st.models[mt]; exists {
		cx.logger.Debug(cx.logCtx, "model already attached, keeping existing instance",
			"model", mt.String(), "entity", node)
		return lkerrors.NewDuplicateModelError(mt.String(), uint32(node))
	}

	st.models[mt] = m
	st.order = append(st.order, mt)
	cx.logger.Debug(cx.logCtx, "model attached", "model", mt.String(), "entity", node)

	if u, ok := any(m).(Updater); ok {
		if node == cx.current {
			// Children the hook declares take the next positions.
			u.Update(cx)
		} else {
			savedCur, savedCount := cx.current, cx.count
			cx.current, cx.count = node, len(cx.tree.Children(node))
			u.Update(cx)
			cx.current, cx.count = savedCur, savedCount
		}
		return cx.detect(node, mt)
	}
	return nil
}

// Lookup returns the model of type M stored at node.
func Lookup[M any](cx *Context, node entity.Entity) (*M, error) {
	mt := reflect.TypeFor[M]()
	st, ok := cx.stores[node]
	if !ok {
		return nil, lkerrors.NewModelNotFoundError(mt.String(), uint32(node))
	}
	raw, ok := st.models[mt]
	if !ok {
		return nil, lkerrors.NewModelNotFoundError(mt.String(), uint32(node))
	}
	m, ok := raw.(*M)
	if !ok {
		return nil, lkerrors.NewDowncastError(reflect.TypeFor[*M]().String(),
			reflect.TypeOf(raw).String(), uint32(node))
	}
	return m, nil
}

// Find returns the nearest model of type M on the lineage of node, starting
// at node itself, together with the node holding it.
func Find[M any](cx *Context, node entity.Entity) (*M, entity.Entity, error) {
	for owner := range cx.tree.Lineage(node) {
		m, err := Lookup[M](cx, owner)
		if err == nil {
			return m, owner, nil
		}
		if !errors.Is(err, lkerrors.ErrModelNotFound) {
			return nil, entity.Null, err
		}
	}
	return nil, entity.Null, lkerrors.NewModelNotFoundError(reflect.TypeFor[M]().String(), uint32(node))
}

// Mutate applies fn to the model of type M at node outside of event
// handling, then runs change detection and rebuilds affected bindings.
func Mutate[M any](cx *Context, node entity.Entity, fn func(*M)) error {
	m, err := Lookup[M](cx, node)
	if err != nil {
		return err
	}
	fn(m)
	if err := cx.detect(node, reflect.TypeFor[M]()); err != nil {
		return err
	}
	cx.rebuildDirty()
	return cx.takeFailures()
}

func withEntity(err error, node entity.Entity) error {
	var re *lkerrors.ReactorError
	if errors.As(err, &re) {
		re.WithEntity(uint32(node))
	}
	return err
}
