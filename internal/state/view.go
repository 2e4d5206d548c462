package state

import (
	"github.com/conneroisu/lenskit/internal/entity"
	"github.com/conneroisu/lenskit/internal/style"
)

// View is the per-node behaviour of a built element.
type View interface {
	// Element is the name used for theme selector matching.
	Element() string
}

// ViewHandler is implemented by views that react to events. It runs before
// the models at the same node.
type ViewHandler interface {
	View
	Event(cx *Context, ev *Event)
}

// Build places v at the next position under the current node and runs
// content with v's node as the current node. A node already at that
// position is reused with its id, models and children; its style record is
// reset so attributes reflect this build only. Children content does not
// produce are destroyed.
func (cx *Context) Build(v View, content func(*Context)) Handle {
	node, reused := cx.nextChild()
	if reused {
		if _, ok := cx.bindings[node]; ok {
			for _, dep := range cx.registry.unobserve(node) {
				cx.dropWitnessIfUnobserved(dep)
			}
			delete(cx.bindings, node)
		}
		delete(cx.actions, node)
		cx.styles.Add(node)
	}
	cx.views[node] = v
	cx.styles.SetElement(node, v.Element())

	savedCur, savedCount := cx.current, cx.count
	cx.current, cx.count = node, 0
	if content != nil {
		content(cx)
	}
	cx.prune(node, cx.count)
	cx.current, cx.count = savedCur, savedCount

	return Handle{cx: cx, Entity: node}
}

// ViewAt returns the view stored at e.
func (cx *Context) ViewAt(e entity.Entity) (View, bool) {
	v, ok := cx.views[e]
	return v, ok
}

// Handle is returned by every builder and modifies the built node's
// attributes. Methods return the handle for chaining.
type Handle struct {
	cx     *Context
	Entity entity.Entity
}

// Context returns the context the handle belongs to.
func (h Handle) Context() *Context { return h.cx }

func (h Handle) Width(u style.Units) Handle {
	h.cx.styles.SetWidth(h.Entity, u)
	return h
}

func (h Handle) Height(u style.Units) Handle {
	h.cx.styles.SetHeight(h.Entity, u)
	return h
}

func (h Handle) Display(d Res[style.Display]) Handle {
	h.cx.styles.SetDisplay(h.Entity, d.Resolve(h.cx))
	return h
}

func (h Handle) Visibility(v Res[style.Visibility]) Handle {
	h.cx.styles.SetVisibility(h.Entity, v.Resolve(h.cx))
	return h
}

// Class adds a class when include resolves true.
func (h Handle) Class(name string, include Res[bool]) Handle {
	if include == nil || include.Resolve(h.cx) {
		h.cx.styles.AddClass(h.Entity, name)
	}
	return h
}

func (h Handle) Text(t Res[string]) Handle {
	h.cx.styles.SetText(h.Entity, t.Resolve(h.cx))
	return h
}

// Checked sets the checked pseudo-state and the "checked" class.
func (h Handle) Checked(c Res[bool]) Handle {
	checked := c.Resolve(h.cx)
	h.cx.styles.SetChecked(h.Entity, checked)
	if checked {
		h.cx.styles.AddClass(h.Entity, "checked")
	}
	return h
}

// OnPress runs action when the node is pressed. The Pressed event is
// consumed by the action.
func (h Handle) OnPress(action func(*Context)) Handle {
	h.cx.actions[h.Entity] = action
	return h
}

// Pressable reports whether e has a press action.
func (cx *Context) Pressable(e entity.Entity) bool {
	_, ok := cx.actions[e]
	return ok
}
