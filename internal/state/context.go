// Package state is the reactive core: models attached to tree nodes, the
// registry of which nodes observe which lensed fields, bindings that rebuild
// their subtree when an observed value changes, and event dispatch.
//
// A Context is single-threaded. Hosts own it on one goroutine and feed it
// events; nothing in this package blocks.
package state

import (
	"context"
	"slices"

	"github.com/conneroisu/lenskit/internal/entity"
	lkerrors "github.com/conneroisu/lenskit/internal/errors"
	"github.com/conneroisu/lenskit/internal/locale"
	"github.com/conneroisu/lenskit/internal/logging"
	"github.com/conneroisu/lenskit/internal/style"
)

// Localizer translates message keys for views.
type Localizer interface {
	Localize(key string, args ...any) string
}

// Context owns the tree and every side table keyed by entity.
type Context struct {
	entities *entity.Manager
	tree     *entity.Tree
	styles   *style.Store
	theme    *style.Theme

	stores   map[entity.Entity]*modelStore
	registry *registry
	bindings map[entity.Entity]*binding
	views    map[entity.Entity]View
	actions  map[entity.Entity]func(*Context)

	current entity.Entity
	count   int

	queue    []*Event
	dirty    []entity.Entity
	dirtySet map[entity.Entity]struct{}
	failures []error

	logger      logging.Logger
	logCtx      context.Context
	localizer   Localizer
	diagnostics *lkerrors.ErrorCollector
}

// Option configures a Context.
type Option func(*Context)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l logging.Logger) Option {
	return func(cx *Context) {
		if l != nil {
			cx.logger = l.WithComponent("state")
		}
	}
}

// WithLocalizer sets the translator used by Localize.
func WithLocalizer(l Localizer) Option {
	return func(cx *Context) {
		if l != nil {
			cx.localizer = l
		}
	}
}

// New creates a context whose tree holds only entity.Root. A nil theme
// selects style.DefaultTheme.
func New(theme *style.Theme, opts ...Option) *Context {
	if theme == nil {
		theme = style.DefaultTheme()
	}
	cx := &Context{
		entities:    entity.NewManager(),
		tree:        entity.NewTree(),
		styles:      style.NewStore(),
		theme:       theme,
		stores:      make(map[entity.Entity]*modelStore),
		registry:    newRegistry(),
		bindings:    make(map[entity.Entity]*binding),
		views:       make(map[entity.Entity]View),
		actions:     make(map[entity.Entity]func(*Context)),
		dirtySet:    make(map[entity.Entity]struct{}),
		logger:      logging.NewNop(),
		logCtx:      context.Background(),
		localizer:   locale.Default(),
		diagnostics: lkerrors.NewErrorCollector(),
	}
	for _, opt := range opts {
		opt(cx)
	}

	root := cx.entities.Create()
	cx.styles.Add(root)
	cx.styles.SetElement(root, "window")
	cx.current = root
	return cx
}

// Tree exposes the parent/child relation. Callers must not modify it.
func (cx *Context) Tree() *entity.Tree { return cx.tree }

// Styles exposes the attribute side table.
func (cx *Context) Styles() *style.Store { return cx.styles }

// Theme returns the active theme.
func (cx *Context) Theme() *style.Theme { return cx.theme }

// SetTheme swaps the theme. Attributes are untouched; only resolution
// changes.
func (cx *Context) SetTheme(t *style.Theme) {
	if t != nil {
		cx.theme = t
	}
}

// Current is the node new children and models attach to.
func (cx *Context) Current() entity.Entity { return cx.current }

// Logger returns the context logger.
func (cx *Context) Logger() logging.Logger { return cx.logger }

// Diagnostics returns the recorded non-fatal conditions.
func (cx *Context) Diagnostics() *lkerrors.ErrorCollector { return cx.diagnostics }

// Localize translates key through the configured Localizer.
func (cx *Context) Localize(key string, args ...any) string {
	return cx.localizer.Localize(key, args...)
}

// ResolvedStyle returns the theme properties applying to e.
func (cx *Context) ResolvedStyle(e entity.Entity) map[string]string {
	attrs, ok := cx.styles.Get(e)
	if !ok {
		return nil
	}
	return cx.theme.Resolve(attrs.Element, attrs.Classes)
}

// Element returns the element name of the view at e.
func (cx *Context) Element(e entity.Entity) string {
	attrs, _ := cx.styles.Get(e)
	return attrs.Element
}

// IsBinding reports whether e is a binding node.
func (cx *Context) IsBinding(e entity.Entity) bool {
	_, ok := cx.bindings[e]
	return ok
}

// Inert reports whether e is a binding that found no model to observe.
func (cx *Context) Inert(e entity.Entity) bool {
	b, ok := cx.bindings[e]
	return ok && b.inert
}

// Pending returns the number of queued events.
func (cx *Context) Pending() int { return len(cx.queue) }

// Mount runs content at the root. Mounting again reuses children by
// position, so a second Mount with the same content is a no-op on ids.
func (cx *Context) Mount(content func(*Context)) error {
	savedCur, savedCount := cx.current, cx.count
	cx.current, cx.count = entity.Root, 0
	defer func() {
		cx.current, cx.count = savedCur, savedCount
	}()

	content(cx)
	cx.prune(entity.Root, cx.count)
	cx.rebuildDirty()
	return cx.takeFailures()
}

// nextChild returns the child of the current node at the running position,
// creating it when the position is new.
func (cx *Context) nextChild() (entity.Entity, bool) {
	if e, ok := cx.tree.ChildAt(cx.current, cx.count); ok {
		cx.count++
		return e, true
	}
	e := cx.entities.Create()
	if err := cx.tree.Add(e, cx.current); err != nil {
		cx.logger.Error(cx.logCtx, err, "failed to attach child", "parent", cx.current)
	}
	cx.styles.Add(e)
	cx.count++
	return e, false
}

// prune destroys the children of parent past position keep.
func (cx *Context) prune(parent entity.Entity, keep int) {
	kids := cx.tree.Children(parent)
	if keep >= len(kids) {
		return
	}
	for _, c := range kids[keep:] {
		cx.Destroy(c)
	}
}

// Destroy removes e and its subtree and releases every side-table slot they
// hold. Root cannot be destroyed.
func (cx *Context) Destroy(e entity.Entity) {
	removed := cx.tree.Remove(e)
	for _, r := range removed {
		cx.release(r)
	}
	if len(removed) > 0 {
		cx.logger.Debug(cx.logCtx, "subtree destroyed", "entity", e, "count", len(removed))
	}
}

func (cx *Context) release(e entity.Entity) {
	for _, dep := range cx.registry.unobserve(e) {
		cx.dropWitnessIfUnobserved(dep)
	}
	cx.registry.dropOwner(e)
	delete(cx.stores, e)
	delete(cx.bindings, e)
	delete(cx.views, e)
	delete(cx.actions, e)
	if _, ok := cx.dirtySet[e]; ok {
		delete(cx.dirtySet, e)
		cx.dirty = slices.DeleteFunc(cx.dirty, func(d entity.Entity) bool { return d == e })
	}
	cx.styles.Remove(e)
	cx.entities.Destroy(e)
}

func (cx *Context) markDirty(e entity.Entity) {
	b, ok := cx.bindings[e]
	if !ok || b.inert {
		return
	}
	if _, ok := cx.dirtySet[e]; ok {
		return
	}
	cx.dirtySet[e] = struct{}{}
	cx.dirty = append(cx.dirty, e)
}

func (cx *Context) fail(err error) {
	cx.failures = append(cx.failures, err)
}

func (cx *Context) takeFailures() error {
	if len(cx.failures) == 0 {
		return nil
	}
	err := lkerrors.CombineErrors(cx.failures...)
	cx.failures = nil
	return err
}
