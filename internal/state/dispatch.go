package state

import (
	"slices"

	"github.com/conneroisu/lenskit/internal/entity"
)

// ProcessEvents drains the event queue in FIFO order. Each event is
// delivered along its path; at every node the view sees it first and then
// the models in attach order, with change detection after each model. When
// the walk ends the bindings marked dirty are rebuilt before the next event
// is taken, so events emitted by handlers observe the rebuilt tree.
//
// Bindings left dirty by work outside dispatch, such as an attach hook, are
// rebuilt first. A fatal error stops processing and is returned; the
// remaining events stay queued.
func (cx *Context) ProcessEvents() error {
	cx.rebuildDirty()
	if err := cx.takeFailures(); err != nil {
		return err
	}
	for len(cx.queue) > 0 {
		ev := cx.queue[0]
		cx.queue[0] = nil
		cx.queue = cx.queue[1:]

		if err := cx.dispatch(ev); err != nil {
			cx.logger.Error(cx.logCtx, err, "event dispatch failed", "target", ev.Target)
			return err
		}
		cx.rebuildDirty()
		if err := cx.takeFailures(); err != nil {
			return err
		}
	}
	return nil
}

func (cx *Context) path(ev *Event) []entity.Entity {
	if ev.Propagation == PropagateDirect {
		if cx.tree.Contains(ev.Target) {
			return []entity.Entity{ev.Target}
		}
		return nil
	}
	return slices.Collect(cx.tree.Lineage(ev.Target))
}

func (cx *Context) dispatch(ev *Event) error {
	savedCur, savedCount := cx.current, cx.count
	defer func() {
		cx.current, cx.count = savedCur, savedCount
	}()

	for _, node := range cx.path(ev) {
		if !cx.tree.Contains(node) {
			continue
		}
		cx.current, cx.count = node, 0

		if node == ev.Target {
			if _, ok := ev.Message.(Pressed); ok {
				if action, ok := cx.actions[node]; ok {
					action(cx)
					ev.Consume()
				}
			}
		}
		if ev.consumed {
			return nil
		}

		if h, ok := cx.views[node].(ViewHandler); ok {
			h.Event(cx, ev)
			if ev.consumed {
				return nil
			}
		}

		st, ok := cx.stores[node]
		if !ok {
			continue
		}
		for _, mt := range slices.Clone(st.order) {
			h, ok := st.models[mt].(EventHandler)
			if !ok {
				continue
			}
			h.Event(cx, ev)
			if err := cx.detect(node, mt); err != nil {
				return err
			}
			if ev.consumed {
				return nil
			}
		}
	}
	return nil
}
