package state

import (
	"github.com/conneroisu/lenskit/internal/entity"
)

// Propagation selects which nodes see an event.
type Propagation int

const (
	// PropagateUp delivers to the target and then each ancestor up to Root.
	PropagateUp Propagation = iota
	// PropagateDirect delivers to the target only.
	PropagateDirect
)

func (p Propagation) String() string {
	if p == PropagateDirect {
		return "direct"
	}
	return "up"
}

// Event carries an application message through the tree.
type Event struct {
	Message     any
	Origin      entity.Entity
	Target      entity.Entity
	Propagation Propagation

	consumed bool
}

// Consume stops delivery to the remaining handlers.
func (e *Event) Consume() { e.consumed = true }

// Consumed reports whether a handler consumed the event.
func (e *Event) Consumed() bool { return e.consumed }

// As returns the event message as a T.
func As[T any](ev *Event) (T, bool) {
	m, ok := ev.Message.(T)
	return m, ok
}

// Pressed is sent to a node by Context.Press.
type Pressed struct{}

// Emit queues msg targeted at the current node.
func (cx *Context) Emit(msg any) {
	cx.EmitTo(cx.current, msg)
}

// EmitTo queues msg targeted at target, propagating up.
func (cx *Context) EmitTo(target entity.Entity, msg any) {
	cx.Send(&Event{Message: msg, Origin: cx.current, Target: target})
}

// EmitDirect queues msg for target only.
func (cx *Context) EmitDirect(target entity.Entity, msg any) {
	cx.Send(&Event{Message: msg, Origin: cx.current, Target: target, Propagation: PropagateDirect})
}

// Send queues ev as is.
func (cx *Context) Send(ev *Event) {
	cx.queue = append(cx.queue, ev)
}

// Press queues a Pressed event at target, as a pointer click would.
func (cx *Context) Press(target entity.Entity) {
	cx.Send(&Event{Message: Pressed{}, Origin: target, Target: target})
}
