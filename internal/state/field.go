package state

import (
	"github.com/conneroisu/lenskit/internal/entity"
	"github.com/conneroisu/lenskit/internal/lens"
)

// Res is a view parameter: either a literal (Val) or a value read through a
// lens (Field, Map). Views resolve it while they are being built, so a Res
// read inside a binding builder reflects the value of that build.
type Res[T any] interface {
	Resolve(cx *Context) T
}

type literal[T any] struct {
	v T
}

func (l literal[T]) Resolve(*Context) T { return l.v }

// Val wraps a literal value as a Res.
func Val[T any](v T) Res[T] {
	return literal[T]{v: v}
}

// Field is the handle a binding builder receives. It reads the observed
// value from the nearest model of type S on the binding's lineage.
type Field[S, T any] struct {
	lens lens.Lens[S, T]
	node entity.Entity
}

// FieldAt makes a Field reading l from the lineage of node.
func FieldAt[S, T any](l lens.Lens[S, T], node entity.Entity) Field[S, T] {
	return Field[S, T]{lens: l, node: node}
}

// Lens returns the observed lens.
func (f Field[S, T]) Lens() lens.Lens[S, T] { return f.lens }

// Node returns the binding node the field reads from.
func (f Field[S, T]) Node() entity.Entity { return f.node }

// Get returns a pointer to the current value. The pointer is nil without an
// error when the lens target is absent, for example an index past the end.
func (f Field[S, T]) Get(cx *Context) (*T, error) {
	m, _, err := Find[S](cx, f.node)
	if err != nil {
		return nil, err
	}
	return f.lens.View(m), nil
}

// Value returns a copy of the current value, or the zero value when it
// cannot be read.
func (f Field[S, T]) Value(cx *Context) T {
	p, err := f.Get(cx)
	if err != nil || p == nil {
		var zero T
		return zero
	}
	return *p
}

// Resolve implements Res.
func (f Field[S, T]) Resolve(cx *Context) T {
	return f.Value(cx)
}

type mapped[T, U any] struct {
	from Res[T]
	fn   func(T) U
}

func (m mapped[T, U]) Resolve(cx *Context) U {
	return m.fn(m.from.Resolve(cx))
}

// Map derives a Res by applying fn to r.
func Map[T, U any](r Res[T], fn func(T) U) Res[U] {
	return mapped[T, U]{from: r, fn: fn}
}
