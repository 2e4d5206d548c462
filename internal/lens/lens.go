// Package lens provides typed, composable, zero-copy projections from a model
// value to one of its fields.
//
// A Lens[S, T] returns a pointer into the source it is given; viewing never
// allocates or copies. Lenses are immutable values: a lens with a different
// captured parameter (such as an index) is a different lens value.
//
// # Identity
//
// Observer registries key dependencies by Key, which is the dynamic Go type
// of the lens plus, for lenses implementing Parameterized, the captured
// parameter. Per-field lenses are distinct named types and therefore
// distinct keys. Index and Func lenses report their index or name as a
// parameter, so two index lenses on the same field with different indices
// are two dependencies, not one.
package lens

import (
	"fmt"
	"reflect"
)

// Lens projects a *S onto a *T inside it. View must not panic for a non-nil
// source and returns nil when the target is absent.
type Lens[S, T any] interface {
	View(source *S) *T
}

// Parameterized lenses contribute a runtime parameter to their Key. The
// parameter must be comparable.
type Parameterized interface {
	LensParam() any
}

// Key identifies a lens for dependency tracking.
type Key struct {
	Type  reflect.Type
	Param any
}

// String renders the key for logs and snapshots.
func (k Key) String() string {
	if k.Type == nil {
		return "<nil>"
	}
	if k.Param == nil {
		return k.Type.String()
	}
	return fmt.Sprintf("%s[%v]", k.Type, k.Param)
}

// KeyOf returns the identity of l.
func KeyOf(l any) Key {
	k := Key{Type: reflect.TypeOf(l)}
	if p, ok := l.(Parameterized); ok {
		k.Param = p.LensParam()
	}
	return k
}

// Compose is the lens produced by Then. It is a plain pair holder.
type Compose[A, B, C any] struct {
	First  Lens[A, B]
	Second Lens[B, C]
}

// Then composes first and second into a lens from A to C.
func Then[A, B, C any](first Lens[A, B], second Lens[B, C]) Compose[A, B, C] {
	return Compose[A, B, C]{First: first, Second: second}
}

// View threads source through First then Second.
func (c Compose[A, B, C]) View(source *A) *C {
	mid := c.First.View(source)
	if mid == nil {
		return nil
	}
	return c.Second.View(mid)
}

// LensParam makes the composed identity depend on both halves.
func (c Compose[A, B, C]) LensParam() any {
	return [2]Key{KeyOf(c.First), KeyOf(c.Second)}
}

// Index projects element I of a slice. The index is fixed at construction;
// build a new Index to look at another element.
type Index[E any] struct {
	I int
}

// View returns a pointer to the element, or nil when I is out of range.
func (x Index[E]) View(source *[]E) *E {
	if source == nil || x.I < 0 || x.I >= len(*source) {
		return nil
	}
	return &(*source)[x.I]
}

// LensParam reports the captured index.
func (x Index[E]) LensParam() any {
	return x.I
}

// At composes l with an index lens on its slice target.
func At[S, E any](l Lens[S, []E], i int) Compose[S, []E, E] {
	return Then[S, []E, E](l, Index[E]{I: i})
}

// Func is an ad-hoc lens built from a projection function. Its identity is its
// name, so two Func lenses with the same name are the same dependency.
type Func[S, T any] struct {
	Name string
	Fn   func(*S) *T
}

// New builds a named function lens.
func New[S, T any](name string, fn func(*S) *T) Func[S, T] {
	return Func[S, T]{Name: name, Fn: fn}
}

// View applies the projection function.
func (f Func[S, T]) View(source *S) *T {
	if source == nil || f.Fn == nil {
		return nil
	}
	return f.Fn(source)
}

// LensParam reports the lens name.
func (f Func[S, T]) LensParam() any {
	return f.Name
}

// Identity views the source itself.
type Identity[S any] struct{}

// View returns source.
func (Identity[S]) View(source *S) *S {
	return source
}

// Get dereferences a projection, returning the zero value and false when the
// target is absent.
func Get[S, T any](l Lens[S, T], source *S) (T, bool) {
	var zero T
	if source == nil {
		return zero, false
	}
	p := l.View(source)
	if p == nil {
		return zero, false
	}
	return *p, true
}
