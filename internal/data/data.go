// Package data implements the value semantics the observer registry relies
// on: structural equality between a fresh projection and the last observed
// value, and deep copies so the stored value cannot alias model memory.
package data

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// Equaler lets a type define its own notion of sameness. go-cmp calls an
// Equal method of this shape automatically.
type Equaler[T any] interface {
	Equal(other T) bool
}

// Cloner lets a type provide its own deep copy. Types holding unexported
// state that must survive a copy should implement it.
type Cloner[T any] interface {
	Clone() T
}

var compareOpts = []cmp.Option{
	cmp.Exporter(func(reflect.Type) bool { return true }),
	cmpopts.EquateEmpty(),
}

// Equal reports structural equality. Unexported fields take part in the
// comparison, and nil and empty slices or maps are equal.
func Equal[T any](a, b T) bool {
	return cmp.Equal(a, b, compareOpts...)
}

// Diff returns a human-readable difference for logs, empty when equal.
func Diff[T any](a, b T) string {
	return cmp.Diff(a, b, compareOpts...)
}

// ErrNotCloneable is returned for values reaching a non-nil channel,
// function or unsafe pointer.
var ErrNotCloneable = errors.New("value cannot be deep-copied")

// Clone returns a deep copy of v. Pointers get fresh pointees, so mutation
// through the original is never visible in the copy; pointers shared inside
// v stay shared in the copy. Unexported struct fields are copied shallowly
// unless the type implements Cloner.
func Clone[T any](v T) (T, error) {
	var out T
	c := &cloner{seen: make(map[visit]reflect.Value)}
	cp, err := c.clone(reflect.ValueOf(&v).Elem())
	if err != nil {
		return out, err
	}
	reflect.ValueOf(&out).Elem().Set(cp)
	return out, nil
}

type visit struct {
	addr uintptr
	typ  reflect.Type
}

type cloner struct {
	seen map[visit]reflect.Value
}

func (c *cloner) clone(v reflect.Value) (reflect.Value, error) {
	t := v.Type()
	if cp, ok := cloneMethod(v); ok {
		return cp, nil
	}

	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return v, nil
		}
		key := visit{addr: v.Pointer(), typ: t}
		if cp, ok := c.seen[key]; ok {
			return cp, nil
		}
		cp := reflect.New(t.Elem())
		c.seen[key] = cp
		elem, err := c.clone(v.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		cp.Elem().Set(elem)
		return cp, nil

	case reflect.Interface:
		if v.IsNil() {
			return v, nil
		}
		elem, err := c.clone(v.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		cp := reflect.New(t).Elem()
		cp.Set(elem)
		return cp, nil

	case reflect.Slice:
		if v.IsNil() {
			return v, nil
		}
		cp := reflect.MakeSlice(t, v.Len(), v.Len())
		for i := range v.Len() {
			elem, err := c.clone(v.Index(i))
			if err != nil {
				return reflect.Value{}, err
			}
			cp.Index(i).Set(elem)
		}
		return cp, nil

	case reflect.Array:
		cp := reflect.New(t).Elem()
		for i := range v.Len() {
			elem, err := c.clone(v.Index(i))
			if err != nil {
				return reflect.Value{}, err
			}
			cp.Index(i).Set(elem)
		}
		return cp, nil

	case reflect.Map:
		if v.IsNil() {
			return v, nil
		}
		cp := reflect.MakeMapWithSize(t, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			k, err := c.clone(iter.Key())
			if err != nil {
				return reflect.Value{}, err
			}
			e, err := c.clone(iter.Value())
			if err != nil {
				return reflect.Value{}, err
			}
			cp.SetMapIndex(k, e)
		}
		return cp, nil

	case reflect.Struct:
		cp := reflect.New(t).Elem()
		cp.Set(v)
		for i := range t.NumField() {
			f := cp.Field(i)
			if !f.CanSet() {
				continue
			}
			elem, err := c.clone(v.Field(i))
			if err != nil {
				return reflect.Value{}, err
			}
			f.Set(elem)
		}
		return cp, nil

	case reflect.Chan, reflect.Func, reflect.UnsafePointer:
		if v.IsNil() {
			return v, nil
		}
		return reflect.Value{}, fmt.Errorf("%w: %s", ErrNotCloneable, t)

	default:
		return v, nil
	}
}

// cloneMethod calls a Clone method returning the value's own type.
func cloneMethod(v reflect.Value) (reflect.Value, bool) {
	switch v.Kind() {
	case reflect.Interface:
		return reflect.Value{}, false
	case reflect.Pointer, reflect.Map, reflect.Slice:
		if v.IsNil() {
			return reflect.Value{}, false
		}
	}
	if !v.CanInterface() {
		return reflect.Value{}, false
	}
	m, ok := v.Type().MethodByName("Clone")
	if !ok || m.Type.NumIn() != 1 || m.Type.NumOut() != 1 || m.Type.Out(0) != v.Type() {
		return reflect.Value{}, false
	}
	return v.Method(m.Index).Call(nil)[0], true
}
