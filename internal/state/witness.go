package state

import (
	"reflect"

	"github.com/conneroisu/lenskit/internal/data"
	lkerrors "github.com/conneroisu/lenskit/internal/errors"
	"github.com/conneroisu/lenskit/internal/lens"
)

// witness remembers the last observed projection of one lens over one
// stored model.
type witness interface {
	// source is the model type the lens reads.
	source() reflect.Type
	// update re-projects model and reports whether the value changed. The
	// stored value is replaced on change.
	update(model any) (bool, error)
	// value returns the stored value, for snapshots and tests.
	value() (any, bool)
}

type lensWitness[S, T any] struct {
	lens    lens.Lens[S, T]
	old     T
	present bool
}

func newWitness[S, T any](l lens.Lens[S, T], model *S) (*lensWitness[S, T], error) {
	w := &lensWitness[S, T]{lens: l}
	if p := l.View(model); p != nil {
		old, err := observe(l, *p)
		if err != nil {
			return nil, err
		}
		w.old, w.present = old, true
	}
	return w, nil
}

// observe copies a projected value so later model mutation cannot reach it.
func observe[S, T any](l lens.Lens[S, T], v T) (T, error) {
	cp, err := data.Clone(v)
	if err != nil {
		return cp, lkerrors.NewInternalError(lkerrors.ErrCodeInternalError, "copying observed value", err).
			WithContext("lens", lens.KeyOf(l).String())
	}
	return cp, nil
}

func (w *lensWitness[S, T]) source() reflect.Type {
	return reflect.TypeFor[S]()
}

func (w *lensWitness[S, T]) update(model any) (bool, error) {
	m, ok := model.(*S)
	if !ok {
		return false, lkerrors.NewDowncastError(
			reflect.TypeFor[*S]().String(), reflect.TypeOf(model).String(), uint32(0))
	}

	p := w.lens.View(m)
	if p == nil {
		if !w.present {
			return false, nil
		}
		var zero T
		w.old, w.present = zero, false
		return true, nil
	}

	if w.present && data.Equal(w.old, *p) {
		return false, nil
	}
	cp, err := observe(w.lens, *p)
	if err != nil {
		return false, err
	}
	w.old, w.present = cp, true
	return true, nil
}

func (w *lensWitness[S, T]) value() (any, bool) {
	return w.old, w.present
}
