//go:build property

package state

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/conneroisu/lenskit/internal/entity"
)

type write struct {
	OnCount bool
	Value   int
}

func genWrite() gopter.Gen {
	return gopter.CombineGens(gen.Bool(), gen.IntRange(0, 3)).Map(func(v []interface{}) write {
		return write{OnCount: v[0].(bool), Value: v[1].(int)}
	})
}

// TestChangeDetectionProperties checks that a binding rebuilds exactly when
// the value it observes changes.
func TestChangeDetectionProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(4242)
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("rebuild iff observed value changed", prop.ForAll(
		func(writes []write) bool {
			cx := New(nil)
			c := &counter{}
			builds := 0
			if err := cx.Mount(func(cx *Context) {
				_ = Build(cx, c)
				_, _ = NewBinding(cx, counterCount{}, func(cx *Context, _ Field[counter, int]) {
					builds++
				})
			}); err != nil {
				return false
			}

			for _, w := range writes {
				before, prevCount := builds, c.Count
				err := Mutate(cx, entity.Root, func(c *counter) {
					if w.OnCount {
						c.Count = w.Value
					} else {
						c.Items = append(c.Items, "x")
					}
				})
				if err != nil {
					return false
				}
				changed := w.OnCount && w.Value != prevCount
				if changed != (builds == before+1) || builds > before+1 {
					return false
				}
			}
			return true
		},
		gen.SliceOf(genWrite()),
	))

	properties.Property("nested observers rebuild once per change", prop.ForAll(
		func(depth int, changes int) bool {
			cx := New(nil)
			c := &counter{}
			builds := make([]int, depth)

			var nest func(cx *Context, level int)
			nest = func(cx *Context, level int) {
				if level == depth {
					return
				}
				_, _ = NewBinding(cx, counterCount{}, func(cx *Context, _ Field[counter, int]) {
					builds[level]++
					nest(cx, level+1)
				})
			}
			_ = cx.Mount(func(cx *Context) {
				_ = Build(cx, c)
				nest(cx, 0)
			})

			for i := 0; i < changes; i++ {
				cx.EmitTo(entity.Root, incr{})
				if cx.ProcessEvents() != nil {
					return false
				}
			}
			for _, b := range builds {
				if b != changes+1 {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 5),
		gen.IntRange(0, 5),
	))

	properties.TestingRun(t)
}
