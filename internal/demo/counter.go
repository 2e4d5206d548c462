package demo

import (
	"github.com/conneroisu/lenskit/internal/entity"
	"github.com/conneroisu/lenskit/internal/state"
	"github.com/conneroisu/lenskit/internal/style"
	"github.com/conneroisu/lenskit/internal/views"
)

// Counter is the counter demo's model.
type Counter struct {
	Count int
}

// CounterEvent changes a Counter.
type CounterEvent int

const (
	Increment CounterEvent = iota
	Decrement
)

func (c *Counter) Event(cx *state.Context, ev *state.Event) {
	e, ok := state.As[CounterEvent](ev)
	if !ok {
		return
	}
	switch e {
	case Increment:
		c.Count++
	case Decrement:
		c.Count--
	}
}

type counterCount struct{}

func (counterCount) View(c *Counter) *int { return &c.Count }

// CounterCount is the lens on Counter.Count.
var CounterCount = counterCount{}

// CounterApp builds two buttons and a label bound to the count.
func CounterApp(cx *state.Context) {
	_ = state.Build(cx, &Counter{})

	views.HStack(cx, func(cx *state.Context) {
		views.Button(cx, func(cx *state.Context) { cx.Emit(Increment) }, func(cx *state.Context) {
			views.Label(cx, state.Val(cx.Localize("counter.increment")))
		}).Width(style.Pixels(100))

		views.Button(cx, func(cx *state.Context) { cx.Emit(Decrement) }, func(cx *state.Context) {
			views.Label(cx, state.Val(cx.Localize("counter.decrement")))
		}).Width(style.Pixels(100))

		_, _ = state.NewBinding(cx, CounterCount, func(cx *state.Context, count state.Field[Counter, int]) {
			views.Label(cx, state.Map(state.Res[int](count), func(n int) string {
				return cx.Localize("counter.value", n)
			}))
		})
	}).Height(style.Auto)
}

func init() {
	register(Demo{
		Name:        "counter",
		Description: "two buttons changing a count shown by a bound label",
		Build:       CounterApp,
		Keys: map[string]any{
			"+":     Increment,
			"up":    Increment,
			"-":     Decrement,
			"down":  Decrement,
			"right": Increment,
			"left":  Decrement,
		},
		Parse: func(_ *state.Context, cmd string, _ []string) (entity.Entity, any, bool) {
			switch cmd {
			case "inc", "increment":
				return entity.Root, Increment, true
			case "dec", "decrement":
				return entity.Root, Decrement, true
			}
			return entity.Null, nil, false
		},
	})
}
