package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/lenskit/internal/demo"
	"github.com/conneroisu/lenskit/internal/entity"
	lkerrors "github.com/conneroisu/lenskit/internal/errors"
	"github.com/conneroisu/lenskit/internal/snapshot"
	"github.com/conneroisu/lenskit/internal/state"
	"github.com/conneroisu/lenskit/internal/style"
)

func newCounter(t *testing.T, opts ...Option) *App {
	t.Helper()
	cx := state.New(nil)
	require.NoError(t, cx.Mount(demo.CounterApp))
	return New(cx, opts...)
}

func labelText(s *snapshot.Snapshot) string {
	var text string
	s.Walk(func(n *snapshot.Node, _ int) bool {
		if n.Binding && len(n.Children) > 0 {
			text = n.Children[0].Text
			return false
		}
		return true
	})
	return text
}

func TestStep(t *testing.T) {
	a := newCounter(t)
	require.NotNil(t, a.Snapshot())
	assert.Equal(t, "Count: 0", labelText(a.Snapshot()))

	require.NoError(t, a.Post(entity.Root, demo.Increment))
	require.NoError(t, a.Post(entity.Root, demo.Increment))
	require.NoError(t, a.Step())

	assert.Equal(t, "Count: 2", labelText(a.Snapshot()))
	assert.Equal(t, uint64(1), a.Frame())
}

func TestPress(t *testing.T) {
	a := newCounter(t)
	var decrement uint32
	a.Snapshot().Walk(func(n *snapshot.Node, _ int) bool {
		if n.Element == "button" {
			decrement = n.ID
		}
		return true
	})

	require.NoError(t, a.Press(entity.Entity(decrement)))
	require.NoError(t, a.Step())
	assert.Equal(t, "Count: -1", labelText(a.Snapshot()))
}

func TestInboxFull(t *testing.T) {
	a := newCounter(t, WithInboxSize(1))
	require.NoError(t, a.Post(entity.Root, demo.Increment))

	err := a.Post(entity.Root, demo.Increment)
	require.Error(t, err)
	assert.Equal(t, lkerrors.ErrCodeInboxFull, lkerrors.CodeOf(err))

	require.NoError(t, a.Step())
	assert.Equal(t, "Count: 1", labelText(a.Snapshot()))
}

func TestReloadTheme(t *testing.T) {
	a := newCounter(t)
	require.Error(t, a.ReloadTheme(nil))

	theme := &style.Theme{
		Name:  "bright",
		Rules: []style.Rule{{Selector: "label", Properties: map[string]string{"color": "#ffff00"}}},
	}
	require.NoError(t, a.ReloadTheme(theme))
	require.NoError(t, a.Step())

	s := a.Snapshot()
	assert.Equal(t, "bright", s.Theme)
	s.Walk(func(n *snapshot.Node, _ int) bool {
		if n.Element == "label" {
			assert.Equal(t, "#ffff00", n.Style["color"])
		}
		return true
	})
}

func TestSubscribe(t *testing.T) {
	a := newCounter(t)
	ch, cancel := a.Subscribe()

	first := <-ch
	assert.Equal(t, "Count: 0", labelText(first))

	require.NoError(t, a.Post(entity.Root, demo.Increment))
	require.NoError(t, a.Step())
	require.NoError(t, a.Post(entity.Root, demo.Increment))
	require.NoError(t, a.Step())

	latest := <-ch
	assert.Equal(t, "Count: 2", labelText(latest), "slow subscribers see the newest snapshot")

	cancel()
	cancel()
	_, open := <-ch
	assert.False(t, open)
}

type ticks struct{ N int }

func (t *ticks) Event(_ *state.Context, ev *state.Event) {
	if _, ok := state.As[Tick](ev); ok {
		t.N++
	}
}

type ticksN struct{}

func (ticksN) View(t *ticks) *int { return &t.N }

func TestRun(t *testing.T) {
	cx := state.New(nil)
	require.NoError(t, cx.Mount(func(cx *state.Context) {
		_ = state.Build(cx, &ticks{})
		_, _ = state.NewBinding(cx, ticksN{}, func(cx *state.Context, n state.Field[ticks, int]) {})
	}))
	a := New(cx, WithTickInterval(time.Millisecond))
	updates, cancelSub := a.Subscribe()
	defer cancelSub()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	require.Eventually(t, func() bool {
		select {
		case s := <-updates:
			return s.Frame >= 3
		default:
			return false
		}
	}, 2*time.Second, time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestRunStopsOnBuilderPanic(t *testing.T) {
	cx := state.New(nil)
	require.NoError(t, cx.Mount(func(cx *state.Context) {
		_ = state.Build(cx, &ticks{})
		_, _ = state.NewBinding(cx, ticksN{}, func(cx *state.Context, n state.Field[ticks, int]) {
			if n.Value(cx) > 0 {
				panic("boom")
			}
		})
	}))
	a := New(cx)
	require.NoError(t, a.Post(entity.Root, Tick{}))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := a.Run(ctx)
	require.Error(t, err)
	assert.Equal(t, lkerrors.ErrCodeBuilderPanic, lkerrors.CodeOf(err))
}
