package demo

import (
	"strconv"

	"github.com/conneroisu/lenskit/internal/entity"
	"github.com/conneroisu/lenskit/internal/state"
	"github.com/conneroisu/lenskit/internal/views"
)

// ListData holds a fixed list and the selected index.
type ListData struct {
	Items    []uint32
	Selected int
}

// SelectItem selects the item at an index.
type SelectItem int

// ListEvent moves the selection.
type ListEvent int

const (
	IncrementSelection ListEvent = iota
	DecrementSelection
)

func (d *ListData) Event(cx *state.Context, ev *state.Event) {
	if s, ok := state.As[SelectItem](ev); ok {
		d.Selected = int(s)
		return
	}
	e, ok := state.As[ListEvent](ev)
	if !ok {
		return
	}
	switch e {
	case IncrementSelection:
		cx.Emit(SelectItem(min(d.Selected+1, len(d.Items)-1)))
	case DecrementSelection:
		cx.Emit(SelectItem(max(d.Selected-1, 0)))
	}
}

type listDataItems struct{}

func (listDataItems) View(d *ListData) *[]uint32 { return &d.Items }

type listDataSelected struct{}

func (listDataSelected) View(d *ListData) *int { return &d.Selected }

var (
	ListDataItems    = listDataItems{}
	ListDataSelected = listDataSelected{}
)

// StaticListApp shows the numbers 20 to 23; the selected one is checked.
func StaticListApp(cx *state.Context) {
	data := &ListData{}
	for n := uint32(20); n < 24; n++ {
		data.Items = append(data.Items, n)
	}
	_ = state.Build(cx, data)

	views.VStack(cx, func(cx *state.Context) {
		_, _ = views.List(cx, ListDataItems, func(cx *state.Context, index int, item state.Field[ListData, uint32]) {
			text := strconv.FormatUint(uint64(item.Value(cx)), 10)
			views.VStack(cx, func(cx *state.Context) {
				_, _ = state.NewBinding(cx, ListDataSelected, func(cx *state.Context, selected state.Field[ListData, int]) {
					views.Label(cx, state.Val(text)).
						Class("list_item", nil).
						Checked(state.Val(selected.Value(cx) == index)).
						OnPress(func(cx *state.Context) { cx.Emit(SelectItem(index)) })
				})
			})
		})

		_, _ = state.NewBinding(cx, ListDataSelected, func(cx *state.Context, selected state.Field[ListData, int]) {
			views.Label(cx, state.Val(cx.Localize("list.selected", selected.Value(cx))))
		})
	}).Class("container", nil)
}

func init() {
	register(Demo{
		Name:        "static_list",
		Description: "a fixed list with a selection moved by keys or presses",
		Build:       StaticListApp,
		Keys: map[string]any{
			"up":   DecrementSelection,
			"k":    DecrementSelection,
			"down": IncrementSelection,
			"j":    IncrementSelection,
		},
		Parse: func(_ *state.Context, cmd string, args []string) (entity.Entity, any, bool) {
			switch cmd {
			case "next":
				return entity.Root, IncrementSelection, true
			case "prev":
				return entity.Root, DecrementSelection, true
			case "select":
				if len(args) != 1 {
					return entity.Null, nil, false
				}
				i, err := strconv.Atoi(args[0])
				if err != nil || i < 0 {
					return entity.Null, nil, false
				}
				return entity.Root, SelectItem(i), true
			}
			return entity.Null, nil, false
		},
	})
}
