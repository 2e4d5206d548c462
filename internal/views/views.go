// Package views provides the built-in elements: text, buttons, stacks, lists
// and text boxes. Each builder places one node at the current position and
// returns its Handle.
package views

import (
	"github.com/conneroisu/lenskit/internal/lens"
	"github.com/conneroisu/lenskit/internal/state"
	"github.com/conneroisu/lenskit/internal/style"
)

type element string

func (e element) Element() string { return string(e) }

// Label shows text.
func Label(cx *state.Context, text state.Res[string]) state.Handle {
	return cx.Build(element("label"), nil).Text(text)
}

// Button runs action when pressed. content builds the button's face.
func Button(cx *state.Context, action func(*state.Context), content func(*state.Context)) state.Handle {
	return cx.Build(element("button"), content).OnPress(action)
}

// VStack lays its children out top to bottom.
func VStack(cx *state.Context, content func(*state.Context)) state.Handle {
	return cx.Build(element("vstack"), content)
}

// HStack lays its children out left to right.
func HStack(cx *state.Context, content func(*state.Context)) state.Handle {
	return cx.Build(element("hstack"), content)
}

// Element builds a plain container with a custom element name, for
// application-specific styling.
func Element(cx *state.Context, name string, content func(*state.Context)) state.Handle {
	return cx.Build(element(name), content)
}

// List binds to a slice and builds one item per element. Each item receives
// its index and a field reading that element through lens.At, so an item
// may bind to its own element independently of its siblings.
func List[S, E any](cx *state.Context, l lens.Lens[S, []E], item func(cx *state.Context, index int, f state.Field[S, E])) (state.Handle, error) {
	return state.NewBinding(cx, l, func(cx *state.Context, f state.Field[S, []E]) {
		n := len(f.Value(cx))
		cx.Build(element("list"), func(cx *state.Context) {
			for i := 0; i < n; i++ {
				elem := state.FieldAt[S, E](lens.At(l, i), cx.Current())
				cx.Build(element("list_item"), func(cx *state.Context) {
					item(cx, i, elem)
				})
			}
		})
	})
}

// Edit is sent to a text box when its content is edited.
type Edit struct {
	Text string
}

type textbox struct {
	onEdit func(*state.Context, string)
}

func (textbox) Element() string { return "textbox" }

func (t textbox) Event(cx *state.Context, ev *state.Event) {
	edit, ok := state.As[Edit](ev)
	if !ok || ev.Target != cx.Current() {
		return
	}
	if t.onEdit != nil {
		t.onEdit(cx, edit.Text)
	}
	ev.Consume()
}

// Textbox shows text and reports edits through onEdit. It does not change
// its own text; the model behind text does.
func Textbox(cx *state.Context, text state.Res[string], onEdit func(*state.Context, string)) state.Handle {
	return cx.Build(textbox{onEdit: onEdit}, nil).Text(text).Width(style.Stretch(1))
}
