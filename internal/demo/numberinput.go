package demo

import (
	"context"
	"strconv"

	"github.com/conneroisu/lenskit/internal/entity"
	"github.com/conneroisu/lenskit/internal/state"
	"github.com/conneroisu/lenskit/internal/style"
	"github.com/conneroisu/lenskit/internal/views"
)

// NumberData is the number input demo's root model.
type NumberData struct {
	Number uint32
}

// UpdateNumber replaces NumberData.Number.
type UpdateNumber uint32

func (d *NumberData) Event(cx *state.Context, ev *state.Event) {
	if n, ok := state.As[UpdateNumber](ev); ok {
		d.Number = uint32(n)
	}
}

// TextData is the editable text behind the number. It lives on the binding
// node, so it is created by the first build and kept by later ones.
type TextData struct {
	Text string
}

// UpdateText proposes new text for TextData.
type UpdateText struct {
	Text string
}

func (t *TextData) Event(cx *state.Context, ev *state.Event) {
	u, ok := state.As[UpdateText](ev)
	if !ok {
		return
	}
	n, err := strconv.ParseUint(u.Text, 10, 32)
	if err != nil {
		cx.Logger().Warn(context.Background(), err, "rejected non-numeric text", "text", u.Text)
		return
	}
	t.Text = u.Text
	cx.Emit(UpdateNumber(n))
}

type numberDataNumber struct{}

func (numberDataNumber) View(d *NumberData) *uint32 { return &d.Number }

type textDataText struct{}

func (textDataText) View(t *TextData) *string { return &t.Text }

var (
	NumberDataNumber = numberDataNumber{}
	TextDataText     = textDataText{}
)

// NumberInputApp binds a text box to a number through an intermediate text
// model that rejects non-numeric edits.
func NumberInputApp(cx *state.Context) {
	_ = state.Build(cx, &NumberData{Number: 5})

	_, _ = state.NewBinding(cx, NumberDataNumber, func(cx *state.Context, number state.Field[NumberData, uint32]) {
		_ = state.Build(cx, &TextData{Text: strconv.FormatUint(uint64(number.Value(cx)), 10)})

		_, _ = state.NewBinding(cx, TextDataText, func(cx *state.Context, text state.Field[TextData, string]) {
			views.Textbox(cx, text, func(cx *state.Context, s string) {
				cx.Emit(UpdateText{Text: s})
			}).Width(style.Pixels(100)).Height(style.Pixels(30))
		})

		views.Label(cx, state.Val(cx.Localize("number.label", number.Value(cx))))
	})
}

func init() {
	register(Demo{
		Name:        "number_input",
		Description: "a text box that only accepts numbers",
		Build:       NumberInputApp,
		Parse: func(cx *state.Context, cmd string, args []string) (entity.Entity, any, bool) {
			if cmd != "set" || len(args) != 1 {
				return entity.Null, nil, false
			}
			box, ok := FindElement(cx, "textbox")
			if !ok {
				return entity.Null, nil, false
			}
			return box, views.Edit{Text: args[0]}, true
		},
	})
}
