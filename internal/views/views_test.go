package views

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/lenskit/internal/entity"
	"github.com/conneroisu/lenskit/internal/state"
)

type inbox struct {
	Messages []string
	Draft    string
}

type send struct{}

type draft struct{ text string }

func (b *inbox) Event(cx *state.Context, ev *state.Event) {
	switch m := ev.Message.(type) {
	case send:
		b.Messages = append(b.Messages, b.Draft)
		b.Draft = ""
	case draft:
		b.Draft = m.text
	}
}

type inboxMessages struct{}

func (inboxMessages) View(b *inbox) *[]string { return &b.Messages }

type inboxDraft struct{}

func (inboxDraft) View(b *inbox) *string { return &b.Draft }

func text(t *testing.T, cx *state.Context, e entity.Entity) string {
	t.Helper()
	attrs, ok := cx.Styles().Get(e)
	require.True(t, ok)
	return attrs.Text
}

func TestListBuildsOneItemPerElement(t *testing.T) {
	cx := state.New(nil)
	box := &inbox{Messages: []string{"hello", "world"}}
	var list state.Handle

	require.NoError(t, cx.Mount(func(cx *state.Context) {
		require.NoError(t, state.Build(cx, box))
		var err error
		list, err = List(cx, inboxMessages{}, func(cx *state.Context, i int, f state.Field[inbox, string]) {
			Label(cx, f).Class("even", state.Val(i%2 == 0))
		})
		require.NoError(t, err)
	}))

	container, ok := cx.Tree().ChildAt(list.Entity, 0)
	require.True(t, ok)
	assert.Equal(t, "list", cx.Element(container))

	items := cx.Tree().Children(container)
	require.Len(t, items, 2)
	first := cx.Tree().Children(items[0])[0]
	assert.Equal(t, "hello", text(t, cx, first))
	assert.Equal(t, "world", text(t, cx, cx.Tree().Children(items[1])[0]))

	attrs, _ := cx.Styles().Get(first)
	assert.Equal(t, []string{"even"}, attrs.Classes)

	box.Draft = "again"
	cx.EmitTo(entity.Root, send{})
	require.NoError(t, cx.ProcessEvents())
	items = cx.Tree().Children(container)
	require.Len(t, items, 3)
	assert.Equal(t, "again", text(t, cx, cx.Tree().Children(items[2])[0]))
}

func TestButtonAndTextbox(t *testing.T) {
	cx := state.New(nil)
	box := &inbox{}
	var button, input, preview entity.Entity

	require.NoError(t, cx.Mount(func(cx *state.Context) {
		require.NoError(t, state.Build(cx, box))
		VStack(cx, func(cx *state.Context) {
			_, _ = state.NewBinding(cx, inboxDraft{}, func(cx *state.Context, f state.Field[inbox, string]) {
				input = Textbox(cx, f, func(cx *state.Context, s string) {
					cx.Emit(draft{text: s})
				}).Entity
				preview = Label(cx, f).Entity
			})
			HStack(cx, func(cx *state.Context) {
				button = Button(cx, func(cx *state.Context) { cx.Emit(send{}) }, func(cx *state.Context) {
					Label(cx, state.Val("Send"))
				}).Entity
			})
		})
	}))

	assert.Equal(t, "textbox", cx.Element(input))
	assert.Equal(t, "button", cx.Element(button))

	cx.EmitTo(input, Edit{Text: "hi"})
	require.NoError(t, cx.ProcessEvents())
	assert.Equal(t, "hi", box.Draft)
	assert.Equal(t, "hi", text(t, cx, input))
	assert.Equal(t, "hi", text(t, cx, preview))

	cx.Press(button)
	require.NoError(t, cx.ProcessEvents())
	assert.Equal(t, []string{"hi"}, box.Messages)
	assert.Empty(t, text(t, cx, preview))
}
