package snapshot

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/lenskit/internal/demo"
	"github.com/conneroisu/lenskit/internal/entity"
	lkerrors "github.com/conneroisu/lenskit/internal/errors"
	"github.com/conneroisu/lenskit/internal/state"
)

type empty struct{ N int }

type emptyN struct{}

func (emptyN) View(e *empty) *int { return &e.N }

func mountCounter(t *testing.T) *state.Context {
	t.Helper()
	d, err := demo.Lookup("counter")
	require.NoError(t, err)
	cx := state.New(nil)
	require.NoError(t, cx.Mount(d.Build))
	return cx
}

func TestCapture(t *testing.T) {
	cx := mountCounter(t)
	s := Capture(cx, 7)

	assert.Equal(t, uint64(7), s.Frame)
	assert.Equal(t, "default", s.Theme)
	require.NotNil(t, s.Root)
	assert.Equal(t, "window", s.Root.Element)
	assert.Equal(t, []string{"demo.Counter"}, s.Root.Models)
	assert.Equal(t, cx.Tree().Len(), s.Entities)

	var binding, label *Node
	s.Walk(func(n *Node, depth int) bool {
		if n.Binding {
			binding = n
			label = n.Children[0]
			return false
		}
		return true
	})
	require.NotNil(t, binding)
	assert.Len(t, binding.Observes, 1)
	assert.Equal(t, 1, binding.Builds)
	assert.Equal(t, "label", label.Element)
	assert.Equal(t, "Count: 0", label.Text)
	assert.Equal(t, "#d0d0d0", label.Style["color"])

	assert.Same(t, label, s.Find(label.ID))
	assert.Nil(t, s.Find(9999))
}

func TestCaptureIsDetached(t *testing.T) {
	cx := mountCounter(t)
	before := Capture(cx, 1)

	cx.EmitTo(entity.Root, demo.Increment)
	require.NoError(t, cx.ProcessEvents())
	after := Capture(cx, 2)

	var texts []string
	for _, s := range []*Snapshot{before, after} {
		s.Walk(func(n *Node, _ int) bool {
			if n.Binding {
				texts = append(texts, n.Children[0].Text)
			}
			return true
		})
	}
	assert.Equal(t, []string{"Count: 0", "Count: 1"}, texts)
}

func TestDiagnostics(t *testing.T) {
	cx := state.New(nil)
	require.NoError(t, cx.Mount(func(cx *state.Context) {
		_, _ = state.NewBinding(cx, emptyN{}, func(cx *state.Context, _ state.Field[empty, int]) {})
	}))

	s := Capture(cx, 0)
	require.Len(t, s.Diagnostics, 1)
	d := s.Diagnostics[0]
	assert.Equal(t, lkerrors.ErrCodeMissingModel, d.Code)
	require.NotNil(t, d.Entity)
	n := s.Find(*d.Entity)
	require.NotNil(t, n)
	assert.True(t, n.Inert)
}

func TestJSON(t *testing.T) {
	s := Capture(mountCounter(t), 3)
	raw, err := s.JSON()
	require.NoError(t, err)

	var decoded Snapshot
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, s, &decoded)
}

func TestCBORRoundTrip(t *testing.T) {
	s := Capture(mountCounter(t), 3)
	raw, err := s.CBOR()
	require.NoError(t, err)

	again, err := Capture(mountCounter(t), 3).CBOR()
	require.NoError(t, err)
	assert.Equal(t, raw, again, "equal trees encode to equal bytes")

	decoded, err := DecodeCBOR(raw)
	require.NoError(t, err)
	assert.Equal(t, s, decoded)

	_, err = DecodeCBOR([]byte{0xff})
	require.Error(t, err)
}

func TestStream(t *testing.T) {
	cx := mountCounter(t)
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	for frame := uint64(0); frame < 3; frame++ {
		require.NoError(t, enc.Encode(Capture(cx, frame)))
		cx.EmitTo(entity.Root, demo.Increment)
		require.NoError(t, cx.ProcessEvents())
	}

	dec := NewDecoder(&buf)
	for frame := uint64(0); frame < 3; frame++ {
		var s Snapshot
		require.NoError(t, dec.Decode(&s))
		assert.Equal(t, frame, s.Frame)
	}
}
