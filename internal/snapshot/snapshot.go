// Package snapshot captures an immutable copy of a context's tree for
// consumers outside the loop goroutine: the inspector, the terminal renderer
// and the CLI. Snapshots serialize to JSON for browsers and to
// deterministic CBOR for compact recording.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/conneroisu/lenskit/internal/entity"
	lkerrors "github.com/conneroisu/lenskit/internal/errors"
	"github.com/conneroisu/lenskit/internal/state"
)

// Node is one entity of the tree with its attributes.
type Node struct {
	ID         uint32            `json:"id" cbor:"1,keyasint"`
	Element    string            `json:"element" cbor:"2,keyasint"`
	Text       string            `json:"text,omitempty" cbor:"3,keyasint,omitempty"`
	Classes    []string          `json:"classes,omitempty" cbor:"4,keyasint,omitempty"`
	Checked    bool              `json:"checked,omitempty" cbor:"5,keyasint,omitempty"`
	Display    string            `json:"display" cbor:"6,keyasint"`
	Visibility string            `json:"visibility" cbor:"7,keyasint"`
	Width      string            `json:"width" cbor:"8,keyasint"`
	Height     string            `json:"height" cbor:"9,keyasint"`
	Binding    bool              `json:"binding,omitempty" cbor:"10,keyasint,omitempty"`
	Inert      bool              `json:"inert,omitempty" cbor:"11,keyasint,omitempty"`
	Builds     int               `json:"builds,omitempty" cbor:"12,keyasint,omitempty"`
	Observes   []string          `json:"observes,omitempty" cbor:"13,keyasint,omitempty"`
	Models     []string          `json:"models,omitempty" cbor:"14,keyasint,omitempty"`
	Style      map[string]string `json:"style,omitempty" cbor:"15,keyasint,omitempty"`
	Children   []*Node           `json:"children,omitempty" cbor:"16,keyasint,omitempty"`
	Pressable  bool              `json:"pressable,omitempty" cbor:"17,keyasint,omitempty"`
}

// Diagnostic is a recorded error.
type Diagnostic struct {
	Code      string    `json:"code" cbor:"1,keyasint"`
	Message   string    `json:"message" cbor:"2,keyasint"`
	Severity  string    `json:"severity" cbor:"3,keyasint"`
	Entity    *uint32   `json:"entity,omitempty" cbor:"4,keyasint,omitempty"`
	Timestamp time.Time `json:"timestamp" cbor:"5,keyasint"`
}

// Snapshot is the captured tree.
type Snapshot struct {
	Frame       uint64       `json:"frame" cbor:"1,keyasint"`
	Theme       string       `json:"theme" cbor:"2,keyasint"`
	Entities    int          `json:"entities" cbor:"3,keyasint"`
	Root        *Node        `json:"root" cbor:"4,keyasint"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty" cbor:"5,keyasint,omitempty"`
}

// Capture copies the tree of cx. It must run on the goroutine owning cx.
func Capture(cx *state.Context, frame uint64) *Snapshot {
	s := &Snapshot{
		Frame: frame,
		Theme: cx.Theme().Name,
	}
	s.Root = capture(cx, entity.Root, &s.Entities)

	for _, d := range cx.Diagnostics().GetDiagnostics() {
		diag := Diagnostic{
			Code:      lkerrors.CodeOf(d.Err),
			Message:   d.Err.Error(),
			Severity:  d.Severity.String(),
			Timestamp: d.Timestamp,
		}
		var re *lkerrors.ReactorError
		if errors.As(d.Err, &re) && re.HasEntity {
			id := re.Entity
			diag.Entity = &id
		}
		s.Diagnostics = append(s.Diagnostics, diag)
	}
	return s
}

func capture(cx *state.Context, e entity.Entity, count *int) *Node {
	*count++
	attrs, _ := cx.Styles().Get(e)
	n := &Node{
		ID:         uint32(e),
		Element:    attrs.Element,
		Text:       attrs.Text,
		Classes:    attrs.Classes,
		Checked:    attrs.Checked,
		Display:    attrs.Display.String(),
		Visibility: attrs.Visibility.String(),
		Width:      attrs.Width.String(),
		Height:     attrs.Height.String(),
		Binding:    cx.IsBinding(e),
		Inert:      cx.Inert(e),
		Builds:     cx.BuildCount(e),
		Observes:   cx.Observes(e),
		Models:     cx.Models(e),
		Style:      cx.ResolvedStyle(e),
		Pressable:  cx.Pressable(e),
	}
	if len(n.Classes) == 0 {
		n.Classes = nil
	}
	if len(n.Observes) == 0 {
		n.Observes = nil
	}
	if len(n.Models) == 0 {
		n.Models = nil
	}
	if len(n.Style) == 0 {
		n.Style = nil
	}
	for _, c := range cx.Tree().Children(e) {
		n.Children = append(n.Children, capture(cx, c, count))
	}
	return n
}

// Find returns the node with id, or nil.
func (s *Snapshot) Find(id uint32) *Node {
	var found *Node
	s.Walk(func(n *Node, _ int) bool {
		if n.ID == id {
			found = n
			return false
		}
		return true
	})
	return found
}

// Walk visits the nodes in document order with their depth until fn returns
// false.
func (s *Snapshot) Walk(fn func(n *Node, depth int) bool) {
	if s.Root != nil {
		walk(s.Root, 0, fn)
	}
}

func walk(n *Node, depth int, fn func(*Node, int) bool) bool {
	if !fn(n, depth) {
		return false
	}
	for _, c := range n.Children {
		if !walk(c, depth+1, fn) {
			return false
		}
	}
	return true
}

// JSON encodes the snapshot for browsers.
func (s *Snapshot) JSON() ([]byte, error) {
	return json.Marshal(s)
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create snapshot CBOR encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyEnforcedAPF,
		IndefLength: cbor.IndefLengthForbidden,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create snapshot CBOR decoder mode: %v", err))
	}
}

// CBOR encodes the snapshot deterministically: equal snapshots encode to
// equal bytes.
func (s *Snapshot) CBOR() ([]byte, error) {
	return encMode.Marshal(s)
}

// DecodeCBOR decodes a snapshot produced by CBOR.
func DecodeCBOR(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := decMode.Unmarshal(data, &s); err != nil {
		return nil, lkerrors.NewIOError(lkerrors.ErrCodeInternalError, "decoding snapshot", err)
	}
	return &s, nil
}

// NewEncoder returns a CBOR stream encoder for recording snapshots to w.
func NewEncoder(w io.Writer) *cbor.Encoder {
	return encMode.NewEncoder(w)
}

// NewDecoder returns a CBOR stream decoder for reading recorded snapshots.
func NewDecoder(r io.Reader) *cbor.Decoder {
	return decMode.NewDecoder(r)
}
