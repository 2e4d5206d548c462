// Package style holds the per-entity attribute side table written by view
// handles, and the theme (default stylesheet) resolved against it.
//
// The reactive core never reads these attributes; they are a downstream effect
// of building views and are consumed by renderers and the inspector.
package style

import (
	"fmt"
	"slices"

	"github.com/conneroisu/lenskit/internal/entity"
)

// Display controls whether an entity takes part in layout.
type Display int

const (
	DisplayFlex Display = iota
	DisplayNone
)

func (d Display) String() string {
	if d == DisplayNone {
		return "none"
	}
	return "flex"
}

// Visibility controls whether an entity is drawn.
type Visibility int

const (
	Visible Visibility = iota
	Hidden
)

func (v Visibility) String() string {
	if v == Hidden {
		return "hidden"
	}
	return "visible"
}

// UnitKind is the kind of a size value.
type UnitKind int

const (
	UnitAuto UnitKind = iota
	UnitPixels
	UnitPercentage
	UnitStretch
)

// Units is a size value.
type Units struct {
	Kind  UnitKind
	Value float64
}

// Auto sizes to content.
var Auto = Units{Kind: UnitAuto}

// Pixels is an absolute size.
func Pixels(v float64) Units { return Units{Kind: UnitPixels, Value: v} }

// Percentage is relative to the parent.
func Percentage(v float64) Units { return Units{Kind: UnitPercentage, Value: v} }

// Stretch takes a share of the free space.
func Stretch(v float64) Units { return Units{Kind: UnitStretch, Value: v} }

func (u Units) String() string {
	switch u.Kind {
	case UnitPixels:
		return fmt.Sprintf("%gpx", u.Value)
	case UnitPercentage:
		return fmt.Sprintf("%g%%", u.Value)
	case UnitStretch:
		return fmt.Sprintf("%gs", u.Value)
	default:
		return "auto"
	}
}

// Attributes is the style record of one entity.
type Attributes struct {
	Element    string
	Classes    []string
	Text       string
	Display    Display
	Visibility Visibility
	Width      Units
	Height     Units
	Checked    bool
}

// Store is the attribute side table.
type Store struct {
	attrs map[entity.Entity]*Attributes
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{attrs: make(map[entity.Entity]*Attributes)}
}

// Add gives e a default record. Adding twice resets the record.
func (s *Store) Add(e entity.Entity) {
	s.attrs[e] = &Attributes{}
}

// Remove releases e's record.
func (s *Store) Remove(e entity.Entity) {
	delete(s.attrs, e)
}

// Has reports whether e has a record.
func (s *Store) Has(e entity.Entity) bool {
	_, ok := s.attrs[e]
	return ok
}

// Len returns the number of records.
func (s *Store) Len() int {
	return len(s.attrs)
}

// Get returns a copy of e's record.
func (s *Store) Get(e entity.Entity) (Attributes, bool) {
	a, ok := s.attrs[e]
	if !ok {
		return Attributes{}, false
	}
	cp := *a
	cp.Classes = slices.Clone(a.Classes)
	return cp, true
}

func (s *Store) edit(e entity.Entity, fn func(*Attributes)) {
	a, ok := s.attrs[e]
	if !ok {
		a = &Attributes{}
		s.attrs[e] = a
	}
	fn(a)
}

// SetElement records the element name used for selector matching.
func (s *Store) SetElement(e entity.Entity, name string) {
	s.edit(e, func(a *Attributes) { a.Element = name })
}

// AddClass adds a class once.
func (s *Store) AddClass(e entity.Entity, class string) {
	s.edit(e, func(a *Attributes) {
		if !slices.Contains(a.Classes, class) {
			a.Classes = append(a.Classes, class)
		}
	})
}

// SetText sets the text content.
func (s *Store) SetText(e entity.Entity, text string) {
	s.edit(e, func(a *Attributes) { a.Text = text })
}

// SetDisplay sets the display mode.
func (s *Store) SetDisplay(e entity.Entity, d Display) {
	s.edit(e, func(a *Attributes) { a.Display = d })
}

// SetVisibility sets the visibility.
func (s *Store) SetVisibility(e entity.Entity, v Visibility) {
	s.edit(e, func(a *Attributes) { a.Visibility = v })
}

// SetWidth sets the width.
func (s *Store) SetWidth(e entity.Entity, u Units) {
	s.edit(e, func(a *Attributes) { a.Width = u })
}

// SetHeight sets the height.
func (s *Store) SetHeight(e entity.Entity, u Units) {
	s.edit(e, func(a *Attributes) { a.Height = u })
}

// SetChecked sets the checked pseudo-state.
func (s *Store) SetChecked(e entity.Entity, checked bool) {
	s.edit(e, func(a *Attributes) { a.Checked = checked })
}
