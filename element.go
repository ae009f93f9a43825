package storycanvas

import (
	"fmt"
	"slices"
)

// ElementType discriminates element geometry and edit behavior.
type ElementType string

// Built-in element types.
const (
	ElementImage ElementType = "image"
	ElementVideo ElementType = "video"
	ElementText  ElementType = "text"
	ElementShape ElementType = "shape"
)

// Background scale slider bounds in percent. The background zoom effect maps
// the current scale into [0, 1] using these bounds unless configured otherwise.
const (
	DefaultMinScale = 100
	DefaultMaxScale = 400
)

// Element is a placed item on the page. Elements are owned by the document
// store; the canvas core only reads them and requests patches.
type Element struct {
	ID   string
	Type ElementType
	Geometry

	// IsBackground marks the page background element.
	IsBackground bool
	// BackgroundScale is the background scale slider value in percent.
	BackgroundScale float64

	// Animation is the single attached effect instance, or nil.
	Animation *EffectInstance
}

// Clone returns a deep copy, including the animation parameters.
func (e Element) Clone() Element {
	if e.Animation != nil {
		a := e.Animation.Clone()
		e.Animation = &a
	}
	return e
}

// ContainsPoint reports whether the document-space point lies within the
// element's rotated frame.
func (e Element) ContainsPoint(x, y float64) bool {
	return containsPoint(e.Geometry, x, y)
}

// EditCapability describes how an element type is edited directly on the
// canvas.
type EditCapability struct {
	// HasEditSurface reports whether the type has an edit mode with its own
	// surface (e.g. an inline text editor or an image crop view).
	HasEditSurface bool
	// HasEditModeMovable reports whether geometry handles stay active while
	// the edit surface is shown. Types that opt out are edited only through
	// the surface itself.
	HasEditModeMovable bool
}

// ElementTypes is the capability table mapping an element type to its edit
// affordance. It is immutable after construction.
type ElementTypes struct {
	caps map[ElementType]EditCapability
}

// NewElementTypes validates and builds a capability table. A type cannot keep
// handles in edit mode without having an edit surface.
func NewElementTypes(caps map[ElementType]EditCapability) (*ElementTypes, error) {
	t := &ElementTypes{caps: make(map[ElementType]EditCapability, len(caps))}
	for typ, c := range caps {
		if typ == "" {
			return nil, fmt.Errorf("%w: empty type name", ErrUnknownElementType)
		}
		if c.HasEditModeMovable && !c.HasEditSurface {
			return nil, fmt.Errorf("element type %q: edit-mode handles require an edit surface", typ)
		}
		t.caps[typ] = c
	}
	return t, nil
}

// DefaultElementTypes returns the capability table for the built-in types.
func DefaultElementTypes() *ElementTypes {
	t, err := NewElementTypes(map[ElementType]EditCapability{
		ElementImage: {HasEditSurface: true, HasEditModeMovable: true},
		ElementVideo: {HasEditSurface: true, HasEditModeMovable: true},
		ElementText:  {HasEditSurface: true},
		ElementShape: {},
	})
	if err != nil {
		panic("storycanvas: " + err.Error())
	}
	return t
}

// Lookup returns the capability descriptor for typ.
func (t *ElementTypes) Lookup(typ ElementType) (EditCapability, error) {
	c, ok := t.caps[typ]
	if !ok {
		return EditCapability{}, fmt.Errorf("%w: %q", ErrUnknownElementType, typ)
	}
	return c, nil
}

// Types returns the registered type names in sorted order.
func (t *ElementTypes) Types() []ElementType {
	out := make([]ElementType, 0, len(t.caps))
	for typ := range t.caps {
		out = append(out, typ)
	}
	slices.Sort(out)
	return out
}

// ValidateElements checks that every element's type is registered, so an
// unknown type fails when the session starts rather than mid-gesture.
func (t *ElementTypes) ValidateElements(elements []Element) error {
	for _, e := range elements {
		if _, err := t.Lookup(e.Type); err != nil {
			return fmt.Errorf("element %q: %w", e.ID, err)
		}
	}
	return nil
}
