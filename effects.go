package storycanvas

import (
	"fmt"
	"maps"
	"math"
	"slices"
)

// EffectFamily partitions effects into element-level and background-level
// sets, each with its own fields.
type EffectFamily uint8

const (
	FamilyElement    EffectFamily = iota // attachable to regular elements
	FamilyBackground                     // attachable to the page background
)

// ControlKind selects the input control rendered for a field.
type ControlKind uint8

const (
	ControlDropdown        ControlKind = iota // one of a fixed list of strings
	ControlDirectionPicker                    // one of the four directions
	ControlRotationPicker                     // left-to-right or right-to-left
	ControlNumeric                            // integer or float input
)

// String returns the control name.
func (k ControlKind) String() string {
	switch k {
	case ControlDropdown:
		return "dropdown"
	case ControlDirectionPicker:
		return "direction-picker"
	case ControlRotationPicker:
		return "rotation-picker"
	case ControlNumeric:
		return "numeric"
	default:
		return "unknown"
	}
}

// EffectType names an effect definition.
type EffectType string

// Built-in effect types.
const (
	EffectDrop     EffectType = "effect-drop"
	EffectFadeIn   EffectType = "effect-fade-in"
	EffectFlyIn    EffectType = "effect-fly-in"
	EffectPan      EffectType = "effect-pan"
	EffectPulse    EffectType = "effect-pulse"
	EffectRotateIn EffectType = "effect-rotate-in"
	EffectTwirlIn  EffectType = "effect-twirl-in"
	EffectWhooshIn EffectType = "effect-whoosh-in"
	EffectZoom     EffectType = "effect-zoom"

	EffectBackgroundPan  EffectType = "effect-background-pan"
	EffectBackgroundZoom EffectType = "effect-background-zoom"
)

// Field names shared by several effects.
const (
	FieldDuration      = "duration"
	FieldDelay         = "delay"
	FieldEasing        = "easing"
	FieldFlyInDir      = "flyInDir"
	FieldPanDir        = "panDir"
	FieldPanAngle      = "panAngle"
	FieldWhooshInDir   = "whooshInDir"
	FieldRotateInDir   = "rotateInDir"
	FieldScale         = "scale"
	FieldIterations    = "iterations"
	FieldZoomFrom      = "zoomFrom"
	FieldZoomTo        = "zoomTo"
	FieldScaleFrom     = "scaleFrom"
	FieldZoomDirection = "zoomDirection"
)

// Easing names accepted by the easing dropdown.
var Easings = []string{"linear", "ease-in", "ease-out", "ease-in-out", "bounce", "elastic"}

// Zoom directions accepted by the background zoom dropdown.
const (
	ZoomScaleIn  = "scaleIn"
	ZoomScaleOut = "scaleOut"
)

// Params maps field names to values. Values are string (dropdowns and
// pickers), int (integer numerics) or float64 (float numerics).
type Params map[string]any

// Clone returns an independent copy. Values are scalars, so a shallow map
// copy is a full copy.
func (p Params) Clone() Params {
	if p == nil {
		return Params{}
	}
	return maps.Clone(p)
}

// Float returns the numeric value of key as float64.
func (p Params) Float(key string) (float64, bool) {
	switch v := p[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

// String returns the string value of key.
func (p Params) String(key string) (string, bool) {
	s, ok := p[key].(string)
	return s, ok
}

// FieldDefinition describes one parameter of an effect.
type FieldDefinition struct {
	Name    string
	Label   string
	Control ControlKind
	// Default is a string for dropdowns and pickers, an int for integer
	// numerics and a float64 for float numerics.
	Default any
	Unit    string
	// Values lists the allowed dropdown values.
	Values []string
	// Float declares a numeric field as floating-point.
	Float bool
	// AllowNegative lets a numeric field go below zero.
	AllowNegative bool
}

// EffectDefinition is the static schema of one effect type.
type EffectDefinition struct {
	Type   EffectType
	Name   string
	Family EffectFamily
	Fields []FieldDefinition
}

// Field returns the definition of the named field.
func (d EffectDefinition) Field(name string) (FieldDefinition, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDefinition{}, false
}

// clone deep-copies the field slice and its Values.
func (d EffectDefinition) clone() EffectDefinition {
	d.Fields = slices.Clone(d.Fields)
	for i := range d.Fields {
		d.Fields[i].Values = slices.Clone(d.Fields[i].Values)
	}
	return d
}

// normalizeParams validates p against d and returns a copy with numeric
// values converted to each field's declared type and negatives clamped to zero
// unless the field allows them. Unknown keys fail with
// ErrInvalidField, values the field cannot hold with ErrInvalidValue.
func (d EffectDefinition) normalizeParams(p Params) (Params, error) {
	out := make(Params, len(p))
	for k, v := range p {
		f, ok := d.Field(k)
		if !ok {
			return nil, fmt.Errorf("%w: %q is not a field of %s", ErrInvalidField, k, d.Type)
		}
		nv, err := normalizeValue(f, v)
		if err != nil {
			return nil, err
		}
		out[k] = nv
	}
	return out, nil
}

func normalizeValue(f FieldDefinition, v any) (any, error) {
	switch f.Control {
	case ControlDropdown:
		s, ok := v.(string)
		if !ok || !slices.Contains(f.Values, s) {
			return nil, fmt.Errorf("%w: %s = %v", ErrInvalidValue, f.Name, v)
		}
		return s, nil
	case ControlDirectionPicker, ControlRotationPicker:
		var s string
		switch d := v.(type) {
		case string:
			s = d
		case Direction:
			s = string(d)
		}
		allowed := AllDirections
		if f.Control == ControlRotationPicker {
			allowed = RotationDirections
		}
		if !validDirection(Direction(s), allowed) {
			return nil, fmt.Errorf("%w: %s = %v", ErrInvalidValue, f.Name, v)
		}
		return s, nil
	case ControlNumeric:
		var n float64
		switch x := v.(type) {
		case int:
			n = float64(x)
		case int64:
			n = float64(x)
		case float32:
			n = float64(x)
		case float64:
			n = x
		default:
			return nil, fmt.Errorf("%w: %s expects a number, got %T", ErrInvalidValue, f.Name, v)
		}
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return nil, fmt.Errorf("%w: %s is not finite", ErrInvalidValue, f.Name)
		}
		if n < 0 && !f.AllowNegative {
			n = 0
		}
		if f.Float {
			return n, nil
		}
		n = math.Trunc(n)
		if !fitsInt(n) {
			return nil, fmt.Errorf("%w: %s = %v is out of range", ErrInvalidValue, f.Name, v)
		}
		return int(n), nil
	}
	return nil, fmt.Errorf("%w: %s has unknown control %d", ErrInvalidField, f.Name, f.Control)
}

// fitsInt reports whether the integral value v converts to int without
// overflow.
func fitsInt(v float64) bool {
	return v >= math.MinInt && v < math.MaxInt
}

// EffectOption is one entry of the effect chooser.
type EffectOption struct {
	Value EffectType
	Name  string
}

// EffectRegistry is the immutable catalog of effect definitions.
type EffectRegistry struct {
	defs  map[EffectType]EffectDefinition
	order []EffectType
}

// NewEffectRegistry validates defs and builds a registry. Catalog order is
// preserved for chooser listings.
func NewEffectRegistry(defs ...EffectDefinition) (*EffectRegistry, error) {
	r := &EffectRegistry{defs: make(map[EffectType]EffectDefinition, len(defs))}
	for _, d := range defs {
		if err := validateDefinition(d); err != nil {
			return nil, err
		}
		if _, dup := r.defs[d.Type]; dup {
			return nil, fmt.Errorf("effect %q: duplicate definition", d.Type)
		}
		r.defs[d.Type] = d.clone()
		r.order = append(r.order, d.Type)
	}
	return r, nil
}

func validateDefinition(d EffectDefinition) error {
	if d.Type == "" {
		return fmt.Errorf("effect definition without type")
	}
	seen := make(map[string]bool, len(d.Fields))
	for _, f := range d.Fields {
		if f.Name == "" {
			return fmt.Errorf("effect %q: field without name", d.Type)
		}
		if seen[f.Name] {
			return fmt.Errorf("effect %q: duplicate field %q", d.Type, f.Name)
		}
		seen[f.Name] = true
		if err := validateDefault(f); err != nil {
			return fmt.Errorf("effect %q field %q: %w", d.Type, f.Name, err)
		}
	}
	return nil
}

func validateDefault(f FieldDefinition) error {
	switch f.Control {
	case ControlDropdown:
		s, ok := f.Default.(string)
		if !ok || !slices.Contains(f.Values, s) {
			return fmt.Errorf("default %v not in %v", f.Default, f.Values)
		}
	case ControlDirectionPicker, ControlRotationPicker:
		s, ok := f.Default.(string)
		allowed := AllDirections
		if f.Control == ControlRotationPicker {
			allowed = RotationDirections
		}
		if !ok || !validDirection(Direction(s), allowed) {
			return fmt.Errorf("default %v is not a valid %s value", f.Default, f.Control)
		}
	case ControlNumeric:
		var v float64
		switch n := f.Default.(type) {
		case int:
			if f.Float {
				return fmt.Errorf("float field with int default %d", n)
			}
			v = float64(n)
		case float64:
			if !f.Float {
				return fmt.Errorf("integer field with float default %v", n)
			}
			v = n
		default:
			return fmt.Errorf("numeric default has type %T", f.Default)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("non-finite default")
		}
		if v < 0 && !f.AllowNegative {
			return fmt.Errorf("negative default %v", v)
		}
	default:
		return fmt.Errorf("unknown control kind %d", f.Control)
	}
	return nil
}

// Lookup returns a copy of the definition for t.
func (r *EffectRegistry) Lookup(t EffectType) (EffectDefinition, error) {
	d, ok := r.defs[t]
	if !ok {
		return EffectDefinition{}, fmt.Errorf("%w: %q", ErrUnknownEffectType, t)
	}
	return d.clone(), nil
}

// Has reports whether t is registered.
func (r *EffectRegistry) Has(t EffectType) bool {
	_, ok := r.defs[t]
	return ok
}

// DefaultsFor returns a freshly allocated map of t's default parameters.
// Every call returns a new map; callers may mutate it freely.
func (r *EffectRegistry) DefaultsFor(t EffectType) (Params, error) {
	d, ok := r.defs[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEffectType, t)
	}
	p := make(Params, len(d.Fields))
	for _, f := range d.Fields {
		p[f.Name] = f.Default
	}
	return p, nil
}

// Types returns the effect types of family in catalog order.
func (r *EffectRegistry) Types(family EffectFamily) []EffectType {
	var out []EffectType
	for _, t := range r.order {
		if r.defs[t].Family == family {
			out = append(out, t)
		}
	}
	return out
}

// Options returns the chooser entries of family in catalog order.
func (r *EffectRegistry) Options(family EffectFamily) []EffectOption {
	types := r.Types(family)
	out := make([]EffectOption, len(types))
	for i, t := range types {
		out[i] = EffectOption{Value: t, Name: r.defs[t].Name}
	}
	return out
}

// --- Built-in catalog ---

func durationField(ms int) FieldDefinition {
	return FieldDefinition{Name: FieldDuration, Label: "Duration", Control: ControlNumeric, Default: ms, Unit: "ms"}
}

func delayField() FieldDefinition {
	return FieldDefinition{Name: FieldDelay, Label: "Delay", Control: ControlNumeric, Default: 0, Unit: "ms"}
}

func easingField(def string) FieldDefinition {
	return FieldDefinition{Name: FieldEasing, Label: "Easing", Control: ControlDropdown, Default: def, Values: Easings}
}

func directionField(name, label string, def Direction) FieldDefinition {
	return FieldDefinition{Name: name, Label: label, Control: ControlDirectionPicker, Default: string(def)}
}

func floatField(name, label string, def float64) FieldDefinition {
	return FieldDefinition{Name: name, Label: label, Control: ControlNumeric, Default: def, Float: true}
}

// BuiltinEffects returns the built-in effect catalog in chooser order.
func BuiltinEffects() []EffectDefinition {
	return []EffectDefinition{
		{Type: EffectDrop, Name: "Drop", Family: FamilyElement, Fields: []FieldDefinition{
			durationField(1600), delayField(), easingField("bounce"),
		}},
		{Type: EffectFadeIn, Name: "Fade In", Family: FamilyElement, Fields: []FieldDefinition{
			durationField(600), delayField(), easingField("ease-out"),
		}},
		{Type: EffectFlyIn, Name: "Fly In", Family: FamilyElement, Fields: []FieldDefinition{
			directionField(FieldFlyInDir, "Direction", DirLeftToRight),
			durationField(600), delayField(), easingField("ease-out"),
		}},
		{Type: EffectPan, Name: "Pan", Family: FamilyElement, Fields: []FieldDefinition{
			directionField(FieldPanDir, "Direction", DirLeftToRight),
			{Name: FieldPanAngle, Label: "Angle", Control: ControlNumeric, Default: 0, Unit: "deg", AllowNegative: true},
			durationField(2000), delayField(), easingField("linear"),
		}},
		{Type: EffectPulse, Name: "Pulse", Family: FamilyElement, Fields: []FieldDefinition{
			floatField(FieldScale, "Scale", 0.05),
			{Name: FieldIterations, Label: "Iterations", Control: ControlNumeric, Default: 1},
			durationField(800), delayField(), easingField("ease-in-out"),
		}},
		{Type: EffectRotateIn, Name: "Rotate In", Family: FamilyElement, Fields: []FieldDefinition{
			{Name: FieldRotateInDir, Label: "Rotation", Control: ControlRotationPicker, Default: string(DirLeftToRight)},
			durationField(1000), delayField(), easingField("ease-out"),
		}},
		{Type: EffectTwirlIn, Name: "Twirl In", Family: FamilyElement, Fields: []FieldDefinition{
			durationField(1000), delayField(), easingField("ease-out"),
		}},
		{Type: EffectWhooshIn, Name: "Whoosh In", Family: FamilyElement, Fields: []FieldDefinition{
			directionField(FieldWhooshInDir, "Direction", DirLeftToRight),
			durationField(600), delayField(), easingField("ease-out"),
		}},
		{Type: EffectZoom, Name: "Zoom", Family: FamilyElement, Fields: []FieldDefinition{
			floatField(FieldZoomFrom, "From", 0),
			floatField(FieldZoomTo, "To", 1),
			durationField(1000), delayField(), easingField("ease-out"),
		}},
		{Type: EffectBackgroundPan, Name: "Pan", Family: FamilyBackground, Fields: []FieldDefinition{
			directionField(FieldPanDir, "Direction", DirLeftToRight),
			durationField(2000), delayField(), easingField("linear"),
		}},
		{Type: EffectBackgroundZoom, Name: "Zoom", Family: FamilyBackground, Fields: []FieldDefinition{
			floatField(FieldScaleFrom, "Scale From", 0),
			{Name: FieldZoomDirection, Label: "Direction", Control: ControlDropdown, Default: ZoomScaleIn, Values: []string{ZoomScaleIn, ZoomScaleOut}},
			durationField(2000), delayField(), easingField("linear"),
		}},
	}
}

// DefaultEffectRegistry returns a registry holding BuiltinEffects.
func DefaultEffectRegistry() *EffectRegistry {
	r, err := NewEffectRegistry(BuiltinEffects()...)
	if err != nil {
		panic("storycanvas: " + err.Error())
	}
	return r
}
