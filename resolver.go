package storycanvas

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Control describes how one effect field is rendered and what it currently
// shows.
type Control struct {
	Field string
	Label string
	Kind  ControlKind
	Value any
	// Options lists the dropdown values.
	Options []string
	// Directions lists the picker choices.
	Directions []Direction
	Unit       string
	// Min is the lower bound of numeric input unless AllowNegative is set.
	Min           float64
	AllowNegative bool
	Float         bool
	// CommitOnChange reports whether every change is committed immediately.
	// Numeric inputs only commit when editing finishes.
	CommitOnChange bool
}

// ResolveControl returns the control for field given the instance's current
// parameters. Missing parameters show the field default.
func ResolveControl(field FieldDefinition, params Params) Control {
	c := Control{
		Field:         field.Name,
		Label:         field.Label,
		Kind:          field.Control,
		Value:         field.Default,
		Unit:          field.Unit,
		AllowNegative: field.AllowNegative,
		Float:         field.Float,
	}
	if v, ok := params[field.Name]; ok && v != nil {
		c.Value = v
	}
	switch field.Control {
	case ControlDropdown:
		c.Options = append([]string(nil), field.Values...)
		c.CommitOnChange = true
	case ControlDirectionPicker:
		c.Directions = append([]Direction(nil), AllDirections...)
		c.CommitOnChange = true
	case ControlRotationPicker:
		c.Directions = append([]Direction(nil), RotationDirections...)
		c.CommitOnChange = true
	case ControlNumeric:
		if field.AllowNegative {
			c.Min = math.Inf(-1)
		}
	}
	return c
}

// ResolveControls returns a control for every field of def, in field order.
func ResolveControls(def EffectDefinition, inst EffectInstance) []Control {
	out := make([]Control, len(def.Fields))
	for i, f := range def.Fields {
		out[i] = ResolveControl(f, inst.Params)
	}
	return out
}

// NormalizeInput turns raw user input for field into a parameter patch and
// reports whether the change should be committed. final marks the end of a
// numeric edit (blur or enter); other controls commit on every change.
func NormalizeInput(field FieldDefinition, raw any, final bool) (Params, bool, error) {
	switch field.Control {
	case ControlDropdown:
		s, err := inputString(field, raw)
		if err != nil {
			return nil, false, err
		}
		return Params{field.Name: s}, true, nil

	case ControlDirectionPicker, ControlRotationPicker:
		s, err := inputString(field, raw)
		if err != nil {
			return nil, false, err
		}
		allowed := AllDirections
		if field.Control == ControlRotationPicker {
			allowed = RotationDirections
		}
		if !validDirection(Direction(s), allowed) {
			return nil, false, fmt.Errorf("%w: %s %q", ErrInvalidValue, field.Name, s)
		}
		return Params{field.Name: s}, true, nil

	case ControlNumeric:
		v, err := parseNumeric(field, raw)
		if err != nil {
			return nil, false, err
		}
		if v <= 0 && !field.AllowNegative {
			v = 0
		}
		if field.Float {
			return Params{field.Name: v}, final, nil
		}
		return Params{field.Name: int(v)}, final, nil
	}
	return nil, false, fmt.Errorf("%w: %s has unknown control %d", ErrInvalidField, field.Name, field.Control)
}

func inputString(field FieldDefinition, raw any) (string, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case Direction:
		return string(v), nil
	default:
		return "", fmt.Errorf("%w: %s expects a string, got %T", ErrInvalidValue, field.Name, raw)
	}
}

// parseNumeric accepts numbers and numeric strings. Integer fields drop the
// fractional part the way a browser's parseInt does, including any trailing
// non-digits.
func parseNumeric(field FieldDefinition, raw any) (float64, error) {
	var v float64
	switch n := raw.(type) {
	case int:
		v = float64(n)
	case int64:
		v = float64(n)
	case float32:
		v = float64(n)
	case float64:
		v = n
	case string:
		s := strings.TrimSpace(n)
		if !field.Float {
			s = leadingInteger(s)
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s %q", ErrInvalidValue, field.Name, n)
		}
		v = f
	default:
		return 0, fmt.Errorf("%w: %s expects a number, got %T", ErrInvalidValue, field.Name, raw)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %s is not finite", ErrInvalidValue, field.Name)
	}
	if !field.Float {
		v = math.Trunc(v)
		if !fitsInt(v) {
			return 0, fmt.Errorf("%w: %s %v is out of range", ErrInvalidValue, field.Name, raw)
		}
	}
	return v, nil
}

// leadingInteger returns the optional sign and digits at the start of s.
func leadingInteger(s string) string {
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	return s[:end]
}
