package storycanvas

import (
	"errors"
	"fmt"
)

// Errors returned by the canvas core. Match with errors.Is; most are wrapped
// with the offending identifier.
var (
	ErrUnknownEffectType  = errors.New("storycanvas: unknown effect type")
	ErrInvalidField       = errors.New("storycanvas: invalid effect field")
	ErrInvalidValue       = errors.New("storycanvas: invalid field value")
	ErrStoreCommitFailed  = errors.New("storycanvas: store commit failed")
	ErrMalformedGeometry  = errors.New("storycanvas: malformed geometry")
	ErrUnknownElement     = errors.New("storycanvas: unknown element")
	ErrUnknownElementType = errors.New("storycanvas: unknown element type")
	ErrUnknownInstance    = errors.New("storycanvas: unknown effect instance")
	ErrEffectFamily       = errors.New("storycanvas: effect family does not match element")
	ErrMultiSelection     = errors.New("storycanvas: operation requires a single selected element")
	ErrNoSelection        = errors.New("storycanvas: no element selected")
	ErrNoEditSurface      = errors.New("storycanvas: element type has no edit surface")
	ErrNotMovable         = errors.New("storycanvas: element is not movable in edit mode")
	ErrGestureActive      = errors.New("storycanvas: gesture in progress")
	ErrNoGesture          = errors.New("storycanvas: no gesture in progress")
)

func errMalformed(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrMalformedGeometry}, args...)...)
}

// commitFailed wraps a store error so that both ErrStoreCommitFailed and the
// original cause match with errors.Is.
func commitFailed(op, id string, err error) error {
	return fmt.Errorf("%w: %s %q: %w", ErrStoreCommitFailed, op, id, err)
}
