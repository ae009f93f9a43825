package storycanvas

import "math"

// Color represents an RGBA color with components in [0, 1]. Not premultiplied.
type Color struct {
	R, G, B, A float64
}

// ColorWhite is the default tint.
var ColorWhite = Color{1, 1, 1, 1}

// Vec2 is a 2D vector used for points, offsets and sizes.
type Vec2 struct {
	X, Y float64
}

// Rect is an axis-aligned rectangle. The coordinate system has its origin at
// the top-left, with Y increasing downward.
type Rect struct {
	X, Y, Width, Height float64
}

// Contains reports whether the point (x, y) lies inside the rectangle.
// Points on the edge are considered inside.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width &&
		y >= r.Y && y <= r.Y+r.Height
}

// Intersects reports whether r and other overlap.
// Adjacent rectangles (sharing only an edge) are considered intersecting.
func (r Rect) Intersects(other Rect) bool {
	return r.X <= other.X+other.Width &&
		r.X+r.Width >= other.X &&
		r.Y <= other.Y+other.Height &&
		r.Y+r.Height >= other.Y
}

// Geometry is the placement of an element. In document space the values are
// resolution-independent page units; in viewport space they are pixels.
// Rotation is in degrees, clockwise, around the element's center.
type Geometry struct {
	X, Y          float64
	Width, Height float64
	Rotation      float64
}

// Rect returns the unrotated bounding rectangle.
func (g Geometry) Rect() Rect {
	return Rect{X: g.X, Y: g.Y, Width: g.Width, Height: g.Height}
}

// Center returns the rotation pivot.
func (g Geometry) Center() Vec2 {
	return Vec2{X: g.X + g.Width/2, Y: g.Y + g.Height/2}
}

// Bounds returns the axis-aligned bounds of the rotated frame.
func (g Geometry) Bounds() Rect {
	return boundingBox(g)
}

// Validate rejects non-finite values and negative dimensions.
func (g Geometry) Validate() error {
	for _, v := range [...]float64{g.X, g.Y, g.Width, g.Height, g.Rotation} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errMalformed("non-finite value in %+v", g)
		}
	}
	if g.Width < 0 || g.Height < 0 {
		return errMalformed("negative dimension %vx%v", g.Width, g.Height)
	}
	return nil
}

// approxEqual reports whether a and b differ by less than eps.
func approxEqual(a, b, eps float64) bool {
	return math.Abs(a-b) < eps
}

// normalizeDegrees maps an angle into [0, 360).
func normalizeDegrees(d float64) float64 {
	d = math.Mod(d, 360)
	if d < 0 {
		d += 360
	}
	return d
}

// EventType identifies a kind of session event delivered to an EventSink.
type EventType uint8

const (
	EventSelectionChanged EventType = iota // selection set replaced
	EventGestureStart                      // controller entered StateEditing
	EventGestureCommit                     // store accepted the gesture's patch
	EventGestureAbort                      // gesture cancelled, nothing written
	EventCommitFailed                      // store rejected a geometry or animation patch
	EventEffectAdded                       // new effect instance committed
	EventEffectUpdated                     // effect instance edited (staged or committed)
	EventEffectRemoved                     // effect instance removal committed
)

// String returns the event name used in logs.
func (t EventType) String() string {
	switch t {
	case EventSelectionChanged:
		return "selection-changed"
	case EventGestureStart:
		return "gesture-start"
	case EventGestureCommit:
		return "gesture-commit"
	case EventGestureAbort:
		return "gesture-abort"
	case EventCommitFailed:
		return "commit-failed"
	case EventEffectAdded:
		return "effect-added"
	case EventEffectUpdated:
		return "effect-updated"
	case EventEffectRemoved:
		return "effect-removed"
	default:
		return "unknown"
	}
}

// GestureKind selects how pointer movement maps onto geometry.
type GestureKind uint8

const (
	GestureMove   GestureKind = iota // translate X and Y
	GestureResize                    // drag an edge or corner handle
	GestureRotate                    // drag the rotation handle
)

// String returns the gesture name used in logs and scripts.
func (k GestureKind) String() string {
	switch k {
	case GestureMove:
		return "move"
	case GestureResize:
		return "resize"
	case GestureRotate:
		return "rotate"
	default:
		return "unknown"
	}
}

// ResizeHandle identifies one of the eight resize handles on the selection
// frame. HandleNone is used for move and rotate gestures.
type ResizeHandle uint8

const (
	HandleNone ResizeHandle = iota
	HandleN
	HandleNE
	HandleE
	HandleSE
	HandleS
	HandleSW
	HandleW
	HandleNW
)

// axes returns the handle's horizontal and vertical direction in element
// local space: -1 for the west/north side, +1 for east/south, 0 when the
// handle does not move that axis.
func (h ResizeHandle) axes() (sx, sy float64) {
	switch h {
	case HandleN:
		return 0, -1
	case HandleNE:
		return 1, -1
	case HandleE:
		return 1, 0
	case HandleSE:
		return 1, 1
	case HandleS:
		return 0, 1
	case HandleSW:
		return -1, 1
	case HandleW:
		return -1, 0
	case HandleNW:
		return -1, -1
	default:
		return 0, 0
	}
}

// resizeHandles lists the handles in hit-test order.
var resizeHandles = [...]ResizeHandle{HandleNW, HandleN, HandleNE, HandleE, HandleSE, HandleS, HandleSW, HandleW}

// Direction is a value accepted by direction and rotation pickers.
type Direction string

const (
	DirTopToBottom Direction = "topToBottom"
	DirBottomToTop Direction = "bottomToTop"
	DirLeftToRight Direction = "leftToRight"
	DirRightToLeft Direction = "rightToLeft"
)

// AllDirections is the option set of a direction picker.
var AllDirections = []Direction{DirTopToBottom, DirBottomToTop, DirLeftToRight, DirRightToLeft}

// RotationDirections is the option set of a rotation picker.
var RotationDirections = []Direction{DirLeftToRight, DirRightToLeft}

func validDirection(d Direction, allowed []Direction) bool {
	for _, a := range allowed {
		if a == d {
			return true
		}
	}
	return false
}
