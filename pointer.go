package storycanvas

import (
	"log/slog"
	"math"
)

// Pointer defaults in viewport pixels.
const (
	DefaultDragDeadZone       = 4.0
	DefaultHandleSize         = 12.0
	DefaultRotateHandleOffset = 24.0
)

// PointerConfig tunes pointer hit-testing. Values are viewport pixels.
type PointerConfig struct {
	// DragDeadZone is how far the pointer must travel after a press before a
	// gesture starts.
	DragDeadZone float64
	// HandleSize is the side of the square hit area around each handle.
	HandleSize float64
	// RotateHandleOffset is the distance of the rotation handle above the
	// top edge of the frame.
	RotateHandleOffset float64
}

func (c PointerConfig) withDefaults() PointerConfig {
	if c.DragDeadZone <= 0 {
		c.DragDeadZone = DefaultDragDeadZone
	}
	if c.HandleSize <= 0 {
		c.HandleSize = DefaultHandleSize
	}
	if c.RotateHandleOffset <= 0 {
		c.RotateHandleOffset = DefaultRotateHandleOffset
	}
	return c
}

// HandlePoint is a handle position in viewport pixels.
type HandlePoint struct {
	Handle ResizeHandle
	// Rotate marks the rotation handle; Handle is HandleNone for it.
	Rotate bool
	X, Y   float64
}

// Handles returns the resize handles and the rotation handle of a frame
// given in viewport pixels, in hit-test order.
func Handles(px Geometry, rotateOffset float64) []HandlePoint {
	out := make([]HandlePoint, 0, len(resizeHandles)+1)
	x, y := fromLocal(px, px.Width/2, -rotateOffset)
	out = append(out, HandlePoint{Rotate: true, X: x, Y: y})
	for _, h := range resizeHandles {
		ax, ay := h.axes()
		x, y := fromLocal(px, (1+ax)/2*px.Width, (1+ay)/2*px.Height)
		out = append(out, HandlePoint{Handle: h, X: x, Y: y})
	}
	return out
}

// PointerTracker turns raw pointer samples into selection changes and
// gestures on a Controller. It tracks a single pointer.
type PointerTracker struct {
	ctrl  *Controller
	store DocumentStore
	cfg   PointerConfig
	log   *slog.Logger

	down           bool
	startX, startY float64
	lastX, lastY   float64
	target         string
	kind           GestureKind
	handle         ResizeHandle
	dragging       bool
	wasSelected    bool
	rejected       bool
}

// NewPointerTracker creates a tracker driving ctrl.
func NewPointerTracker(ctrl *Controller, store DocumentStore, cfg PointerConfig, log *slog.Logger) *PointerTracker {
	if log == nil {
		log = slog.Default()
	}
	return &PointerTracker{ctrl: ctrl, store: store, cfg: cfg.withDefaults(), log: log}
}

// Dragging reports whether the current press has turned into a gesture.
func (p *PointerTracker) Dragging() bool {
	return p.dragging
}

// Press handles a pointer press at viewport pixel (x, y). A press on a handle
// of the selected element arms a resize or rotate; a press on an element
// selects it and arms a move; a press on empty canvas clears the selection.
func (p *PointerTracker) Press(x, y float64, v ViewportState) error {
	if p.down {
		return nil
	}
	p.down = true
	p.startX, p.startY = x, y
	p.lastX, p.lastY = x, y
	p.dragging = false
	p.rejected = false
	p.kind = GestureMove
	p.handle = HandleNone
	p.target = ""

	if id, h, rotate, ok := p.hitHandle(x, y, v); ok {
		p.target = id
		p.wasSelected = true
		if rotate {
			p.kind = GestureRotate
		} else {
			p.kind = GestureResize
			p.handle = h
		}
		return nil
	}

	id, ok := p.hitElement(x, y, v)
	if !ok {
		p.wasSelected = false
		if len(p.ctrl.Selected()) == 0 {
			return nil
		}
		return p.ctrl.Select()
	}
	p.target = id
	sel := p.ctrl.Selected()
	p.wasSelected = len(sel) == 1 && sel[0] == id
	if p.wasSelected {
		return nil
	}
	return p.ctrl.Select(id)
}

// Move handles pointer movement. Once the pointer leaves the dead zone the
// armed gesture begins and every later sample updates it.
func (p *PointerTracker) Move(x, y float64, v ViewportState) error {
	if !p.down || p.target == "" || p.rejected {
		return nil
	}
	if x == p.lastX && y == p.lastY {
		return nil
	}
	p.lastX, p.lastY = x, y
	if !p.dragging {
		dx := x - p.startX
		dy := y - p.startY
		if math.Sqrt(dx*dx+dy*dy) <= p.cfg.DragDeadZone {
			return nil
		}
		if err := p.ctrl.BeginGesture(p.kind, p.handle); err != nil {
			p.rejected = true
			p.log.Debug("gesture not started", "element", p.target, "kind", p.kind.String(), "err", err)
			return err
		}
		p.dragging = true
	}
	return p.ctrl.ApplyPointer(GestureInput{StartX: p.startX, StartY: p.startY, X: x, Y: y}, v)
}

// Release ends the press. A gesture is committed through the store and done
// receives the outcome. A click without movement on an element that was
// already selected opens its edit surface.
func (p *PointerTracker) Release(x, y float64, v ViewportState, done func(error)) error {
	if !p.down {
		return nil
	}
	defer p.reset()
	if p.dragging {
		if err := p.Move(x, y, v); err != nil {
			p.ctrl.AbortGesture()
			return err
		}
		return p.ctrl.EndGesture(done)
	}
	if p.wasSelected && p.kind == GestureMove && p.target != "" && !p.rejected {
		if err := p.ctrl.EnterEditMode(); err != nil {
			p.log.Debug("edit mode unavailable", "element", p.target, "err", err)
		}
	}
	return nil
}

// Cancel drops the press, aborting any gesture. Used when pointer capture is
// lost.
func (p *PointerTracker) Cancel() {
	if p.dragging {
		p.ctrl.AbortGesture()
	}
	p.reset()
}

func (p *PointerTracker) reset() {
	p.down = false
	p.dragging = false
	p.rejected = false
	p.target = ""
	p.handle = HandleNone
}

// hitHandle tests the handles of the single selected element.
func (p *PointerTracker) hitHandle(x, y float64, v ViewportState) (string, ResizeHandle, bool, bool) {
	id, err := p.ctrl.SingleSelected()
	if err != nil || !p.ctrl.CanMove(id) {
		return "", HandleNone, false, false
	}
	g, ok := p.ctrl.LiveGeometry(id)
	if !ok {
		return "", HandleNone, false, false
	}
	px, err := ToViewport(g, v)
	if err != nil {
		return "", HandleNone, false, false
	}
	half := p.cfg.HandleSize / 2
	for _, h := range Handles(px, p.cfg.RotateHandleOffset) {
		if math.Abs(x-h.X) <= half && math.Abs(y-h.Y) <= half {
			return id, h.Handle, h.Rotate, true
		}
	}
	return "", HandleNone, false, false
}

// hitElement returns the topmost element under the pixel (x, y).
func (p *PointerTracker) hitElement(x, y float64, v ViewportState) (string, bool) {
	dx, dy := v.ToDocumentPoint(x, y)
	elements := p.store.Elements()
	for i := len(elements) - 1; i >= 0; i-- {
		id := elements[i].ID
		g, ok := p.ctrl.LiveGeometry(id)
		if !ok {
			continue
		}
		if containsPoint(g, dx, dy) {
			return id, true
		}
	}
	return "", false
}
