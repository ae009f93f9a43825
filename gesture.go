package storycanvas

import (
	"fmt"
	"log/slog"
	"math"
	"slices"
)

// GestureState is the controller's interaction state.
type GestureState uint8

const (
	StateIdle       GestureState = iota // nothing selected
	StateSelected                       // selection shows committed geometry
	StateEditing                        // gesture in progress, geometry lives on the bus
	StateCommitting                     // final delta sent to the store, awaiting completion
)

// String returns the state name used in logs.
func (s GestureState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSelected:
		return "selected"
	case StateEditing:
		return "editing"
	case StateCommitting:
		return "committing"
	default:
		return "unknown"
	}
}

// GestureInput is a pointer sample for an active gesture, in viewport pixels.
// StartX/StartY is where the gesture began; X/Y is the current position.
type GestureInput struct {
	StartX, StartY float64
	X, Y           float64
}

// ControllerConfig configures a Controller. Store and Bus are required.
type ControllerConfig struct {
	Store DocumentStore
	Bus   *TransformBus
	Types *ElementTypes
	// MinSize is the smallest width or height a resize may produce, in
	// document units.
	MinSize float64
	Logger  *slog.Logger
	// Emit receives session events. May be nil.
	Emit func(CanvasEvent)
	// OnError receives commit failures in addition to the EndGesture
	// callback. May be nil.
	OnError func(error)
}

// DefaultMinSize is the default minimum element size during resize.
const DefaultMinSize = 1.0

type activeGesture struct {
	elementID string
	kind      GestureKind
	handle    ResizeHandle
	start     Geometry
	delta     TransformDelta
}

// Controller tracks the selection and turns gestures into live bus deltas and,
// on release, a single store mutation.
type Controller struct {
	store   DocumentStore
	bus     *TransformBus
	types   *ElementTypes
	minSize float64
	log     *slog.Logger
	emit    func(CanvasEvent)
	onError func(error)

	state      GestureState
	selected   []string
	editMode   bool
	gesture    *activeGesture
	committing *activeGesture
	epoch      uint64
}

// NewController creates an idle controller.
func NewController(cfg ControllerConfig) *Controller {
	c := &Controller{
		store:   cfg.Store,
		bus:     cfg.Bus,
		types:   cfg.Types,
		minSize: cfg.MinSize,
		log:     cfg.Logger,
		emit:    cfg.Emit,
		onError: cfg.OnError,
	}
	if c.types == nil {
		c.types = DefaultElementTypes()
	}
	if c.minSize <= 0 {
		c.minSize = DefaultMinSize
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	return c
}

// State returns the current state.
func (c *Controller) State() GestureState {
	return c.state
}

// Selected returns the selected element IDs.
func (c *Controller) Selected() []string {
	return slices.Clone(c.selected)
}

// SingleSelected returns the only selected element's ID.
func (c *Controller) SingleSelected() (string, error) {
	switch len(c.selected) {
	case 0:
		return "", ErrNoSelection
	case 1:
		return c.selected[0], nil
	default:
		return "", ErrMultiSelection
	}
}

// IsSelected reports whether id is part of the selection.
func (c *Controller) IsSelected(id string) bool {
	return slices.Contains(c.selected, id)
}

// EditMode reports whether the selected element shows its edit surface.
func (c *Controller) EditMode() bool {
	return c.editMode
}

// Select replaces the selection. An active gesture is aborted and edit mode
// ends. Selecting nothing returns to StateIdle.
func (c *Controller) Select(ids ...string) error {
	for _, id := range ids {
		el, ok := c.store.Element(id)
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownElement, id)
		}
		if _, err := c.types.Lookup(el.Type); err != nil {
			return fmt.Errorf("element %q: %w", id, err)
		}
	}
	if c.gesture != nil {
		c.AbortGesture()
	}
	c.editMode = false
	c.selected = c.selected[:0:0]
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			c.selected = append(c.selected, id)
		}
	}
	if c.state != StateCommitting {
		c.state = c.restingState()
	}
	c.fire(CanvasEvent{Type: EventSelectionChanged, ElementID: c.firstSelected()})
	return nil
}

// Deselect clears the selection.
func (c *Controller) Deselect() {
	_ = c.Select()
}

func (c *Controller) firstSelected() string {
	if len(c.selected) == 0 {
		return ""
	}
	return c.selected[0]
}

func (c *Controller) restingState() GestureState {
	if len(c.selected) == 0 {
		return StateIdle
	}
	return StateSelected
}

// EnterEditMode shows the edit surface of the single selected element.
func (c *Controller) EnterEditMode() error {
	id, err := c.SingleSelected()
	if err != nil {
		return err
	}
	caps, err := c.capabilities(id)
	if err != nil {
		return err
	}
	if !caps.HasEditSurface {
		return fmt.Errorf("%w: element %q", ErrNoEditSurface, id)
	}
	c.editMode = true
	return nil
}

// ExitEditMode hides the edit surface.
func (c *Controller) ExitEditMode() {
	c.editMode = false
}

// CanMove reports whether geometry handles are active for id in the current
// mode.
func (c *Controller) CanMove(id string) bool {
	if !c.editMode {
		return true
	}
	caps, err := c.capabilities(id)
	return err == nil && caps.HasEditModeMovable
}

func (c *Controller) capabilities(id string) (EditCapability, error) {
	el, ok := c.store.Element(id)
	if !ok {
		return EditCapability{}, fmt.Errorf("%w: %q", ErrUnknownElement, id)
	}
	return c.types.Lookup(el.Type)
}

// BeginGesture starts a gesture on the single selected element. In edit mode
// it fails with ErrNotMovable for types whose edit surface replaces the
// handles.
func (c *Controller) BeginGesture(kind GestureKind, handle ResizeHandle) error {
	switch c.state {
	case StateIdle:
		return ErrNoSelection
	case StateEditing, StateCommitting:
		return ErrGestureActive
	}
	id, err := c.SingleSelected()
	if err != nil {
		return err
	}
	if kind == GestureResize && handle == HandleNone {
		return fmt.Errorf("%w: resize needs a handle", ErrInvalidValue)
	}
	el, ok := c.store.Element(id)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownElement, id)
	}
	if !c.CanMove(id) {
		return fmt.Errorf("%w: %q", ErrNotMovable, id)
	}
	c.gesture = &activeGesture{elementID: id, kind: kind, handle: handle, start: el.Geometry}
	c.state = StateEditing
	c.fire(CanvasEvent{Type: EventGestureStart, ElementID: id, Geometry: el.Geometry})
	return nil
}

// ActiveGesture returns the element and kind of the gesture in progress.
func (c *Controller) ActiveGesture() (elementID string, kind GestureKind, ok bool) {
	if c.gesture == nil {
		return "", 0, false
	}
	return c.gesture.elementID, c.gesture.kind, true
}

// UpdateGesture publishes delta as the gesture's pending transform. delta
// holds absolute values relative to the committed geometry; an empty delta
// clears the pending entry.
func (c *Controller) UpdateGesture(delta TransformDelta) error {
	g := c.gesture
	if g == nil || c.state != StateEditing {
		return ErrNoGesture
	}
	if err := delta.Apply(g.start).Validate(); err != nil {
		return err
	}
	g.delta = delta
	if delta.IsEmpty() {
		c.bus.Clear(g.elementID)
		return nil
	}
	c.bus.Publish(g.elementID, delta)
	return nil
}

// ApplyPointer derives the gesture's geometry from a pointer sample and
// publishes the fields that differ from the committed geometry.
func (c *Controller) ApplyPointer(in GestureInput, v ViewportState) error {
	g := c.gesture
	if g == nil || c.state != StateEditing {
		return ErrNoGesture
	}
	if err := v.Validate(); err != nil {
		return err
	}
	sx, sy := v.ToDocumentPoint(in.StartX, in.StartY)
	x, y := v.ToDocumentPoint(in.X, in.Y)

	var target Geometry
	switch g.kind {
	case GestureMove:
		target = g.start
		target.X += x - sx
		target.Y += y - sy
	case GestureResize:
		target = resizeGeometry(g.start, g.handle, x-sx, y-sy, c.minSize)
	case GestureRotate:
		target = rotateGeometry(g.start, sx, sy, x, y)
	}
	return c.UpdateGesture(DiffGeometry(g.start, target, Epsilon))
}

// resizeGeometry drags handle by (dx, dy) document units. The drag is
// measured in the element's rotated frame and the opposite edge or corner
// stays where it was.
func resizeGeometry(start Geometry, handle ResizeHandle, dx, dy, minSize float64) Geometry {
	ax, ay := handle.axes()
	lx, ly := rotateVector(dx, dy, -start.Rotation)

	w, h := start.Width, start.Height
	if ax != 0 {
		w = math.Max(minSize, start.Width+ax*lx)
	}
	if ay != 0 {
		h = math.Max(minSize, start.Height+ay*ly)
	}

	// Anchor in local space: the far side for each moved axis, the middle
	// for an axis the handle leaves alone.
	anchorX, anchorY := fromLocal(start, (1-ax)/2*start.Width, (1-ay)/2*start.Height)

	ox, oy := rotateVector((1-ax)/2*w-w/2, (1-ay)/2*h-h/2, start.Rotation)
	cx, cy := anchorX-ox, anchorY-oy
	return Geometry{X: cx - w/2, Y: cy - h/2, Width: w, Height: h, Rotation: start.Rotation}
}

// rotateGeometry turns start around its center by the angle swept from
// (sx, sy) to (x, y).
func rotateGeometry(start Geometry, sx, sy, x, y float64) Geometry {
	c := start.Center()
	a0 := math.Atan2(sy-c.Y, sx-c.X)
	a1 := math.Atan2(y-c.Y, x-c.X)
	out := start
	out.Rotation = normalizeDegrees(start.Rotation + (a1-a0)*180/math.Pi)
	return out
}

// EndGesture folds the pending delta into one store mutation. A gesture that
// changed nothing writes nothing. On failure the committed geometry is
// published as a revert before the entry is cleared, and the error reaches
// both done and the OnError callback. done may be nil.
func (c *Controller) EndGesture(done func(error)) error {
	g := c.gesture
	if g == nil || c.state != StateEditing {
		return ErrNoGesture
	}
	c.gesture = nil
	if g.delta.IsEmpty() {
		c.bus.Clear(g.elementID)
		c.state = c.restingState()
		c.fire(CanvasEvent{Type: EventGestureCommit, ElementID: g.elementID, Geometry: g.start})
		if done != nil {
			done(nil)
		}
		return nil
	}

	c.state = StateCommitting
	c.committing = g
	epoch := c.epoch
	c.store.PatchElement(g.elementID, g.delta, func(err error) {
		c.completeCommit(epoch, g, err, done)
	})
	return nil
}

func (c *Controller) completeCommit(epoch uint64, g *activeGesture, err error, done func(error)) {
	if epoch != c.epoch {
		c.log.Debug("gesture commit completed after reset", "element", g.elementID)
		return
	}
	if c.committing == g {
		c.committing = nil
		c.state = c.restingState()
	}
	if err != nil {
		err = commitFailed("patch element", g.elementID, err)
		c.bus.Publish(g.elementID, fullDelta(g.start))
		c.bus.Clear(g.elementID)
		c.log.Error("gesture commit failed", "element", g.elementID, "kind", g.kind.String(), "err", err)
		c.fire(CanvasEvent{Type: EventCommitFailed, ElementID: g.elementID, Geometry: g.start, Err: err})
		if c.onError != nil {
			c.onError(err)
		}
	} else {
		c.bus.Clear(g.elementID)
		c.fire(CanvasEvent{Type: EventGestureCommit, ElementID: g.elementID, Geometry: g.delta.Apply(g.start)})
	}
	if done != nil {
		done(err)
	}
}

// AbortGesture cancels the gesture in progress without writing anything.
// It reports whether a gesture was aborted; calling it again is harmless.
func (c *Controller) AbortGesture() bool {
	g := c.gesture
	if g == nil {
		return false
	}
	c.gesture = nil
	c.bus.Clear(g.elementID)
	c.state = c.restingState()
	c.log.Debug("gesture aborted", "element", g.elementID, "kind", g.kind.String())
	c.fire(CanvasEvent{Type: EventGestureAbort, ElementID: g.elementID, Geometry: g.start})
	return true
}

// LiveGeometry returns what the element looks like right now: its committed
// geometry with any pending bus delta applied.
func (c *Controller) LiveGeometry(id string) (Geometry, bool) {
	el, ok := c.store.Element(id)
	if !ok {
		return Geometry{}, false
	}
	if d, ok := c.bus.Pending(id); ok {
		return d.Apply(el.Geometry), true
	}
	return el.Geometry, true
}

// Reset returns to StateIdle and ignores completions of commits in flight.
func (c *Controller) Reset() {
	c.gesture = nil
	c.committing = nil
	c.selected = nil
	c.editMode = false
	c.state = StateIdle
	c.epoch++
}

func (c *Controller) fire(ev CanvasEvent) {
	if c.emit != nil {
		c.emit(ev)
	}
}
