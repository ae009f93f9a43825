package storycanvas

import (
	"fmt"
	"log/slog"
)

// CanvasEvent is a session event delivered to an EventSink.
type CanvasEvent struct {
	Type       EventType
	ElementID  string
	InstanceID string
	// Geometry is the element's geometry the event refers to: the start
	// geometry for gesture start, abort and failure, the committed result
	// for gesture commit.
	Geometry Geometry
	Err      error
}

// EventSink observes session events.
type EventSink interface {
	Emit(CanvasEvent)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(CanvasEvent)

// Emit calls f(ev).
func (f EventSinkFunc) Emit(ev CanvasEvent) { f(ev) }

// Option configures an Editor.
type Option func(*Editor)

// WithLogger sets the session logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Editor) { e.log = l }
}

// WithEventSink registers an observer for session events.
func WithEventSink(s EventSink) Option {
	return func(e *Editor) { e.sink = s }
}

// WithIDGenerator replaces the UUID generator used for new effect instances.
func WithIDGenerator(fn IDGenerator) Option {
	return func(e *Editor) { e.newID = fn }
}

// WithElementTypes replaces the element capability table.
func WithElementTypes(t *ElementTypes) Option {
	return func(e *Editor) { e.types = t }
}

// WithEffectRegistry replaces the effect catalog.
func WithEffectRegistry(r *EffectRegistry) Option {
	return func(e *Editor) { e.registry = r }
}

// WithErrorHandler receives every asynchronous commit failure, for example to
// show a notification.
func WithErrorHandler(fn func(error)) Option {
	return func(e *Editor) { e.onError = fn }
}

// Editor is one canvas editing session over a document store. It owns the
// session's transform bus, selection controller and local effect edits, all
// of which are discarded by Close. An Editor is not safe for concurrent use.
type Editor struct {
	cfg      *Config
	store    DocumentStore
	log      *slog.Logger
	sink     EventSink
	onError  func(error)
	types    *ElementTypes
	registry *EffectRegistry
	newID    IDGenerator

	viewport ViewportState
	bus      *TransformBus
	ctrl     *Controller
	effects  *EffectManager
	pointer  *PointerTracker
	stats    SessionStats
	closed   bool
}

// NewEditor starts a session. A nil cfg uses DefaultConfig. Every element in
// the store must have a registered type.
func NewEditor(cfg *Config, store DocumentStore, opts ...Option) (*Editor, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	} else {
		c := *cfg
		c.defaults()
		cfg = &c
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Editor{cfg: cfg, store: store}
	for _, o := range opts {
		o(e)
	}
	if e.log == nil {
		e.log = slog.Default()
	}
	if e.types == nil {
		e.types = DefaultElementTypes()
	}
	if e.registry == nil {
		e.registry = DefaultEffectRegistry()
	}
	if err := e.types.ValidateElements(store.Elements()); err != nil {
		return nil, err
	}

	e.viewport = cfg.Viewport(cfg.Page.Width)
	e.bus = NewTransformBus(
		WithElementCheck(func(id string) bool {
			_, ok := store.Element(id)
			return ok
		}),
		WithBusLogger(e.log),
	)
	e.ctrl = NewController(ControllerConfig{
		Store:   store,
		Bus:     e.bus,
		Types:   e.types,
		MinSize: cfg.Gesture.MinSize,
		Logger:  e.log,
		Emit:    e.emit,
		OnError: e.reportError,
	})
	e.effects = NewEffectManager(EffectManagerConfig{
		Registry: e.registry,
		Store:    store,
		NewID:    e.newID,
		Scale:    cfg.ScaleRange(),
		Logger:   e.log,
	})
	e.pointer = NewPointerTracker(e.ctrl, store, cfg.PointerConfig(), e.log)
	return e, nil
}

// Config returns the session configuration with defaults applied.
func (e *Editor) Config() *Config { return e.cfg }

// Store returns the document store.
func (e *Editor) Store() DocumentStore { return e.store }

// Bus returns the session's transform bus.
func (e *Editor) Bus() *TransformBus { return e.bus }

// Controller returns the selection and gesture controller.
func (e *Editor) Controller() *Controller { return e.ctrl }

// Effects returns the effect instance manager.
func (e *Editor) Effects() *EffectManager { return e.effects }

// Viewport returns the current viewport.
func (e *Editor) Viewport() ViewportState { return e.viewport }

// SetViewport replaces the viewport after a resize, zoom or scroll.
func (e *Editor) SetViewport(v ViewportState) error {
	if err := v.Validate(); err != nil {
		return err
	}
	e.viewport = v
	return nil
}

// Press forwards a pointer press in viewport pixels.
func (e *Editor) Press(x, y float64) error {
	if e.closed {
		return nil
	}
	return e.pointer.Press(x, y, e.viewport)
}

// Move forwards a pointer move in viewport pixels.
func (e *Editor) Move(x, y float64) error {
	if e.closed {
		return nil
	}
	return e.pointer.Move(x, y, e.viewport)
}

// Release forwards a pointer release in viewport pixels. Commit failures are
// reported through the error handler and the event sink.
func (e *Editor) Release(x, y float64) error {
	if e.closed {
		return nil
	}
	return e.pointer.Release(x, y, e.viewport, nil)
}

// Cancel aborts the current press, for example when pointer capture is lost.
func (e *Editor) Cancel() {
	e.pointer.Cancel()
}

// Select replaces the selection.
func (e *Editor) Select(ids ...string) error {
	return e.ctrl.Select(ids...)
}

// SelectedElement returns the single selected element. Effect editing does
// not support groups, so a multi-selection fails with ErrMultiSelection.
func (e *Editor) SelectedElement() (Element, error) {
	id, err := e.ctrl.SingleSelected()
	if err != nil {
		return Element{}, err
	}
	el, ok := e.store.Element(id)
	if !ok {
		return Element{}, fmt.Errorf("%w: %q", ErrUnknownElement, id)
	}
	return el, nil
}

// EffectOptions returns the chooser entries that apply to the selected
// element: background effects for the background, element effects otherwise.
func (e *Editor) EffectOptions() ([]EffectOption, error) {
	el, err := e.SelectedElement()
	if err != nil {
		return nil, err
	}
	if el.IsBackground {
		return e.registry.Options(FamilyBackground), nil
	}
	return e.registry.Options(FamilyElement), nil
}

// ChooseEffect attaches a new instance of t to the selected element and
// commits it. An empty choice does nothing and returns nil.
func (e *Editor) ChooseEffect(t EffectType, overrides Params) (*EffectInstance, error) {
	if t == "" {
		return nil, nil
	}
	el, err := e.SelectedElement()
	if err != nil {
		return nil, err
	}
	inst, err := e.effects.NewInstance(el, t, overrides)
	if err != nil {
		return nil, err
	}
	e.effects.Commit(el.ID, inst, func(err error) {
		e.effectDone(EventEffectAdded, el.ID, inst.ID, err)
	})
	return &inst, nil
}

// CurrentEffect returns the effective animation of the selected element.
func (e *Editor) CurrentEffect() (EffectInstance, bool, error) {
	el, err := e.SelectedElement()
	if err != nil {
		return EffectInstance{}, false, err
	}
	inst, ok := e.effects.EffectiveAnimation(el)
	return inst, ok, nil
}

// UpdateEffect applies patch to the selected element's animation. Without
// commit the change is staged locally only.
func (e *Editor) UpdateEffect(patch Params, commit bool) (EffectInstance, error) {
	el, err := e.SelectedElement()
	if err != nil {
		return EffectInstance{}, err
	}
	cur, ok := e.effects.EffectiveAnimation(el)
	if !ok {
		return EffectInstance{}, fmt.Errorf("%w: element %q has no animation", ErrUnknownInstance, el.ID)
	}
	return e.effects.UpdateInstance(el.ID, cur, patch, commit, func(err error) {
		if commit || err != nil {
			e.effectDone(EventEffectUpdated, el.ID, cur.ID, err)
		}
	})
}

// UpdateEffectInput normalizes raw control input for field and applies it.
// Pickers and dropdowns commit at once; numeric input commits when final.
func (e *Editor) UpdateEffectInput(field string, raw any, final bool) (EffectInstance, error) {
	cur, ok, err := e.CurrentEffect()
	if err != nil {
		return EffectInstance{}, err
	}
	if !ok {
		return EffectInstance{}, fmt.Errorf("%w: no animation on selection", ErrUnknownInstance)
	}
	def, err := e.registry.Lookup(cur.Type)
	if err != nil {
		return EffectInstance{}, err
	}
	f, ok := def.Field(field)
	if !ok {
		return EffectInstance{}, fmt.Errorf("%w: %q is not a field of %s", ErrInvalidField, field, cur.Type)
	}
	patch, commit, err := NormalizeInput(f, raw, final)
	if err != nil {
		return EffectInstance{}, err
	}
	return e.UpdateEffect(patch, commit)
}

// RemoveEffect removes the selected element's animation.
func (e *Editor) RemoveEffect() error {
	el, err := e.SelectedElement()
	if err != nil {
		return err
	}
	cur, ok := e.effects.EffectiveAnimation(el)
	if !ok {
		return nil
	}
	return e.effects.RemoveInstance(el.ID, cur.ID, func(err error) {
		e.effectDone(EventEffectRemoved, el.ID, cur.ID, err)
	})
}

// Controls returns the input controls for the selected element's animation,
// or nil when it has none.
func (e *Editor) Controls() ([]Control, error) {
	cur, ok, err := e.CurrentEffect()
	if err != nil || !ok {
		return nil, err
	}
	def, err := e.registry.Lookup(cur.Type)
	if err != nil {
		return nil, err
	}
	return ResolveControls(def, cur), nil
}

// VisibleElements returns the elements whose live geometry overlaps the
// visible part of the page, bottom to top.
func (e *Editor) VisibleElements() []Element {
	view := e.viewport.VisibleBounds()
	var out []Element
	for _, el := range e.store.Elements() {
		g, ok := e.ctrl.LiveGeometry(el.ID)
		if !ok || !g.Bounds().Intersects(view) {
			continue
		}
		out = append(out, el)
	}
	return out
}

// EffectiveAnimations returns the page's animations with this session's
// staged edits applied.
func (e *Editor) EffectiveAnimations() []EffectInstance {
	return e.effects.Reconcile()
}

// Preview builds an in-editor preview of the selected element's animation.
func (e *Editor) Preview() (*EffectPreview, error) {
	el, err := e.SelectedElement()
	if err != nil {
		return nil, err
	}
	inst, ok := e.effects.EffectiveAnimation(el)
	if !ok {
		return nil, fmt.Errorf("%w: element %q has no animation", ErrUnknownInstance, el.ID)
	}
	g, _ := e.ctrl.LiveGeometry(el.ID)
	return NewEffectPreview(inst, g, e.viewport.PageWidth, e.viewport.PageHeight), nil
}

// Close tears the session down: pending deltas, subscriptions, staged edits
// and the selection are dropped, and completions of requests still in flight
// are ignored.
func (e *Editor) Close() {
	if e.closed {
		return
	}
	e.closed = true
	e.pointer.Cancel()
	e.bus.Reset()
	e.effects.Reset()
	e.ctrl.Reset()
	e.debugLog()
}

func (e *Editor) effectDone(t EventType, elementID, instanceID string, err error) {
	if err != nil {
		e.emit(CanvasEvent{Type: EventCommitFailed, ElementID: elementID, InstanceID: instanceID, Err: err})
		e.reportError(err)
		return
	}
	e.emit(CanvasEvent{Type: t, ElementID: elementID, InstanceID: instanceID})
}

func (e *Editor) emit(ev CanvasEvent) {
	e.stats.record(ev)
	if e.sink != nil {
		e.sink.Emit(ev)
	}
}

func (e *Editor) reportError(err error) {
	if e.onError != nil {
		e.onError(err)
	}
}
