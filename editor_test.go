package storycanvas

import (
	"errors"
	"io"
	"log/slog"
	"testing"
)

type recordingSink struct {
	events []CanvasEvent
}

func (r *recordingSink) Emit(ev CanvasEvent) { r.events = append(r.events, ev) }

func (r *recordingSink) types() []EventType {
	out := make([]EventType, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEditor(t *testing.T, store *MemoryStore, opts ...Option) (*Editor, *recordingSink) {
	t.Helper()
	sink := &recordingSink{}
	opts = append([]Option{WithLogger(quietLogger()), WithEventSink(sink), WithIDGenerator(seqIDs("fx"))}, opts...)
	e, err := NewEditor(nil, store, opts...)
	if err != nil {
		t.Fatal(err)
	}
	e.SetViewport(unitViewport())
	return e, sink
}

func TestEditorEndToEndResize(t *testing.T) {
	store := NewMemoryStore(Element{ID: "e1", Type: ElementImage, Geometry: Geometry{X: 0, Y: 0, Width: 100, Height: 100}})
	store.SetDeferred(true)
	e, sink := newTestEditor(t, store)

	if err := e.Select("e1"); err != nil {
		t.Fatal(err)
	}
	if err := e.Press(50, 100); err != nil {
		t.Fatal(err)
	}
	if err := e.Move(50, 150); err != nil {
		t.Fatal(err)
	}
	d, ok := e.Bus().Pending("e1")
	if !ok || d.Fields != DeltaHeight || d.Height != 150 {
		t.Fatalf("bus = %+v, want {height:150}", d)
	}
	if err := e.Release(50, 150); err != nil {
		t.Fatal(err)
	}

	p := store.Patches()
	if len(p) != 1 || p[0].ElementID != "e1" || p[0].Delta.Fields != DeltaHeight || p[0].Delta.Height != 150 {
		t.Fatalf("patches = %+v, want patchElement(e1, {height:150})", p)
	}
	if e.Controller().State() != StateCommitting {
		t.Fatalf("state = %v", e.Controller().State())
	}

	store.Flush()
	if e.Controller().State() != StateSelected {
		t.Errorf("state = %v, want selected", e.Controller().State())
	}
	if _, ok := e.Bus().Pending("e1"); ok {
		t.Error("bus entry for e1 should be cleared")
	}
	want := []EventType{EventSelectionChanged, EventGestureStart, EventGestureCommit}
	got := sink.types()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events = %v, want %v", got, want)
		}
	}
}

func TestEditorRejectsUnknownElementTypeAtStart(t *testing.T) {
	store := NewMemoryStore(Element{ID: "x", Type: "hologram"})
	if _, err := NewEditor(nil, store); !errors.Is(err, ErrUnknownElementType) {
		t.Errorf("err = %v", err)
	}
}

func TestEditorRejectsBadConfig(t *testing.T) {
	cfg := &Config{Scale: ScaleConfig{Min: 300, Max: 200}}
	if _, err := NewEditor(cfg, NewMemoryStore()); err == nil {
		t.Error("expected config error")
	}
}

func TestEditorChooseEffect(t *testing.T) {
	store := NewMemoryStore(imageElement("e"))
	e, sink := newTestEditor(t, store)
	e.Select("e")

	inst, err := e.ChooseEffect("", nil)
	if inst != nil || err != nil {
		t.Errorf("empty choice = %v, %v", inst, err)
	}

	inst, err = e.ChooseEffect(EffectFadeIn, nil)
	if err != nil {
		t.Fatal(err)
	}
	if inst.ID != "fx1" {
		t.Errorf("id = %q", inst.ID)
	}
	el, _ := store.Element("e")
	if el.Animation == nil || el.Animation.ID != "fx1" {
		t.Fatalf("animation = %+v", el.Animation)
	}
	last := sink.events[len(sink.events)-1]
	if last.Type != EventEffectAdded || last.InstanceID != "fx1" {
		t.Errorf("event = %+v", last)
	}

	if _, err := e.ChooseEffect("not-a-real-effect", nil); !errors.Is(err, ErrUnknownEffectType) {
		t.Errorf("err = %v", err)
	}
}

func TestEditorEffectOptionsByFamily(t *testing.T) {
	store := NewMemoryStore(
		Element{ID: "bg", Type: ElementImage, IsBackground: true, Geometry: Geometry{Width: 412, Height: 618}},
		imageElement("e"),
	)
	e, _ := newTestEditor(t, store)
	e.Select("bg")
	opts, _ := e.EffectOptions()
	if len(opts) != 2 {
		t.Errorf("background options = %+v", opts)
	}
	e.Select("e")
	opts, _ = e.EffectOptions()
	if len(opts) != 9 {
		t.Errorf("element options = %d", len(opts))
	}
}

func TestEditorMultiSelectionBlocksEffects(t *testing.T) {
	store := NewMemoryStore(imageElement("a"), imageElement("b"))
	e, _ := newTestEditor(t, store)
	e.Select("a", "b")
	if _, err := e.ChooseEffect(EffectDrop, nil); !errors.Is(err, ErrMultiSelection) {
		t.Errorf("err = %v", err)
	}
	if _, err := e.Controls(); !errors.Is(err, ErrMultiSelection) {
		t.Errorf("Controls err = %v", err)
	}
}

func TestEditorUpdateEffectInput(t *testing.T) {
	store := NewMemoryStore(imageElement("e"))
	e, _ := newTestEditor(t, store)
	e.Select("e")
	e.ChooseEffect(EffectFlyIn, nil)
	before := len(store.Patches())

	// Typing into a numeric field stages without committing.
	if _, err := e.UpdateEffectInput(FieldDuration, "1500", false); err != nil {
		t.Fatal(err)
	}
	if len(store.Patches()) != before {
		t.Error("numeric typing committed early")
	}
	cur, _, _ := e.CurrentEffect()
	if cur.Params[FieldDuration] != 1500 {
		t.Errorf("staged duration = %v", cur.Params[FieldDuration])
	}
	el, _ := store.Element("e")
	if el.Animation.Params[FieldDuration] != 600 {
		t.Error("store changed before commit")
	}

	// Picking a direction commits immediately, carrying the staged edit.
	if _, err := e.UpdateEffectInput(FieldFlyInDir, "bottomToTop", false); err != nil {
		t.Fatal(err)
	}
	el, _ = store.Element("e")
	if el.Animation.Params[FieldFlyInDir] != "bottomToTop" || el.Animation.Params[FieldDuration] != 1500 {
		t.Errorf("committed = %v", el.Animation.Params)
	}
	if e.Effects().LocalEditCount() != 0 {
		t.Error("local edit should be cleared after commit")
	}

	if _, err := e.UpdateEffectInput("bogus", 1, true); !errors.Is(err, ErrInvalidField) {
		t.Errorf("err = %v", err)
	}
	if _, err := e.UpdateEffectInput(FieldFlyInDir, "diagonal", true); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("err = %v", err)
	}

	controls, err := e.Controls()
	if err != nil || len(controls) != 4 || controls[0].Value != "bottomToTop" {
		t.Errorf("controls = %+v, %v", controls, err)
	}
}

func TestEditorRemoveEffect(t *testing.T) {
	store := NewMemoryStore(imageElement("e"))
	e, sink := newTestEditor(t, store)
	e.Select("e")
	e.ChooseEffect(EffectDrop, nil)
	if err := e.RemoveEffect(); err != nil {
		t.Fatal(err)
	}
	if got := e.EffectiveAnimations(); len(got) != 0 {
		t.Errorf("effective = %+v", got)
	}
	if sink.events[len(sink.events)-1].Type != EventEffectRemoved {
		t.Error("missing removal event")
	}
	if err := e.RemoveEffect(); err != nil {
		t.Errorf("removing nothing should be fine: %v", err)
	}
}

func TestEditorEffectCommitFailureNotifies(t *testing.T) {
	store := NewMemoryStore(imageElement("e"))
	var notified []error
	e, sink := newTestEditor(t, store, WithErrorHandler(func(err error) { notified = append(notified, err) }))
	e.Select("e")
	store.SetFailure(func(string) error { return errors.New("quota") })

	if _, err := e.ChooseEffect(EffectDrop, nil); err != nil {
		t.Fatal(err)
	}
	if len(notified) != 1 || !errors.Is(notified[0], ErrStoreCommitFailed) {
		t.Fatalf("notified = %v", notified)
	}
	if _, ok, _ := e.CurrentEffect(); ok {
		t.Error("failed add should leave no animation")
	}
	if sink.events[len(sink.events)-1].Type != EventCommitFailed {
		t.Error("missing failure event")
	}
	if e.Stats().CommitFailures != 1 {
		t.Errorf("stats = %+v", e.Stats())
	}
}

func TestEditorGestureFailureNotifies(t *testing.T) {
	store := NewMemoryStore(imageElement("e"))
	var notified []error
	e, _ := newTestEditor(t, store, WithErrorHandler(func(err error) { notified = append(notified, err) }))
	store.SetFailure(func(string) error { return errors.New("locked") })
	e.Select("e")
	e.Press(50, 50)
	e.Move(80, 50)
	e.Release(80, 50)
	if len(notified) != 1 {
		t.Fatalf("notified = %v", notified)
	}
	g, _ := e.Controller().LiveGeometry("e")
	if g.X != 0 {
		t.Errorf("geometry after failure = %+v", g)
	}
}

func TestEditorCloseResetsSession(t *testing.T) {
	store := NewMemoryStore(imageElement("e"))
	store.SetDeferred(true)
	e, _ := newTestEditor(t, store)
	calls := 0
	e.Bus().Subscribe("e", func(string, *TransformDelta) { calls++ })

	e.Select("e")
	e.ChooseEffect(EffectDrop, nil)
	e.Press(50, 50)
	e.Move(90, 50)
	if calls == 0 {
		t.Fatal("subscriber saw nothing")
	}
	e.Close()
	seen := calls

	if e.Bus().PendingCount() != 0 || e.Bus().SubscriberCount("e") != 0 {
		t.Error("bus not reset")
	}
	if e.Effects().LocalEditCount() != 0 {
		t.Error("local edits not reset")
	}
	if e.Controller().State() != StateIdle {
		t.Errorf("state = %v", e.Controller().State())
	}
	store.Flush()
	if calls != seen {
		t.Error("handler called after Close")
	}
	if err := e.Press(50, 50); err != nil || e.Controller().State() != StateIdle {
		t.Error("closed editor should ignore input")
	}
	e.Close()
}

func TestEditorBusIgnoresDeletedElement(t *testing.T) {
	store := NewMemoryStore(imageElement("e"))
	e, _ := newTestEditor(t, store)
	e.Select("e")
	e.Press(50, 50)
	e.Move(70, 50)
	store.RemoveElement("e")
	if err := e.Move(90, 50); err != nil {
		t.Fatal(err)
	}
	d, _ := e.Bus().Pending("e")
	if d.X == 40 {
		t.Error("publish for deleted element went through")
	}
	e.Release(90, 50)
}

func TestEditorPreview(t *testing.T) {
	store := NewMemoryStore(imageElement("e"))
	e, _ := newTestEditor(t, store)
	e.Select("e")
	if _, err := e.Preview(); !errors.Is(err, ErrUnknownInstance) {
		t.Errorf("err = %v", err)
	}
	e.ChooseEffect(EffectFadeIn, Params{FieldDuration: 100})
	p, err := e.Preview()
	if err != nil {
		t.Fatal(err)
	}
	if p.Start().Opacity != 0 {
		t.Errorf("start = %+v", p.Start())
	}
}

func TestEditorVisibleElements(t *testing.T) {
	store := NewMemoryStore(
		imageElement("near"),
		Element{ID: "far", Type: ElementShape, Geometry: Geometry{X: 300, Y: 500, Width: 50, Height: 50}},
		// Unrotated it would reach x=150; turned upright it spans x 245..255.
		Element{ID: "tilted", Type: ElementShape, Geometry: Geometry{X: 150, Y: 100, Width: 200, Height: 10, Rotation: 90}},
	)
	e, _ := newTestEditor(t, store)

	if got := len(e.VisibleElements()); got != 3 {
		t.Fatalf("visible at zoom 1 = %d", got)
	}

	// At zoom 2 the canvas shows the top-left quarter of the page: x and y
	// up to 206 and 309.
	v := e.Viewport()
	v.Zoom = 2
	e.SetViewport(v)
	var ids []string
	for _, el := range e.VisibleElements() {
		ids = append(ids, el.ID)
	}
	if len(ids) != 1 || ids[0] != "near" {
		t.Errorf("visible at zoom 2 = %v", ids)
	}
}
