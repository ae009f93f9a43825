package storycanvas

import (
	"errors"
	"fmt"
	"math"
	"testing"
)

// seqIDs returns a deterministic IDGenerator.
func seqIDs(prefix string) IDGenerator {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s%d", prefix, n)
	}
}

func newTestManager(store DocumentStore, scale ScaleRange) *EffectManager {
	return NewEffectManager(EffectManagerConfig{Store: store, NewID: seqIDs("fx"), Scale: scale})
}

func TestReconcilePrecedence(t *testing.T) {
	committed := []EffectInstance{
		{ID: "a", Type: EffectZoom, Params: Params{"x": 1}},
		{ID: "b", Type: EffectZoom, Params: Params{"x": 5}},
	}

	got := Reconcile(committed, map[string]EffectInstance{
		"a": {ID: "a", Type: EffectZoom, Params: Params{"x": 2}},
	})
	if len(got) != 2 || got[0].ID != "a" || got[0].Params["x"] != 2 || got[1].ID != "b" {
		t.Errorf("Reconcile = %+v", got)
	}

	got = Reconcile(committed, map[string]EffectInstance{
		"a": {ID: "a", Type: EffectZoom, Params: Params{"x": 2}, Delete: true},
	})
	if len(got) != 1 || got[0].ID != "b" {
		t.Errorf("deleted local edit still present: %+v", got)
	}
}

func TestReconcileDropsCommittedDeletesAndKeepsOrder(t *testing.T) {
	committed := []EffectInstance{{ID: "c"}, {ID: "a", Delete: true}, {ID: "b"}}
	got := Reconcile(committed, map[string]EffectInstance{"b": {ID: "b", Type: EffectDrop}, "zzz": {ID: "zzz"}})
	if len(got) != 2 || got[0].ID != "c" || got[1].ID != "b" || got[1].Type != EffectDrop {
		t.Errorf("Reconcile = %+v", got)
	}
}

func TestCreateInstanceMergesDefaults(t *testing.T) {
	m := newTestManager(NewMemoryStore(), ScaleRange{})
	el := Element{ID: "e", Type: ElementImage}
	inst, err := m.NewInstance(el, EffectFlyIn, Params{FieldDuration: 1200})
	if err != nil {
		t.Fatal(err)
	}
	if inst.ID != "fx1" || inst.Type != EffectFlyIn {
		t.Errorf("instance = %+v", inst)
	}
	if inst.Params[FieldDuration] != 1200 || inst.Params[FieldFlyInDir] != string(DirLeftToRight) || inst.Params[FieldEasing] != "ease-out" {
		t.Errorf("params = %v", inst.Params)
	}

	other, _ := m.NewInstance(el, EffectFlyIn, nil)
	other.Params[FieldDuration] = 1
	if inst.Params[FieldDuration] != 1200 {
		t.Error("instances share a parameter map")
	}
	if other.ID == inst.ID {
		t.Error("instance IDs must be fresh")
	}
}

func TestCreateInstanceClampsNegativeNumeric(t *testing.T) {
	m := newTestManager(NewMemoryStore(), ScaleRange{})
	inst, err := m.NewInstance(Element{ID: "e", Type: ElementImage}, EffectFadeIn, Params{FieldDuration: -500})
	if err != nil {
		t.Fatal(err)
	}
	if inst.Params[FieldDuration] != 0 {
		t.Errorf("duration = %#v, want 0", inst.Params[FieldDuration])
	}
}

func TestCreateInstanceUnknownType(t *testing.T) {
	store := NewMemoryStore(Element{ID: "e", Type: ElementImage})
	m := newTestManager(store, ScaleRange{})
	el, _ := store.Element("e")
	if _, err := m.AddEffect(el, "not-a-real-effect", Params{}, nil); !errors.Is(err, ErrUnknownEffectType) {
		t.Fatalf("err = %v, want ErrUnknownEffectType", err)
	}
	if len(store.Patches()) != 0 || m.LocalEditCount() != 0 {
		t.Error("rejected creation must not produce an instance")
	}
}

func TestCreateInstanceInvalidOverride(t *testing.T) {
	m := newTestManager(NewMemoryStore(), ScaleRange{})
	_, err := m.NewInstance(Element{ID: "e"}, EffectDrop, Params{"bogus": 1})
	if !errors.Is(err, ErrInvalidField) {
		t.Errorf("err = %v, want ErrInvalidField", err)
	}
}

func TestCreateInstanceFamilyMismatch(t *testing.T) {
	m := newTestManager(NewMemoryStore(), ScaleRange{})
	if _, err := m.NewInstance(Element{ID: "bg", IsBackground: true}, EffectDrop, nil); !errors.Is(err, ErrEffectFamily) {
		t.Errorf("element effect on background: err = %v", err)
	}
	if _, err := m.NewInstance(Element{ID: "e"}, EffectBackgroundZoom, nil); !errors.Is(err, ErrEffectFamily) {
		t.Errorf("background effect on element: err = %v", err)
	}
}

func TestBackgroundZoomDerivation(t *testing.T) {
	scale := ScaleRange{Min: 100, Max: 500, Clamp: true}
	tests := []struct {
		name  string
		scale float64
		want  float64
	}{
		{"midpoint", 300, 0.5},
		{"minimum", 100, 0},
		{"maximum", 500, 1},
		{"below range clamps", 50, 0},
		{"above range clamps", 900, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestManager(NewMemoryStore(), scale)
			bg := Element{ID: "bg", IsBackground: true, BackgroundScale: tt.scale}
			inst, err := m.NewInstance(bg, EffectBackgroundZoom, nil)
			if err != nil {
				t.Fatal(err)
			}
			got, _ := inst.Params.Float(FieldScaleFrom)
			assertNear(t, "scaleFrom", got, tt.want)
		})
	}
}

func TestBackgroundZoomWithoutClamp(t *testing.T) {
	m := newTestManager(NewMemoryStore(), ScaleRange{Min: 100, Max: 500})
	inst, _ := m.NewInstance(Element{ID: "bg", IsBackground: true, BackgroundScale: 700}, EffectBackgroundZoom, nil)
	got, _ := inst.Params.Float(FieldScaleFrom)
	assertNear(t, "scaleFrom", got, 1.5)
}

func TestBackgroundZoomNonFiniteKeepsDefault(t *testing.T) {
	m := newTestManager(NewMemoryStore(), ScaleRange{Min: 100, Max: 100, Clamp: true})
	inst, _ := m.NewInstance(Element{ID: "bg", IsBackground: true, BackgroundScale: 100}, EffectBackgroundZoom, nil)
	if inst.Params[FieldScaleFrom] != 0.0 {
		t.Errorf("scaleFrom = %v, want registry default 0", inst.Params[FieldScaleFrom])
	}

	m = newTestManager(NewMemoryStore(), ScaleRange{Min: 100, Max: 500, Clamp: true})
	inst, _ = m.NewInstance(Element{ID: "bg", IsBackground: true, BackgroundScale: math.NaN()}, EffectBackgroundZoom, nil)
	if inst.Params[FieldScaleFrom] != 0.0 {
		t.Errorf("scaleFrom = %v, want registry default 0", inst.Params[FieldScaleFrom])
	}
}

func TestBackgroundZoomOverrideWins(t *testing.T) {
	m := newTestManager(NewMemoryStore(), ScaleRange{Min: 100, Max: 500, Clamp: true})
	inst, _ := m.NewInstance(Element{ID: "bg", IsBackground: true, BackgroundScale: 300}, EffectBackgroundZoom, Params{FieldScaleFrom: 0.9})
	if inst.Params[FieldScaleFrom] != 0.9 {
		t.Errorf("scaleFrom = %v, want override 0.9", inst.Params[FieldScaleFrom])
	}
}

func TestUpdateInstanceStagesWithoutCommit(t *testing.T) {
	store := NewMemoryStore(Element{ID: "e", Type: ElementImage})
	m := newTestManager(store, ScaleRange{})
	el, _ := store.Element("e")
	inst, err := m.AddEffect(el, EffectFadeIn, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if m.LocalEditCount() != 0 {
		t.Fatal("successful commit should clear the local edit")
	}

	before := len(store.Patches())
	next, err := m.UpdateInstance("e", inst, Params{FieldDuration: 900}, false, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(store.Patches()) != before {
		t.Error("uncommitted update reached the store")
	}
	if next.Params[FieldDuration] != 900 || inst.Params[FieldDuration] != 600 {
		t.Errorf("next = %v, original = %v", next.Params, inst.Params)
	}

	el, _ = store.Element("e")
	eff, ok := m.EffectiveAnimation(el)
	if !ok || eff.Params[FieldDuration] != 900 {
		t.Errorf("effective = %+v", eff)
	}
	if el.Animation.Params[FieldDuration] != 600 {
		t.Error("store changed by a staged edit")
	}
	all := m.Reconcile()
	if len(all) != 1 || all[0].Params[FieldDuration] != 900 {
		t.Errorf("Reconcile = %+v", all)
	}
}

func TestUpdateInstanceCommitClearsLocalEdit(t *testing.T) {
	store := NewMemoryStore(Element{ID: "e", Type: ElementImage})
	store.SetDeferred(true)
	m := newTestManager(store, ScaleRange{})
	el, _ := store.Element("e")
	inst, _ := m.AddEffect(el, EffectFadeIn, nil, nil)
	store.Flush()

	var result error = errors.New("not called")
	if _, err := m.UpdateInstance("e", inst, Params{FieldDelay: 250}, true, func(err error) { result = err }); err != nil {
		t.Fatal(err)
	}
	if _, ok := m.LocalEdit(inst.ID); !ok {
		t.Fatal("edit should be staged while the commit is in flight")
	}
	store.Flush()
	if result != nil {
		t.Fatalf("done = %v", result)
	}
	if _, ok := m.LocalEdit(inst.ID); ok {
		t.Error("local edit should be cleared after a successful commit")
	}
	el, _ = store.Element("e")
	if el.Animation.Params[FieldDelay] != 250 {
		t.Errorf("committed params = %v", el.Animation.Params)
	}
}

func TestNewerStagedEditSurvivesOlderCommit(t *testing.T) {
	store := NewMemoryStore(Element{ID: "e", Type: ElementImage})
	store.SetDeferred(true)
	m := newTestManager(store, ScaleRange{})
	el, _ := store.Element("e")
	inst, _ := m.AddEffect(el, EffectFadeIn, nil, nil)
	store.Flush()

	first, _ := m.UpdateInstance("e", inst, Params{FieldDelay: 100}, true, nil)
	m.UpdateInstance("e", first, Params{FieldDelay: 200}, false, nil)
	store.Flush()

	le, ok := m.LocalEdit(inst.ID)
	if !ok || le.Params[FieldDelay] != 200 {
		t.Errorf("newer staged edit lost: %+v, %v", le, ok)
	}
}

func TestUpdateInstanceInvalidFieldRejectedBeforeMutation(t *testing.T) {
	store := NewMemoryStore(Element{ID: "e", Type: ElementImage})
	m := newTestManager(store, ScaleRange{})
	el, _ := store.Element("e")
	inst, _ := m.AddEffect(el, EffectFadeIn, nil, nil)
	before := len(store.Patches())

	_, err := m.UpdateInstance("e", inst, Params{FieldDelay: 5, "flyInDir": "leftToRight"}, true, nil)
	if !errors.Is(err, ErrInvalidField) {
		t.Fatalf("err = %v, want ErrInvalidField", err)
	}
	if len(store.Patches()) != before || m.LocalEditCount() != 0 {
		t.Error("rejected patch must not mutate anything")
	}
}

func TestCommitFailureRevertsToCommitted(t *testing.T) {
	store := NewMemoryStore(Element{ID: "e", Type: ElementImage})
	m := newTestManager(store, ScaleRange{})
	el, _ := store.Element("e")
	inst, _ := m.AddEffect(el, EffectFadeIn, nil, nil)

	boom := errors.New("disk full")
	store.SetFailure(func(string) error { return boom })
	var got error
	m.UpdateInstance("e", inst, Params{FieldDelay: 300}, true, func(err error) { got = err })

	if !errors.Is(got, ErrStoreCommitFailed) || !errors.Is(got, boom) {
		t.Fatalf("done err = %v", got)
	}
	el, _ = store.Element("e")
	eff, ok := m.EffectiveAnimation(el)
	if !ok || eff.Params[FieldDelay] != 0 {
		t.Errorf("effective after failure = %+v, want committed delay 0", eff)
	}
}

func TestRemoveInstance(t *testing.T) {
	store := NewMemoryStore(Element{ID: "e", Type: ElementImage})
	store.SetDeferred(true)
	m := newTestManager(store, ScaleRange{})
	el, _ := store.Element("e")
	inst, _ := m.AddEffect(el, EffectDrop, nil, nil)
	store.Flush()

	if err := m.RemoveInstance("e", inst.ID, nil); err != nil {
		t.Fatal(err)
	}
	el, _ = store.Element("e")
	if _, ok := m.EffectiveAnimation(el); ok {
		t.Error("staged delete should hide the animation before the store answers")
	}
	if got := m.Reconcile(); len(got) != 0 {
		t.Errorf("Reconcile = %+v, want empty", got)
	}
	store.Flush()
	el, _ = store.Element("e")
	if el.Animation != nil {
		t.Error("store still holds the animation")
	}
	last := store.Patches()[len(store.Patches())-1]
	if !last.Removed || last.Animation != nil {
		t.Errorf("last patch = %+v, want removal", last)
	}
}

func TestRemoveInstanceUnknown(t *testing.T) {
	store := NewMemoryStore(Element{ID: "e", Type: ElementImage})
	m := newTestManager(store, ScaleRange{})
	if err := m.RemoveInstance("e", "missing", nil); !errors.Is(err, ErrUnknownInstance) {
		t.Errorf("err = %v", err)
	}
	if err := m.RemoveInstance("ghost", "missing", nil); !errors.Is(err, ErrUnknownElement) {
		t.Errorf("err = %v", err)
	}
}

func TestEffectiveAnimationMissingIsNotAnError(t *testing.T) {
	m := newTestManager(NewMemoryStore(), ScaleRange{})
	if _, ok := m.EffectiveAnimation(Element{ID: "plain"}); ok {
		t.Error("element without animation should have none")
	}
}

func TestManagerResetIgnoresLateCompletion(t *testing.T) {
	store := NewMemoryStore(Element{ID: "e", Type: ElementImage})
	store.SetDeferred(true)
	m := newTestManager(store, ScaleRange{})
	el, _ := store.Element("e")
	called := false
	m.AddEffect(el, EffectDrop, nil, func(error) { called = true })
	m.Reset()
	if m.LocalEditCount() != 0 {
		t.Error("Reset should drop staged edits")
	}
	store.Flush()
	if called {
		t.Error("completion after Reset should be ignored")
	}
}

func TestClearLocalEdit(t *testing.T) {
	store := NewMemoryStore(Element{ID: "e", Type: ElementImage})
	m := newTestManager(store, ScaleRange{})
	el, _ := store.Element("e")
	inst, _ := m.AddEffect(el, EffectDrop, nil, nil)
	m.UpdateInstance("e", inst, Params{FieldDelay: 10}, false, nil)
	m.ClearLocalEdit(inst.ID)
	m.ClearLocalEdit(inst.ID)
	if _, ok := m.LocalEdit(inst.ID); ok {
		t.Error("local edit still present")
	}
}

func TestDefaultIDsAreUUIDs(t *testing.T) {
	m := NewEffectManager(EffectManagerConfig{Store: NewMemoryStore()})
	a, _ := m.NewInstance(Element{ID: "e"}, EffectDrop, nil)
	b, _ := m.NewInstance(Element{ID: "e"}, EffectDrop, nil)
	if len(a.ID) != 36 || a.ID == b.ID {
		t.Errorf("ids = %q, %q", a.ID, b.ID)
	}
}
