package storycanvas

import (
	"errors"
	"testing"
)

func TestMemoryStorePatchElement(t *testing.T) {
	s := NewMemoryStore(Element{ID: "e", Type: ElementImage, Geometry: Geometry{Width: 10, Height: 10}})
	var got error = errors.New("not called")
	s.PatchElement("e", TransformDelta{}.WithX(5).WithHeight(20), func(err error) { got = err })
	if got != nil {
		t.Fatal(got)
	}
	el, _ := s.Element("e")
	if el.X != 5 || el.Height != 20 || el.Width != 10 {
		t.Errorf("geometry = %+v", el.Geometry)
	}
}

func TestMemoryStoreRejectsMalformedPatch(t *testing.T) {
	s := NewMemoryStore(Element{ID: "e", Geometry: Geometry{Width: 10, Height: 10}})
	var got error
	s.PatchElement("e", TransformDelta{}.WithWidth(-3), func(err error) { got = err })
	if !errors.Is(got, ErrMalformedGeometry) {
		t.Errorf("err = %v", got)
	}
	el, _ := s.Element("e")
	if el.Width != 10 {
		t.Error("malformed patch applied")
	}
}

func TestMemoryStoreUnknownElement(t *testing.T) {
	s := NewMemoryStore()
	var got error
	s.PatchElement("ghost", TransformDelta{}.WithX(1), func(err error) { got = err })
	if !errors.Is(got, ErrUnknownElement) {
		t.Errorf("PatchElement err = %v", got)
	}
	s.PatchAnimation("ghost", nil, func(err error) { got = err })
	if !errors.Is(got, ErrUnknownElement) {
		t.Errorf("PatchAnimation err = %v", got)
	}
}

func TestMemoryStoreDeferredCompletion(t *testing.T) {
	s := NewMemoryStore(Element{ID: "a"}, Element{ID: "b"})
	s.SetDeferred(true)
	var order []string
	s.PatchElement("a", TransformDelta{}.WithX(1), func(error) { order = append(order, "a") })
	s.PatchElement("b", TransformDelta{}.WithX(2), func(error) { order = append(order, "b") })

	el, _ := s.Element("a")
	if el.X != 0 || len(order) != 0 || s.QueuedCount() != 2 {
		t.Fatal("deferred request completed early")
	}
	if !s.FlushLast() {
		t.Fatal("FlushLast found nothing")
	}
	if n := s.Flush(); n != 1 {
		t.Errorf("Flush ran %d, want 1", n)
	}
	if len(order) != 2 || order[0] != "b" || order[1] != "a" {
		t.Errorf("order = %v", order)
	}
	if s.FlushLast() {
		t.Error("queue should be empty")
	}
}

func TestMemoryStoreFailureInjection(t *testing.T) {
	s := NewMemoryStore(Element{ID: "a"}, Element{ID: "b"})
	boom := errors.New("offline")
	s.SetFailure(func(id string) error {
		if id == "a" {
			return boom
		}
		return nil
	})
	var errA, errB error
	s.PatchElement("a", TransformDelta{}.WithX(1), func(err error) { errA = err })
	s.PatchElement("b", TransformDelta{}.WithX(1), func(err error) { errB = err })
	if errA != boom || errB != nil {
		t.Errorf("errA = %v, errB = %v", errA, errB)
	}
	a, _ := s.Element("a")
	if a.X != 0 {
		t.Error("failed patch applied")
	}
}

func TestMemoryStoreAnimations(t *testing.T) {
	s := NewMemoryStore(
		Element{ID: "a", Animation: &EffectInstance{ID: "x1"}},
		Element{ID: "b"},
		Element{ID: "c", Animation: &EffectInstance{ID: "x2"}},
	)
	got := s.AnimationsForPage()
	if len(got) != 2 || got[0].ID != "x1" || got[1].ID != "x2" {
		t.Fatalf("AnimationsForPage = %+v", got)
	}

	s.PatchAnimation("b", &EffectInstance{ID: "x3", Params: Params{"delay": 1}}, nil)
	got = s.AnimationsForPage()
	if len(got) != 3 || got[1].ID != "x3" {
		t.Errorf("order after add = %+v", got)
	}

	s.PatchAnimation("a", &EffectInstance{ID: "x1", Delete: true}, nil)
	s.PatchAnimation("c", nil, nil)
	got = s.AnimationsForPage()
	if len(got) != 1 || got[0].ID != "x3" {
		t.Errorf("after removals = %+v", got)
	}
}

func TestMemoryStoreCopiesOnReadAndWrite(t *testing.T) {
	inst := &EffectInstance{ID: "x", Params: Params{"delay": 1}}
	s := NewMemoryStore(Element{ID: "a"})
	s.PatchAnimation("a", inst, nil)
	inst.Params["delay"] = 99

	el, _ := s.Element("a")
	if el.Animation.Params["delay"] != 1 {
		t.Error("store aliased the caller's params")
	}
	el.Animation.Params["delay"] = 42
	again, _ := s.Element("a")
	if again.Animation.Params["delay"] != 1 {
		t.Error("Element returned shared params")
	}
}

func TestMemoryStoreAddRemove(t *testing.T) {
	s := NewMemoryStore(Element{ID: "a"}, Element{ID: "b"}, Element{ID: "c"})
	if !s.RemoveElement("b") || s.RemoveElement("b") {
		t.Fatal("RemoveElement result wrong")
	}
	if s.Has("b") {
		t.Error("b still present")
	}
	c, ok := s.Element("c")
	if !ok || c.ID != "c" {
		t.Error("index not rebuilt after removal")
	}
	s.AddElement(Element{ID: "a", Type: ElementText})
	els := s.Elements()
	if len(els) != 2 || els[0].Type != ElementText {
		t.Errorf("Elements = %+v", els)
	}
	if p := s.Patches(); len(p) != 0 {
		t.Errorf("Patches = %v", p)
	}
}
