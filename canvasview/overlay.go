package canvasview

import "github.com/phanxgames/storycanvas"

// overlayTracker mirrors the transform bus into per-element live geometry.
// The renderer reads overlays instead of polling the bus every frame.
type overlayTracker struct {
	store    storycanvas.DocumentStore
	bus      *storycanvas.TransformBus
	subs     map[string]storycanvas.Subscription
	overlays map[string]storycanvas.Geometry
	updates  int
}

func newOverlayTracker(store storycanvas.DocumentStore, bus *storycanvas.TransformBus) *overlayTracker {
	return &overlayTracker{
		store:    store,
		bus:      bus,
		subs:     make(map[string]storycanvas.Subscription),
		overlays: make(map[string]storycanvas.Geometry),
	}
}

// sync subscribes to elements that appeared in the store and releases the
// subscriptions of elements that are gone.
func (t *overlayTracker) sync() {
	live := make(map[string]bool)
	for _, el := range t.store.Elements() {
		live[el.ID] = true
		if _, ok := t.subs[el.ID]; ok {
			continue
		}
		t.subs[el.ID] = t.bus.Subscribe(el.ID, t.onDelta)
	}
	for id, sub := range t.subs {
		if !live[id] {
			sub.Release()
			delete(t.subs, id)
			delete(t.overlays, id)
		}
	}
}

func (t *overlayTracker) onDelta(id string, d *storycanvas.TransformDelta) {
	t.updates++
	if d == nil {
		delete(t.overlays, id)
		return
	}
	el, ok := t.store.Element(id)
	if !ok {
		return
	}
	t.overlays[id] = d.Apply(el.Geometry)
}

// geometry returns the element's geometry as it should be drawn this frame.
func (t *overlayTracker) geometry(el storycanvas.Element) storycanvas.Geometry {
	if g, ok := t.overlays[el.ID]; ok {
		return g
	}
	return el.Geometry
}

func (t *overlayTracker) release() {
	for id, sub := range t.subs {
		sub.Release()
		delete(t.subs, id)
	}
	clear(t.overlays)
}
