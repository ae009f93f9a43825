package storycanvas

import "log/slog"

// DeltaField is a bitmask of the geometry values present in a TransformDelta.
type DeltaField uint8

const (
	DeltaX DeltaField = 1 << iota
	DeltaY
	DeltaWidth
	DeltaHeight
	DeltaRotation
)

// TransformDelta is a partial geometry update produced mid-gesture. Only the
// values whose bit is set in Fields are meaningful. Deltas are absolute
// values in document units, not increments.
type TransformDelta struct {
	X, Y          float64
	Width, Height float64
	Rotation      float64
	Fields        DeltaField
}

// Has reports whether f is present in the delta.
func (d TransformDelta) Has(f DeltaField) bool {
	return d.Fields&f != 0
}

// IsEmpty reports whether the delta carries no values.
func (d TransformDelta) IsEmpty() bool {
	return d.Fields == 0
}

// WithX returns a copy of d with X set.
func (d TransformDelta) WithX(v float64) TransformDelta {
	d.X = v
	d.Fields |= DeltaX
	return d
}

// WithY returns a copy of d with Y set.
func (d TransformDelta) WithY(v float64) TransformDelta {
	d.Y = v
	d.Fields |= DeltaY
	return d
}

// WithWidth returns a copy of d with Width set.
func (d TransformDelta) WithWidth(v float64) TransformDelta {
	d.Width = v
	d.Fields |= DeltaWidth
	return d
}

// WithHeight returns a copy of d with Height set.
func (d TransformDelta) WithHeight(v float64) TransformDelta {
	d.Height = v
	d.Fields |= DeltaHeight
	return d
}

// WithRotation returns a copy of d with Rotation set.
func (d TransformDelta) WithRotation(v float64) TransformDelta {
	d.Rotation = v
	d.Fields |= DeltaRotation
	return d
}

// Apply overlays the present values of d onto g.
func (d TransformDelta) Apply(g Geometry) Geometry {
	if d.Has(DeltaX) {
		g.X = d.X
	}
	if d.Has(DeltaY) {
		g.Y = d.Y
	}
	if d.Has(DeltaWidth) {
		g.Width = d.Width
	}
	if d.Has(DeltaHeight) {
		g.Height = d.Height
	}
	if d.Has(DeltaRotation) {
		g.Rotation = d.Rotation
	}
	return g
}

// DiffGeometry returns a delta holding only the values of to that differ from
// from by at least eps.
func DiffGeometry(from, to Geometry, eps float64) TransformDelta {
	var d TransformDelta
	if !approxEqual(from.X, to.X, eps) {
		d = d.WithX(to.X)
	}
	if !approxEqual(from.Y, to.Y, eps) {
		d = d.WithY(to.Y)
	}
	if !approxEqual(from.Width, to.Width, eps) {
		d = d.WithWidth(to.Width)
	}
	if !approxEqual(from.Height, to.Height, eps) {
		d = d.WithHeight(to.Height)
	}
	if !approxEqual(from.Rotation, to.Rotation, eps) {
		d = d.WithRotation(to.Rotation)
	}
	return d
}

// fullDelta returns a delta carrying every value of g.
func fullDelta(g Geometry) TransformDelta {
	return TransformDelta{
		X: g.X, Y: g.Y, Width: g.Width, Height: g.Height, Rotation: g.Rotation,
		Fields: DeltaX | DeltaY | DeltaWidth | DeltaHeight | DeltaRotation,
	}
}

// TransformHandler receives the full pending delta for an element each time
// one is published, or nil when the pending delta is cleared. The pointer is
// a private copy; handlers may keep or modify it.
type TransformHandler func(elementID string, delta *TransformDelta)

type transformSub struct {
	id       uint32
	fn       TransformHandler
	released bool
}

// Subscription allows removing a registered TransformHandler. Release it when
// the overlay that registered it is torn down.
type Subscription struct {
	id        uint32
	elementID string
	bus       *TransformBus
}

// Release unregisters the handler so it no longer fires. Safe to call more
// than once and from inside a handler.
func (s Subscription) Release() {
	if s.bus == nil {
		return
	}
	s.bus.release(s.elementID, s.id)
}

// TransformBus carries transient, uncommitted transform deltas keyed by
// element ID. It holds at most one pending delta per element and delivers
// synchronously. A bus belongs to one editor session and is not safe for
// concurrent use.
type TransformBus struct {
	pending map[string]TransformDelta
	subs    map[string][]*transformSub
	// gen counts publishes and clears per element so a delivery interrupted
	// by a nested publish can stop before handing out a superseded delta.
	gen    map[string]uint64
	nextID uint32
	exists func(elementID string) bool
	log    *slog.Logger

	publishes int
}

// BusOption configures a TransformBus.
type BusOption func(*TransformBus)

// WithElementCheck makes Publish a no-op for elements for which exists
// returns false, so handlers of a deleted element that lag by one tick are
// harmless.
func WithElementCheck(exists func(elementID string) bool) BusOption {
	return func(b *TransformBus) { b.exists = exists }
}

// WithBusLogger sets the logger used for dropped publishes.
func WithBusLogger(l *slog.Logger) BusOption {
	return func(b *TransformBus) { b.log = l }
}

// NewTransformBus creates an empty bus.
func NewTransformBus(opts ...BusOption) *TransformBus {
	b := &TransformBus{
		pending: make(map[string]TransformDelta),
		subs:    make(map[string][]*transformSub),
		gen:     make(map[string]uint64),
		log:     slog.Default(),
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Publish replaces the pending delta for elementID and notifies its
// subscribers. There is no queuing and no merging with the previous delta.
func (b *TransformBus) Publish(elementID string, delta TransformDelta) {
	if b.exists != nil && !b.exists(elementID) {
		if _, ok := b.pending[elementID]; ok {
			delete(b.pending, elementID)
			b.gen[elementID]++
		}
		b.log.Debug("transform publish for missing element dropped", "element", elementID)
		return
	}
	b.pending[elementID] = delta
	b.gen[elementID]++
	b.publishes++
	b.dispatch(elementID, &delta)
}

// Clear removes the pending delta for elementID and notifies subscribers with
// nil. Clearing an element with nothing pending does nothing.
func (b *TransformBus) Clear(elementID string) {
	if _, ok := b.pending[elementID]; !ok {
		return
	}
	delete(b.pending, elementID)
	b.gen[elementID]++
	b.dispatch(elementID, nil)
}

// Pending returns the current pending delta for elementID.
func (b *TransformBus) Pending(elementID string) (TransformDelta, bool) {
	d, ok := b.pending[elementID]
	return d, ok
}

// PendingCount returns the number of elements with a pending delta.
func (b *TransformBus) PendingCount() int {
	return len(b.pending)
}

// Subscribe registers fn for deltas of elementID.
func (b *TransformBus) Subscribe(elementID string, fn TransformHandler) Subscription {
	b.nextID++
	id := b.nextID
	b.subs[elementID] = append(b.subs[elementID], &transformSub{id: id, fn: fn})
	return Subscription{id: id, elementID: elementID, bus: b}
}

// SubscriberCount returns the number of live handlers for elementID.
func (b *TransformBus) SubscriberCount(elementID string) int {
	return len(b.subs[elementID])
}

// Reset drops every pending delta and subscription without notifying anyone.
// Called on session teardown.
func (b *TransformBus) Reset() {
	for _, list := range b.subs {
		for _, s := range list {
			s.released = true
		}
	}
	b.pending = make(map[string]TransformDelta)
	b.subs = make(map[string][]*transformSub)
	b.gen = make(map[string]uint64)
}

func (b *TransformBus) release(elementID string, id uint32) {
	list := b.subs[elementID]
	for i, s := range list {
		if s.id == id {
			s.released = true
			copy(list[i:], list[i+1:])
			list[len(list)-1] = nil
			list = list[:len(list)-1]
			if len(list) == 0 {
				delete(b.subs, elementID)
			} else {
				b.subs[elementID] = list
			}
			return
		}
	}
}

// dispatch delivers delta to a snapshot of the element's handlers. Handlers
// may publish, clear, subscribe or release re-entrantly; once the element's
// generation moves on, the rest of this delivery is dropped because the
// nested call already delivered the newer state.
func (b *TransformBus) dispatch(elementID string, delta *TransformDelta) {
	list := b.subs[elementID]
	if len(list) == 0 {
		return
	}
	gen := b.gen[elementID]
	snapshot := make([]*transformSub, len(list))
	copy(snapshot, list)
	for _, s := range snapshot {
		if s.released {
			continue
		}
		if b.gen[elementID] != gen {
			return
		}
		if delta == nil {
			s.fn(elementID, nil)
			continue
		}
		d := *delta
		s.fn(elementID, &d)
	}
}
