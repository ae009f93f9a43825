package storycanvas

import "fmt"

// DocumentStore is the persistent document the canvas edits. Mutations are
// requests: the store reports the outcome through done, either before the
// call returns or at any later point. Nothing may be assumed about the order
// of completions for different elements.
type DocumentStore interface {
	// Element returns a copy of the element with the given ID.
	Element(id string) (Element, bool)
	// Elements returns the page's elements in paint order, bottom first.
	Elements() []Element
	// PatchElement requests that the present fields of patch be written to
	// the element's geometry.
	PatchElement(id string, patch TransformDelta, done func(error))
	// AnimationsForPage returns the committed effect instances in element
	// order.
	AnimationsForPage() []EffectInstance
	// PatchAnimation requests that the element's animation be replaced by
	// inst, or removed when inst is nil.
	PatchAnimation(elementID string, inst *EffectInstance, done func(error))
}

// PatchRecord is one mutation request received by a MemoryStore.
type PatchRecord struct {
	ElementID string
	// Delta is set for geometry patches.
	Delta *TransformDelta
	// Animation is set for animation patches; Removed marks a removal.
	Animation *EffectInstance
	Removed   bool
}

// MemoryStore is an in-process DocumentStore. By default it completes
// requests synchronously. SetDeferred queues completions until Flush, which
// lets callers exercise the asynchronous paths.
type MemoryStore struct {
	elements []Element
	index    map[string]int

	deferred bool
	queue    []func()
	fail     func(elementID string) error
	patches  []PatchRecord
}

// NewMemoryStore creates a store holding copies of elements in paint order.
func NewMemoryStore(elements ...Element) *MemoryStore {
	s := &MemoryStore{index: make(map[string]int)}
	for _, e := range elements {
		s.AddElement(e)
	}
	return s
}

// AddElement appends el on top of the paint order, replacing any element with
// the same ID in place.
func (s *MemoryStore) AddElement(el Element) {
	if i, ok := s.index[el.ID]; ok {
		s.elements[i] = el.Clone()
		return
	}
	s.index[el.ID] = len(s.elements)
	s.elements = append(s.elements, el.Clone())
}

// RemoveElement deletes an element. Its animation goes with it.
func (s *MemoryStore) RemoveElement(id string) bool {
	i, ok := s.index[id]
	if !ok {
		return false
	}
	s.elements = append(s.elements[:i], s.elements[i+1:]...)
	delete(s.index, id)
	for j := i; j < len(s.elements); j++ {
		s.index[s.elements[j].ID] = j
	}
	return true
}

// Element implements DocumentStore.
func (s *MemoryStore) Element(id string) (Element, bool) {
	i, ok := s.index[id]
	if !ok {
		return Element{}, false
	}
	return s.elements[i].Clone(), true
}

// Has reports whether an element with id exists.
func (s *MemoryStore) Has(id string) bool {
	_, ok := s.index[id]
	return ok
}

// Elements implements DocumentStore.
func (s *MemoryStore) Elements() []Element {
	out := make([]Element, len(s.elements))
	for i, e := range s.elements {
		out[i] = e.Clone()
	}
	return out
}

// PatchElement implements DocumentStore. The patch is applied when the
// request completes; a patch yielding malformed geometry is rejected.
func (s *MemoryStore) PatchElement(id string, patch TransformDelta, done func(error)) {
	s.patches = append(s.patches, PatchRecord{ElementID: id, Delta: &patch})
	s.complete(id, done, func() error {
		i, ok := s.index[id]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownElement, id)
		}
		g := patch.Apply(s.elements[i].Geometry)
		if err := g.Validate(); err != nil {
			return err
		}
		s.elements[i].Geometry = g
		return nil
	})
}

// AnimationsForPage implements DocumentStore.
func (s *MemoryStore) AnimationsForPage() []EffectInstance {
	var out []EffectInstance
	for _, e := range s.elements {
		if e.Animation != nil {
			out = append(out, e.Animation.Clone())
		}
	}
	return out
}

// PatchAnimation implements DocumentStore. A nil inst, or one marked Delete,
// removes the element's animation.
func (s *MemoryStore) PatchAnimation(elementID string, inst *EffectInstance, done func(error)) {
	rec := PatchRecord{ElementID: elementID, Removed: inst == nil || inst.Delete}
	if inst != nil {
		c := inst.Clone()
		rec.Animation = &c
	}
	s.patches = append(s.patches, rec)
	s.complete(elementID, done, func() error {
		i, ok := s.index[elementID]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownElement, elementID)
		}
		if rec.Removed {
			s.elements[i].Animation = nil
			return nil
		}
		c := rec.Animation.Clone()
		s.elements[i].Animation = &c
		return nil
	})
}

func (s *MemoryStore) complete(elementID string, done func(error), apply func() error) {
	run := func() {
		var err error
		if s.fail != nil {
			err = s.fail(elementID)
		}
		if err == nil {
			err = apply()
		}
		if done != nil {
			done(err)
		}
	}
	if s.deferred {
		s.queue = append(s.queue, run)
		return
	}
	run()
}

// SetDeferred switches between synchronous completion and queued completion.
func (s *MemoryStore) SetDeferred(deferred bool) {
	s.deferred = deferred
}

// SetFailure installs a function deciding, per element, whether a request
// fails. The returned error is passed to done unchanged. nil disables it.
func (s *MemoryStore) SetFailure(fn func(elementID string) error) {
	s.fail = fn
}

// Flush completes queued requests in submission order and returns how many
// ran. Completions queued while flushing run in the same call.
func (s *MemoryStore) Flush() int {
	n := 0
	for len(s.queue) > 0 {
		run := s.queue[0]
		s.queue = s.queue[1:]
		run()
		n++
	}
	return n
}

// FlushLast completes only the most recent queued request, which simulates
// completions arriving out of submission order.
func (s *MemoryStore) FlushLast() bool {
	if len(s.queue) == 0 {
		return false
	}
	run := s.queue[len(s.queue)-1]
	s.queue = s.queue[:len(s.queue)-1]
	run()
	return true
}

// QueuedCount returns the number of requests awaiting Flush.
func (s *MemoryStore) QueuedCount() int {
	return len(s.queue)
}

// Patches returns the mutation requests received so far.
func (s *MemoryStore) Patches() []PatchRecord {
	out := make([]PatchRecord, len(s.patches))
	copy(out, s.patches)
	return out
}
