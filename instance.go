package storycanvas

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/google/uuid"
)

// EffectInstance is an effect attached to an element. Delete marks a staged
// removal; instances carrying it are excluded from every reconciled view.
type EffectInstance struct {
	ID     string
	Type   EffectType
	Params Params
	Delete bool
}

// Clone returns a copy that shares no parameter map with i.
func (i EffectInstance) Clone() EffectInstance {
	i.Params = i.Params.Clone()
	return i
}

// IDGenerator produces a globally unique instance ID. Uniqueness is not
// verified.
type IDGenerator func() string

// NewUUID returns a random UUID string. It is the default IDGenerator.
func NewUUID() string {
	return uuid.NewString()
}

// ScaleRange holds the background scale slider bounds used to derive the
// initial scaleFrom of a background zoom.
type ScaleRange struct {
	Min, Max float64
	// Clamp limits the derived value to [0, 1].
	Clamp bool
}

// DefaultScaleRange returns the built-in slider bounds with clamping on.
func DefaultScaleRange() ScaleRange {
	return ScaleRange{Min: DefaultMinScale, Max: DefaultMaxScale, Clamp: true}
}

// Normalize maps a slider value into the [0, 1] zoom domain. ok is false when
// the result is not a finite number.
func (r ScaleRange) Normalize(scale float64) (v float64, ok bool) {
	v = (scale - r.Min) / (r.Max - r.Min)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	if r.Clamp {
		v = math.Max(0, math.Min(1, v))
	}
	return v, true
}

// Reconcile returns the effective instances: each committed instance is
// replaced in place by the local edit with the same ID, and anything marked
// Delete is dropped. Order follows committed.
func Reconcile(committed []EffectInstance, local map[string]EffectInstance) []EffectInstance {
	out := make([]EffectInstance, 0, len(committed))
	for _, c := range committed {
		inst := c
		if l, ok := local[c.ID]; ok {
			inst = l
		}
		if inst.Delete {
			continue
		}
		out = append(out, inst.Clone())
	}
	return out
}

// EffectManagerConfig configures an EffectManager. Zero fields get defaults.
type EffectManagerConfig struct {
	Registry *EffectRegistry
	Store    DocumentStore
	NewID    IDGenerator
	Scale    ScaleRange
	Logger   *slog.Logger
}

type localEdit struct {
	elementID string
	inst      EffectInstance
	seq       uint64
}

// EffectManager creates, edits and removes effect instances. Edits are staged
// in a session-local map that shadows the store's committed instances until
// the store confirms the commit.
type EffectManager struct {
	registry *EffectRegistry
	store    DocumentStore
	newID    IDGenerator
	scale    ScaleRange
	log      *slog.Logger

	local map[string]localEdit
	seq   uint64
	epoch uint64
}

// NewEffectManager creates a manager. Store is required.
func NewEffectManager(cfg EffectManagerConfig) *EffectManager {
	m := &EffectManager{
		registry: cfg.Registry,
		store:    cfg.Store,
		newID:    cfg.NewID,
		scale:    cfg.Scale,
		log:      cfg.Logger,
		local:    make(map[string]localEdit),
	}
	if m.registry == nil {
		m.registry = DefaultEffectRegistry()
	}
	if m.newID == nil {
		m.newID = NewUUID
	}
	if m.scale == (ScaleRange{}) {
		m.scale = DefaultScaleRange()
	}
	if m.log == nil {
		m.log = slog.Default()
	}
	return m
}

// Registry returns the definition catalog.
func (m *EffectManager) Registry() *EffectRegistry {
	return m.registry
}

// NewInstance builds an instance of t for el without touching the store. The
// parameters are the definition defaults overlaid with overrides. For a
// background zoom on a background element, scaleFrom is derived from the
// element's current scale unless overridden.
func (m *EffectManager) NewInstance(el Element, t EffectType, overrides Params) (EffectInstance, error) {
	def, err := m.registry.Lookup(t)
	if err != nil {
		return EffectInstance{}, err
	}
	want := FamilyElement
	if el.IsBackground {
		want = FamilyBackground
	}
	if def.Family != want {
		return EffectInstance{}, fmt.Errorf("%w: %s on element %q", ErrEffectFamily, t, el.ID)
	}
	overrides, err = def.normalizeParams(overrides)
	if err != nil {
		return EffectInstance{}, err
	}
	params, _ := m.registry.DefaultsFor(t)
	if t == EffectBackgroundZoom && el.IsBackground {
		if v, ok := m.scale.Normalize(el.BackgroundScale); ok {
			params[FieldScaleFrom] = v
		}
	}
	for k, v := range overrides {
		params[k] = v
	}
	return EffectInstance{ID: m.newID(), Type: t, Params: params}, nil
}

// AddEffect creates an instance of t, stages it and commits it on el. It
// replaces whatever animation el had. done receives the commit result and may
// be nil.
func (m *EffectManager) AddEffect(el Element, t EffectType, overrides Params, done func(error)) (EffectInstance, error) {
	inst, err := m.NewInstance(el, t, overrides)
	if err != nil {
		return EffectInstance{}, err
	}
	m.Commit(el.ID, inst, done)
	return inst.Clone(), nil
}

// UpdateInstance applies patch over inst's parameters. The result is always
// staged as a local edit; with commit set it is also sent to the store.
// Patch keys outside the definition fail with ErrInvalidField, and values a
// field cannot hold with ErrInvalidValue, before anything changes.
func (m *EffectManager) UpdateInstance(elementID string, inst EffectInstance, patch Params, commit bool, done func(error)) (EffectInstance, error) {
	def, err := m.registry.Lookup(inst.Type)
	if err != nil {
		return EffectInstance{}, err
	}
	patch, err = def.normalizeParams(patch)
	if err != nil {
		return EffectInstance{}, err
	}
	next := inst.Clone()
	for k, v := range patch {
		next.Params[k] = v
	}
	if commit {
		m.Commit(elementID, next, done)
	} else {
		m.stage(elementID, next)
		if done != nil {
			done(nil)
		}
	}
	return next.Clone(), nil
}

// RemoveInstance marks the element's instance deleted and commits the
// removal.
func (m *EffectManager) RemoveInstance(elementID, instanceID string, done func(error)) error {
	el, ok := m.store.Element(elementID)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownElement, elementID)
	}
	cur, ok := m.EffectiveAnimation(el)
	if !ok || cur.ID != instanceID {
		if le, staged := m.local[instanceID]; !staged || le.elementID != elementID {
			return fmt.Errorf("%w: %q on element %q", ErrUnknownInstance, instanceID, elementID)
		}
		cur = m.local[instanceID].inst
	}
	cur = cur.Clone()
	cur.Delete = true
	seq := m.stage(elementID, cur)
	epoch := m.epoch
	m.store.PatchAnimation(elementID, nil, func(err error) {
		m.complete(epoch, "remove", elementID, cur.ID, seq, err, done)
	})
	return nil
}

// Commit stages inst as the element's animation and sends it to the store.
// The staged edit shadows the committed value until the store answers.
func (m *EffectManager) Commit(elementID string, inst EffectInstance, done func(error)) {
	seq := m.stage(elementID, inst)
	epoch := m.epoch
	payload := inst.Clone()
	m.store.PatchAnimation(elementID, &payload, func(err error) {
		m.complete(epoch, "patch animation", elementID, inst.ID, seq, err, done)
	})
}

func (m *EffectManager) stage(elementID string, inst EffectInstance) uint64 {
	m.seq++
	m.local[inst.ID] = localEdit{elementID: elementID, inst: inst.Clone(), seq: m.seq}
	return m.seq
}

// complete handles a store completion. A newer staged edit for the same ID
// keeps shadowing the committed value whatever the outcome.
func (m *EffectManager) complete(epoch uint64, op, elementID, instanceID string, seq uint64, err error, done func(error)) {
	if epoch != m.epoch {
		m.log.Debug("effect commit completed after session reset", "element", elementID, "instance", instanceID)
		return
	}
	if le, ok := m.local[instanceID]; ok && le.seq == seq {
		delete(m.local, instanceID)
	}
	if err != nil {
		err = commitFailed(op, elementID, err)
		m.log.Error("effect commit failed", "element", elementID, "instance", instanceID, "err", err)
	}
	if done != nil {
		done(err)
	}
}

// ClearLocalEdit drops the staged edit for instanceID, if any.
func (m *EffectManager) ClearLocalEdit(instanceID string) {
	delete(m.local, instanceID)
}

// LocalEdit returns a copy of the staged edit for instanceID.
func (m *EffectManager) LocalEdit(instanceID string) (EffectInstance, bool) {
	le, ok := m.local[instanceID]
	if !ok {
		return EffectInstance{}, false
	}
	return le.inst.Clone(), true
}

// LocalEditCount returns the number of staged edits.
func (m *EffectManager) LocalEditCount() int {
	return len(m.local)
}

// Reconcile returns the page's effective instances: the store's committed
// instances shadowed by this session's staged edits.
func (m *EffectManager) Reconcile() []EffectInstance {
	local := make(map[string]EffectInstance, len(m.local))
	for id, le := range m.local {
		local[id] = le.inst
	}
	return Reconcile(m.store.AnimationsForPage(), local)
}

// EffectiveAnimation returns the animation currently in effect for el. A
// staged edit for el wins over the committed one; a staged delete hides it.
// An element without animation yields ok == false.
func (m *EffectManager) EffectiveAnimation(el Element) (EffectInstance, bool) {
	var best *localEdit
	for id := range m.local {
		le := m.local[id]
		if le.elementID != el.ID {
			continue
		}
		if best == nil || le.seq > best.seq {
			best = &le
		}
	}
	if best != nil {
		if best.inst.Delete {
			return EffectInstance{}, false
		}
		return best.inst.Clone(), true
	}
	if el.Animation == nil || el.Animation.Delete {
		return EffectInstance{}, false
	}
	return el.Animation.Clone(), true
}

// Reset drops every staged edit and ignores completions of commits already
// in flight.
func (m *EffectManager) Reset() {
	m.local = make(map[string]localEdit)
	m.epoch++
}
