package kb

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rwandaorbitguard/orbit-guard/core"
	"github.com/rwandaorbitguard/orbit-guard/model"
)

var (
	// ErrObjectExists indicates an id is already taken by a satellite or debris.
	ErrObjectExists = errors.New("object already exists")
	// ErrObjectNotFound indicates a requested object is not in the catalog.
	ErrObjectNotFound = errors.New("object not found")
)

// EventType indicates what kind of change happened in the catalog.
type EventType int

const (
	EventObjectAdded EventType = iota
	EventPositionsUpdated
	EventCollisionsReplaced
)

// Event is emitted to subscribers when the catalog changes.
type Event struct {
	Type EventType
	// ObjectID is set for EventObjectAdded.
	ObjectID string
	// Time is the propagation time value after EventPositionsUpdated.
	Time float64
}

// Catalog is an in-memory, thread-safe store for the tracked population and
// its collision predictions. Reads return copies so callers never observe a
// position mid-update.
type Catalog struct {
	mu sync.RWMutex

	satellites map[string]*model.Satellite
	debris     map[string]*model.Debris
	satOrder   []string
	debOrder   []string
	collisions []model.CollisionPrediction

	propagator *core.Propagator
	time       float64

	subs    map[int]func(Event)
	nextSub int
}

// Option customises Catalog construction.
type Option func(*Catalog)

// WithPropagator makes Propagate use p, so TLE-backed satellites follow SGP4.
func WithPropagator(p *core.Propagator) Option {
	return func(c *Catalog) { c.propagator = p }
}

// NewCatalog constructs an empty catalog.
func NewCatalog(opts ...Option) *Catalog {
	c := &Catalog{
		satellites: make(map[string]*model.Satellite),
		debris:     make(map[string]*model.Debris),
		subs:       make(map[int]func(Event)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AddSatellite stores a satellite. Ids are unique across satellites and
// debris; orbits (or TLEs) must validate.
func (c *Catalog) AddSatellite(s *model.Satellite) error {
	if s == nil {
		return fmt.Errorf("%w: nil satellite", core.ErrInvalidOrbit)
	}
	if s.TLE != nil {
		if err := core.ValidateTLE(s.TLE.Line1, s.TLE.Line2); err != nil {
			return fmt.Errorf("satellite %q: %w", s.ID, err)
		}
	} else if err := core.ValidateOrbit(s.Orbit); err != nil {
		return fmt.Errorf("satellite %q: %w", s.ID, err)
	}

	c.mu.Lock()
	if err := c.checkIDLocked(s.ID); err != nil {
		c.mu.Unlock()
		return err
	}
	c.satellites[s.ID] = s
	c.satOrder = append(c.satOrder, s.ID)
	subs := c.subscribersLocked()
	c.mu.Unlock()

	notify(subs, Event{Type: EventObjectAdded, ObjectID: s.ID})
	return nil
}

// AddDebris stores a debris fragment.
func (c *Catalog) AddDebris(d *model.Debris) error {
	if d == nil {
		return fmt.Errorf("%w: nil debris", core.ErrInvalidOrbit)
	}
	if err := core.ValidateOrbit(d.Orbit); err != nil {
		return fmt.Errorf("debris %q: %w", d.ID, err)
	}

	c.mu.Lock()
	if err := c.checkIDLocked(d.ID); err != nil {
		c.mu.Unlock()
		return err
	}
	c.debris[d.ID] = d
	c.debOrder = append(c.debOrder, d.ID)
	subs := c.subscribersLocked()
	c.mu.Unlock()

	notify(subs, Event{Type: EventObjectAdded, ObjectID: d.ID})
	return nil
}

func (c *Catalog) checkIDLocked(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty id", ErrObjectExists)
	}
	if _, ok := c.satellites[id]; ok {
		return fmt.Errorf("%w: %q", ErrObjectExists, id)
	}
	if _, ok := c.debris[id]; ok {
		return fmt.Errorf("%w: %q", ErrObjectExists, id)
	}
	return nil
}

// Satellite returns a copy of the satellite with the given id.
func (c *Catalog) Satellite(id string) (model.Satellite, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.satellites[id]
	if !ok {
		return model.Satellite{}, fmt.Errorf("%w: satellite %q", ErrObjectNotFound, id)
	}
	return *s, nil
}

// Debris returns a copy of the fragment with the given id.
func (c *Catalog) Debris(id string) (model.Debris, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.debris[id]
	if !ok {
		return model.Debris{}, fmt.Errorf("%w: debris %q", ErrObjectNotFound, id)
	}
	return *d, nil
}

// Orbit looks up the elements of any object by id.
func (c *Catalog) Orbit(id string) (model.OrbitParams, model.ObjectKind, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if s, ok := c.satellites[id]; ok {
		return s.Orbit, model.KindSatellite, nil
	}
	if d, ok := c.debris[id]; ok {
		return d.Orbit, model.KindDebris, nil
	}
	return model.OrbitParams{}, "", fmt.Errorf("%w: %q", ErrObjectNotFound, id)
}

// ListSatellites returns copies of the matching satellites in insertion order.
func (c *Catalog) ListSatellites(f SatelliteFilter) []model.Satellite {
	c.mu.RLock()
	defer c.mu.RUnlock()
	res := make([]model.Satellite, 0, len(c.satOrder))
	for _, id := range c.satOrder {
		if s := c.satellites[id]; f.Match(s) {
			res = append(res, *s)
		}
	}
	return res
}

// ListDebris returns copies of the matching fragments in insertion order.
func (c *Catalog) ListDebris(f DebrisFilter) []model.Debris {
	c.mu.RLock()
	defer c.mu.RUnlock()
	res := make([]model.Debris, 0, len(c.debOrder))
	for _, id := range c.debOrder {
		if d := c.debris[id]; f.Match(d) {
			res = append(res, *d)
		}
	}
	return res
}

// ListCollisions returns the matching predictions.
func (c *Catalog) ListCollisions(f CollisionFilter) []model.CollisionPrediction {
	c.mu.RLock()
	defer c.mu.RUnlock()
	res := make([]model.CollisionPrediction, 0, len(c.collisions))
	for _, p := range c.collisions {
		if f.Match(&p) {
			res = append(res, p)
		}
	}
	return res
}

// ReplaceCollisions swaps in a new prediction set.
func (c *Catalog) ReplaceCollisions(preds []model.CollisionPrediction) {
	c.mu.Lock()
	c.collisions = append([]model.CollisionPrediction(nil), preds...)
	subs := c.subscribersLocked()
	c.mu.Unlock()

	notify(subs, Event{Type: EventCollisionsReplaced})
}

// Propagate recomputes every position in place at time t.
func (c *Catalog) Propagate(t float64) {
	c.mu.Lock()
	sats := make([]*model.Satellite, 0, len(c.satOrder))
	for _, id := range c.satOrder {
		sats = append(sats, c.satellites[id])
	}
	debris := make([]*model.Debris, 0, len(c.debOrder))
	for _, id := range c.debOrder {
		debris = append(debris, c.debris[id])
	}
	if c.propagator != nil {
		c.propagator.Propagate(sats, debris, t)
	} else {
		core.UpdatePositions(sats, t)
		core.UpdatePositions(debris, t)
	}
	c.time = t
	subs := c.subscribersLocked()
	c.mu.Unlock()

	notify(subs, Event{Type: EventPositionsUpdated, Time: t})
}

// Time returns the time value of the last propagation.
func (c *Catalog) Time() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.time
}

// Counts returns the number of satellites, debris and predictions.
func (c *Catalog) Counts() (satellites, debris, collisions int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.satellites), len(c.debris), len(c.collisions)
}

// Subscribe registers a callback for catalog events. It returns an
// unsubscribe function. Callbacks run outside the catalog lock.
func (c *Catalog) Subscribe(fn func(Event)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

func (c *Catalog) subscribersLocked() []func(Event) {
	subs := make([]func(Event), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	return subs
}

// Notify subscribers outside the lock to avoid deadlocks.
func notify(subs []func(Event), ev Event) {
	for _, sub := range subs {
		sub(ev)
	}
}
