// Package scene runs one visualization session: a generated population that
// is re-propagated on a fast tick, a slow clock that refreshes the displayed
// timestamp, and filtered snapshots for the API and stream.
package scene

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rwandaorbitguard/orbit-guard/core"
	"github.com/rwandaorbitguard/orbit-guard/internal/events"
	"github.com/rwandaorbitguard/orbit-guard/internal/logging"
	"github.com/rwandaorbitguard/orbit-guard/internal/mockdata"
	"github.com/rwandaorbitguard/orbit-guard/internal/observability"
	"github.com/rwandaorbitguard/orbit-guard/kb"
	"github.com/rwandaorbitguard/orbit-guard/model"
	"github.com/rwandaorbitguard/orbit-guard/timectrl"
)

// ErrStopped is returned when starting a scene that has been torn down.
var ErrStopped = errors.New("scene stopped")

const (
	DefaultTick         = 33 * time.Millisecond
	DefaultClockRefresh = time.Minute
	// MaxOrbitPaths caps how many satellites get an orbit overlay.
	MaxOrbitPaths = 10
	// DefaultPublishEvery is how many ticks pass between tick events.
	DefaultPublishEvery = 30
)

// Config sizes a scene and its timers.
type Config struct {
	Name         string
	Satellites   int
	Debris       int
	Collisions   int
	Seed         uint64
	Tick         time.Duration
	ClockRefresh time.Duration
	// TimeScale multiplies elapsed wall seconds into transform time units.
	TimeScale    float64
	PathSegments int
	PublishEvery int
}

// DefaultConfig matches the dashboard's defaults.
func DefaultConfig() Config {
	return Config{
		Name:         "default",
		Satellites:   50,
		Debris:       100,
		Collisions:   20,
		Tick:         DefaultTick,
		ClockRefresh: DefaultClockRefresh,
		TimeScale:    1,
		PathSegments: core.DefaultPathSegments,
		PublishEvery: DefaultPublishEvery,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Name == "" {
		c.Name = d.Name
	}
	if c.Tick <= 0 {
		c.Tick = d.Tick
	}
	if c.ClockRefresh <= 0 {
		c.ClockRefresh = d.ClockRefresh
	}
	if c.TimeScale == 0 {
		c.TimeScale = d.TimeScale
	}
	if c.PathSegments <= 0 {
		c.PathSegments = d.PathSegments
	}
	if c.PublishEvery <= 0 {
		c.PublishEvery = d.PublishEvery
	}
	return c
}

// ReferenceTLE is a real object added to the scene and propagated with SGP4.
type ReferenceTLE struct {
	ID      string              `json:"id"`
	Name    string              `json:"name"`
	Line1   string              `json:"line1"`
	Line2   string              `json:"line2"`
	Type    model.SatelliteType `json:"type,omitempty"`
	Country string              `json:"country,omitempty"`
}

// Scene owns a catalog and the two timers that drive it.
type Scene struct {
	cfg       Config
	catalog   *kb.Catalog
	gen       *mockdata.Generator
	log       logging.Logger
	metrics   *observability.SceneCollector
	publisher events.Publisher
	clock     func() time.Time
	refs      []ReferenceTLE

	ticks       atomic.Int64
	lastUpdated atomic.Int64

	mu        sync.Mutex
	started   bool
	stopped   bool
	cancel    context.CancelFunc
	fast      *timectrl.TimeController
	slow      *timectrl.TimeController
	fastDone  <-chan struct{}
	slowDone  <-chan struct{}
	startedAt time.Time
}

// Option customises Scene construction.
type Option func(*Scene)

// WithGenerator supplies the population generator; otherwise one is seeded
// from Config.Seed (or the wall clock when the seed is zero).
func WithGenerator(g *mockdata.Generator) Option {
	return func(s *Scene) { s.gen = g }
}

// WithLogger sets the scene logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Scene) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMetrics reports ticks and population sizes to m.
func WithMetrics(m *observability.SceneCollector) Option {
	return func(s *Scene) { s.metrics = m }
}

// WithPublisher sends tick and collision events to p.
func WithPublisher(p events.Publisher) Option {
	return func(s *Scene) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *Scene) { s.clock = now }
}

// WithReferenceTLEs adds TLE-backed satellites alongside the generated ones.
func WithReferenceTLEs(refs ...ReferenceTLE) Option {
	return func(s *Scene) { s.refs = append(s.refs, refs...) }
}

// New builds a scene and generates its population. The timers are not
// running until Start.
func New(cfg Config, opts ...Option) (*Scene, error) {
	if cfg.Satellites < 0 || cfg.Debris < 0 || cfg.Collisions < 0 {
		return nil, fmt.Errorf("scene %q: negative population size", cfg.Name)
	}
	s := &Scene{
		cfg:       cfg.withDefaults(),
		log:       logging.Noop(),
		publisher: events.Noop(),
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.gen == nil {
		seed := s.cfg.Seed
		if seed == 0 {
			seed = uint64(s.clock().UnixNano())
		}
		s.gen = mockdata.NewSeeded(seed, mockdata.WithClock(s.clock))
	}
	s.log = s.log.With(logging.Scene(s.cfg.Name))

	now := s.clock()
	s.catalog = kb.NewCatalog(kb.WithPropagator(core.NewPropagator(now)))
	s.lastUpdated.Store(now.UnixNano())

	if err := s.populate(now); err != nil {
		return nil, err
	}
	if err := s.RefreshCollisions(context.Background()); err != nil && !errors.Is(err, mockdata.ErrEmptyPool) {
		return nil, err
	}
	sats, debris, _ := s.catalog.Counts()
	s.metrics.SetPopulation(sats, debris)
	return s, nil
}

func (s *Scene) populate(now time.Time) error {
	for _, sat := range s.gen.Satellites(s.cfg.Satellites) {
		if err := s.catalog.AddSatellite(sat); err != nil {
			return fmt.Errorf("scene %q: %w", s.cfg.Name, err)
		}
	}
	for _, d := range s.gen.Debris(s.cfg.Debris) {
		if err := s.catalog.AddDebris(d); err != nil {
			return fmt.Errorf("scene %q: %w", s.cfg.Name, err)
		}
	}
	for _, ref := range s.refs {
		sat, err := referenceSatellite(ref, now)
		if err != nil {
			return fmt.Errorf("scene %q: reference %q: %w", s.cfg.Name, ref.ID, err)
		}
		if err := s.catalog.AddSatellite(sat); err != nil {
			return fmt.Errorf("scene %q: %w", s.cfg.Name, err)
		}
	}
	if len(s.refs) > 0 {
		s.catalog.Propagate(0)
	}
	return nil
}

func referenceSatellite(ref ReferenceTLE, now time.Time) (*model.Satellite, error) {
	orbit, err := core.ElementsFromTLE(ref.Line1, ref.Line2)
	if err != nil {
		return nil, err
	}
	typ := ref.Type
	if typ == "" {
		typ = model.SatelliteResearch
	}
	return &model.Satellite{
		Object: model.Object{
			ID:    ref.ID,
			Name:  ref.Name,
			Orbit: orbit,
		},
		Type:       typ,
		Status:     model.StatusActive,
		LastUpdate: now,
		Country:    ref.Country,
		TLE:        &model.TLE{Line1: ref.Line1, Line2: ref.Line2},
	}, nil
}

// Name returns the scene name.
func (s *Scene) Name() string { return s.cfg.Name }

// Config returns the effective configuration.
func (s *Scene) Config() Config { return s.cfg }

// Catalog exposes the scene's catalog.
func (s *Scene) Catalog() *kb.Catalog { return s.catalog }

// Ticks returns how many fast ticks have run.
func (s *Scene) Ticks() int64 { return s.ticks.Load() }

// LastUpdated returns the timestamp the slow clock last refreshed.
func (s *Scene) LastUpdated() time.Time { return time.Unix(0, s.lastUpdated.Load()) }

// Running reports whether the timers are active.
func (s *Scene) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started && !s.stopped
}

// Start launches the fast propagation tick and the slow clock refresh. Both
// stop when ctx is cancelled or Stop is called. Starting a running scene is
// a no-op; starting a stopped one fails with ErrStopped.
func (s *Scene) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrStopped
	}
	if s.started {
		return nil
	}

	ctx, s.cancel = context.WithCancel(ctx)
	now := s.clock()
	s.startedAt = now
	s.fast = timectrl.NewTimeController(now, s.cfg.Tick, timectrl.RealTime)
	s.fast.AddListener(func(simNow time.Time) { s.onTick(ctx, simNow) })
	s.slow = timectrl.NewTimeController(now, s.cfg.ClockRefresh, timectrl.RealTime)
	s.slow.AddListener(func(time.Time) { s.lastUpdated.Store(s.clock().UnixNano()) })

	s.fastDone = s.fast.Start(0)
	s.slowDone = s.slow.Start(0)
	fast, slow := s.fast, s.slow
	go func() {
		<-ctx.Done()
		fast.Stop()
		slow.Stop()
	}()
	s.started = true

	s.log.Info(ctx, "scene started",
		logging.Duration("tick", s.cfg.Tick),
		logging.Duration("clock_refresh", s.cfg.ClockRefresh),
		logging.Float64("time_scale", s.cfg.TimeScale),
	)
	return nil
}

// Stop cancels both timers and waits for an in-progress tick to finish. It
// is safe to call more than once.
func (s *Scene) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	cancel, fastDone, slowDone := s.cancel, s.fastDone, s.slowDone
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-fastDone
	<-slowDone
	s.log.Info(context.Background(), "scene stopped", logging.Int("ticks", int(s.ticks.Load())))
}

func (s *Scene) onTick(ctx context.Context, simNow time.Time) {
	t := simNow.Sub(s.startedAt).Seconds() * s.cfg.TimeScale
	s.Step(t)

	n := s.ticks.Add(1)
	if n%int64(s.cfg.PublishEvery) != 0 {
		return
	}
	sats, debris, _ := s.catalog.Counts()
	err := s.publisher.Publish(ctx, events.ChannelTicks, events.TickEvent{
		Scene:      s.cfg.Name,
		Time:       t,
		Satellites: sats,
		Debris:     debris,
		At:         s.clock(),
	})
	if err != nil {
		s.log.Debug(ctx, "tick event dropped", logging.Err(err))
	}
}

// Step recomputes every position at time value t.
func (s *Scene) Step(t float64) {
	start := time.Now()
	s.catalog.Propagate(t)
	s.metrics.ObserveTick(time.Since(start))
}

// RefreshCollisions replaces the predictions with a fresh batch drawn from
// the current population.
func (s *Scene) RefreshCollisions(ctx context.Context) error {
	sats := mockdata.Refs(s.catalog.ListSatellites(kb.SatelliteFilter{}))
	debris := mockdata.Refs(s.catalog.ListDebris(kb.DebrisFilter{}))
	preds, err := s.gen.Collisions(sats, debris, s.cfg.Collisions)
	if err != nil {
		return fmt.Errorf("scene %q: %w", s.cfg.Name, err)
	}
	s.catalog.ReplaceCollisions(preds)

	now := s.clock()
	bySeverity := make(map[string]int, 4)
	for _, p := range preds {
		bySeverity[string(p.Severity)]++
		if p.Severity == model.SeverityCritical {
			s.log.Debug(ctx, "critical conjunction",
				logging.Object(p.ID),
				logging.Severity(p.Severity),
				logging.SimTime(now),
			)
		}
	}
	s.metrics.SetCollisions(bySeverity)
	if err := s.publisher.Publish(ctx, events.ChannelCollisions, events.CollisionsEvent{
		Scene:      s.cfg.Name,
		Total:      len(preds),
		BySeverity: bySeverity,
		At:         now,
	}); err != nil {
		s.log.Warn(ctx, "collision event dropped", logging.Err(err))
	}
	return nil
}

// Subscribe forwards catalog events to fn until the returned func is called.
func (s *Scene) Subscribe(fn func(kb.Event)) (unsubscribe func()) {
	return s.catalog.Subscribe(fn)
}
