// Package mockdata generates the mock satellite, debris and collision
// populations shown by the dashboard. All randomness comes from an injected
// source so batches are reproducible.
package mockdata

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rwandaorbitguard/orbit-guard/core"
	"github.com/rwandaorbitguard/orbit-guard/model"
)

// ErrEmptyPool indicates collision pairing was asked for with no objects.
var ErrEmptyPool = errors.New("no objects to pair")

// Orbit bands for generated objects, as altitudes above EarthRadiusKm.
const (
	SatelliteMinAltitudeKm = 400.0
	SatelliteAltitudeSpan  = 35000.0
	SatelliteMaxEcc        = 0.1

	DebrisMinAltitudeKm = 300.0
	DebrisAltitudeSpan  = 2000.0
	DebrisMaxEcc        = 0.3

	// PredictionWindow bounds how far ahead a conjunction may be predicted.
	PredictionWindow = 7 * 24 * time.Hour
	// MaxMissDistanceKm bounds generated minimum distances.
	MaxMissDistanceKm = 50.0
)

// Generator produces mock populations. It is safe for concurrent use.
type Generator struct {
	mu     sync.Mutex
	rng    *rand.Rand
	now    func() time.Time
	labels Labels

	satSeq       int
	debrisSeq    int
	collisionSeq int
}

// Option customises Generator construction.
type Option func(*Generator)

// WithClock overrides the clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithLabels overrides the label sets; empty sets keep their defaults.
func WithLabels(l Labels) Option {
	return func(g *Generator) { g.labels = l.withDefaults() }
}

// New constructs a generator drawing from rng.
func New(rng *rand.Rand, opts ...Option) *Generator {
	g := &Generator{
		rng:    rng,
		now:    time.Now,
		labels: DefaultLabels(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NewSeeded constructs a generator with a PCG source derived from seed.
func NewSeeded(seed uint64, opts ...Option) *Generator {
	return New(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), opts...)
}

// Satellites generates n satellites between low-Earth and geostationary
// altitude. Ids continue from previous batches of the same generator.
func (g *Generator) Satellites(n int) []*model.Satellite {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	res := make([]*model.Satellite, 0, max(n, 0))
	for range n {
		g.satSeq++
		orbit := g.orbit(SatelliteMinAltitudeKm, SatelliteAltitudeSpan, SatelliteMaxEcc)
		res = append(res, &model.Satellite{
			Object: model.Object{
				ID:       fmt.Sprintf("sat-%d", g.satSeq),
				Name:     fmt.Sprintf("SAT-%04d", g.satSeq),
				Position: initialPosition(orbit),
				Velocity: g.vector(4),
				Orbit:    orbit,
			},
			Type:       pick(g.rng, g.labels.SatelliteTypes),
			Status:     pick(g.rng, g.labels.SatelliteStatuses),
			LastUpdate: now.Add(-time.Duration(g.rng.Float64() * float64(time.Hour))),
			Country:    pick(g.rng, g.labels.Countries),
			LaunchDate: now.Add(-time.Duration(g.rng.Float64() * float64(10*365*24*time.Hour))),
		})
	}
	return res
}

// Debris generates m fragments, mostly in low-Earth orbit.
func (g *Generator) Debris(m int) []*model.Debris {
	g.mu.Lock()
	defer g.mu.Unlock()

	res := make([]*model.Debris, 0, max(m, 0))
	for range m {
		g.debrisSeq++
		orbit := g.orbit(DebrisMinAltitudeKm, DebrisAltitudeSpan, DebrisMaxEcc)
		res = append(res, &model.Debris{
			Object: model.Object{
				ID:       fmt.Sprintf("debris-%d", g.debrisSeq),
				Name:     fmt.Sprintf("DEBRIS-%05d", g.debrisSeq),
				Position: initialPosition(orbit),
				Velocity: g.vector(5),
				Orbit:    orbit,
			},
			Size:               pick(g.rng, g.labels.DebrisSizes),
			Source:             pick(g.rng, g.labels.DebrisSources),
			TrackingConfidence: 0.4 + g.rng.Float64()*0.6,
		})
	}
	return res
}

// Collisions pairs k random objects. Object 1 comes from the satellite pool
// half of the time and object 2 seventy percent of the time; an empty pool
// falls back to the other one.
func (g *Generator) Collisions(satellites, debris []model.ObjectRef, k int) ([]model.CollisionPrediction, error) {
	if k > 0 && len(satellites) == 0 && len(debris) == 0 {
		return nil, fmt.Errorf("%w: satellite and debris pools are empty", ErrEmptyPool)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	res := make([]model.CollisionPrediction, 0, max(k, 0))
	for range k {
		g.collisionSeq++
		obj1 := g.draw(satellites, debris, g.rng.Float64() > 0.5)
		obj2 := g.draw(satellites, debris, g.rng.Float64() > 0.3)

		severity := pick(g.rng, g.labels.Severities)
		res = append(res, model.CollisionPrediction{
			ID:              fmt.Sprintf("collision-%d", g.collisionSeq),
			Object1:         obj1,
			Object2:         obj2,
			PredictedTime:   now.Add(time.Duration(g.rng.Float64() * float64(PredictionWindow))),
			Probability:     g.probability(severity),
			MinimumDistance: g.rng.Float64() * MaxMissDistanceKm,
			Severity:        severity,
			Status:          pick(g.rng, g.labels.CollisionStatuses),
		})
	}
	return res, nil
}

func (g *Generator) draw(satellites, debris []model.ObjectRef, preferSatellite bool) model.ObjectRef {
	pool := debris
	if (preferSatellite && len(satellites) > 0) || len(debris) == 0 {
		pool = satellites
	}
	return pool[g.rng.IntN(len(pool))]
}

func (g *Generator) probability(s model.Severity) float64 {
	lo, hi := ProbabilityBand(s)
	p := lo + g.rng.Float64()*(hi-lo)
	if p >= hi {
		p = math.Nextafter(hi, lo)
	}
	return p
}

func (g *Generator) orbit(minAltitude, span, maxEcc float64) model.OrbitParams {
	return model.OrbitParams{
		SemiMajorAxis:     core.EarthRadiusKm + minAltitude + g.rng.Float64()*span,
		Eccentricity:      g.rng.Float64() * maxEcc,
		Inclination:       g.rng.Float64() * 180,
		RightAscension:    g.rng.Float64() * 360,
		ArgumentOfPerigee: g.rng.Float64() * 360,
		TrueAnomaly:       g.rng.Float64() * 360,
	}
}

// vector draws each component from [-limit, limit). Velocities are
// illustrative and unrelated to the orbit.
func (g *Generator) vector(limit float64) model.Vector3D {
	return model.Vector3D{
		X: g.rng.Float64()*2*limit - limit,
		Y: g.rng.Float64()*2*limit - limit,
		Z: g.rng.Float64()*2*limit - limit,
	}
}

// Generated orbits are always bounded, so the transform cannot fail here.
func initialPosition(o model.OrbitParams) model.Vector3D {
	pos, _ := core.Position(o, 0)
	return pos
}

func pick[T any](rng *rand.Rand, set []T) T {
	return set[rng.IntN(len(set))]
}

// Refs converts objects into collision-pair references.
func Refs[T interface{ Ref() model.ObjectRef }](objs []T) []model.ObjectRef {
	res := make([]model.ObjectRef, 0, len(objs))
	for _, o := range objs {
		res = append(res, o.Ref())
	}
	return res
}
