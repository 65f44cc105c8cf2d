package scene

import (
	"time"

	"github.com/rwandaorbitguard/orbit-guard/core"
	"github.com/rwandaorbitguard/orbit-guard/kb"
	"github.com/rwandaorbitguard/orbit-guard/model"
)

// Filters mirror the visualization controls.
type Filters struct {
	ShowSatellites bool
	ShowDebris     bool
	ShowOrbits     bool
	ShowCollisions bool

	Satellites kb.SatelliteFilter
	Debris     kb.DebrisFilter
	Collisions kb.CollisionFilter
}

// DefaultFilters shows everything.
func DefaultFilters() Filters {
	return Filters{ShowSatellites: true, ShowDebris: true, ShowOrbits: true, ShowCollisions: true}
}

// OrbitPath is a sampled orbit overlay for one satellite.
type OrbitPath struct {
	ObjectID string           `json:"objectId"`
	Points   []model.Vector3D `json:"points"`
}

// Snapshot is a consistent-enough view of a scene for rendering.
type Snapshot struct {
	Scene       string                      `json:"scene"`
	Time        float64                     `json:"time"`
	LastUpdated time.Time                   `json:"lastUpdated"`
	Satellites  []model.Satellite           `json:"satellites"`
	Debris      []model.Debris              `json:"debris"`
	Collisions  []model.CollisionPrediction `json:"collisions"`
	OrbitPaths  []OrbitPath                 `json:"orbitPaths,omitempty"`
}

// Snapshot returns the objects passing f. Orbit paths are sampled for the
// first MaxOrbitPaths visible satellites when f.ShowOrbits is set.
func (s *Scene) Snapshot(f Filters) Snapshot {
	snap := Snapshot{
		Scene:       s.cfg.Name,
		Time:        s.catalog.Time(),
		LastUpdated: s.LastUpdated(),
		Satellites:  []model.Satellite{},
		Debris:      []model.Debris{},
		Collisions:  []model.CollisionPrediction{},
	}
	if f.ShowSatellites {
		snap.Satellites = s.catalog.ListSatellites(f.Satellites)
	}
	if f.ShowDebris {
		snap.Debris = s.catalog.ListDebris(f.Debris)
	}
	if f.ShowCollisions {
		snap.Collisions = s.catalog.ListCollisions(f.Collisions)
	}
	if f.ShowOrbits {
		for _, sat := range snap.Satellites {
			if len(snap.OrbitPaths) == MaxOrbitPaths {
				break
			}
			points, err := core.SampleOrbitPath(sat.Orbit, s.cfg.PathSegments)
			if err != nil {
				continue
			}
			snap.OrbitPaths = append(snap.OrbitPaths, OrbitPath{ObjectID: sat.ID, Points: points})
		}
	}
	return snap
}

// OrbitPath samples the orbit of any object in the scene.
func (s *Scene) OrbitPath(id string) (OrbitPath, error) {
	orbit, _, err := s.catalog.Orbit(id)
	if err != nil {
		return OrbitPath{}, err
	}
	points, err := core.SampleOrbitPath(orbit, s.cfg.PathSegments)
	if err != nil {
		return OrbitPath{}, err
	}
	return OrbitPath{ObjectID: id, Points: points}, nil
}
