package core

import (
	"fmt"
	"sync"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/rwandaorbitguard/orbit-guard/model"
)

// MotionModel yields an object's position at time t, measured in seconds
// from epoch.
type MotionModel interface {
	PositionAt(epoch time.Time, t float64) (model.Vector3D, error)
}

// KeplerianMotionModel applies the simplified element transform. The epoch is
// ignored: the elements themselves are the reference state.
type KeplerianMotionModel struct {
	Orbit model.OrbitParams
}

// PositionAt implements MotionModel.
func (m *KeplerianMotionModel) PositionAt(_ time.Time, t float64) (model.Vector3D, error) {
	return Position(m.Orbit, t)
}

// OrbitalSGP4MotionModel uses a TLE and SGP4 to propagate a real object.
type OrbitalSGP4MotionModel struct {
	sat satellite.Satellite
}

// NewOrbitalModelFromTLE constructs an orbital model from TLE lines. The lines
// are validated first since go-satellite does not report parse failures.
func NewOrbitalModelFromTLE(line1, line2 string) (*OrbitalSGP4MotionModel, error) {
	if err := ValidateTLE(line1, line2); err != nil {
		return nil, err
	}
	sat := satellite.TLEToSat(line1, line2, satellite.GravityWGS72)
	return &OrbitalSGP4MotionModel{sat: sat}, nil
}

// PositionAt propagates to epoch+t seconds and returns the inertial (TEME)
// position. go-satellite works in kilometres, as does the catalog.
//
// Propagate only takes whole seconds, so the fraction is covered by
// stepping along the velocity at the whole second. Over less than a second
// that stays within a few metres of the true track.
func (m *OrbitalSGP4MotionModel) PositionAt(epoch time.Time, t float64) (model.Vector3D, error) {
	at := epoch.Add(time.Duration(t * float64(time.Second))).UTC()
	whole := at.Truncate(time.Second)
	frac := at.Sub(whole).Seconds()
	year, month, day := whole.Date()
	hour, min, sec := whole.Clock()

	posECI, velECI := satellite.Propagate(m.sat, year, int(month), day, hour, min, sec)
	pos := model.Vector3D{X: posECI.X, Y: posECI.Y, Z: posECI.Z}
	vel := model.Vector3D{X: velECI.X, Y: velECI.Y, Z: velECI.Z}
	pos = pos.Add(vel.Scale(frac))
	if !pos.IsFinite() {
		return model.Vector3D{}, fmt.Errorf("sgp4 propagation to %s diverged", at.Format(time.RFC3339))
	}
	return pos, nil
}

// NewMotionModel chooses SGP4 for TLE-backed satellites and the Keplerian
// transform otherwise.
func NewMotionModel(s *model.Satellite) (MotionModel, error) {
	if s.TLE != nil {
		return NewOrbitalModelFromTLE(s.TLE.Line1, s.TLE.Line2)
	}
	return &KeplerianMotionModel{Orbit: s.Orbit}, nil
}

// Propagator advances a whole population. Generated objects follow the
// element transform; TLE-backed satellites are propagated with SGP4 from the
// propagator's epoch.
type Propagator struct {
	epoch time.Time

	mu     sync.Mutex
	models map[string]MotionModel
}

// NewPropagator constructs a propagator anchored at epoch.
func NewPropagator(epoch time.Time) *Propagator {
	return &Propagator{
		epoch:  epoch,
		models: make(map[string]MotionModel),
	}
}

// Epoch returns the reference time for SGP4 propagation.
func (p *Propagator) Epoch() time.Time { return p.epoch }

// Propagate recomputes positions in place at time t.
func (p *Propagator) Propagate(sats []*model.Satellite, debris []*model.Debris, t float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	keplerian := make([]*model.Satellite, 0, len(sats))
	for _, s := range sats {
		if s.TLE == nil {
			keplerian = append(keplerian, s)
			continue
		}
		m, ok := p.models[s.ID]
		if !ok {
			var err error
			if m, err = NewMotionModel(s); err != nil {
				continue
			}
			p.models[s.ID] = m
		}
		if pos, err := m.PositionAt(p.epoch, t); err == nil {
			s.Position = pos
		}
	}
	UpdatePositions(keplerian, t)
	UpdatePositions(debris, t)
}
