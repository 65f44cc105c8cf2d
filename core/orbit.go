package core

import (
	"errors"
	"fmt"
	"math"

	"github.com/rwandaorbitguard/orbit-guard/model"
)

// AnomalyRateDegPerUnit is how far the true anomaly advances per unit of
// time. The advance is linear: Kepler's equation is deliberately not solved,
// so eccentric orbits move at a constant angular rate.
const AnomalyRateDegPerUnit = 0.1

var (
	// ErrInvalidOrbit indicates non-finite elements or a negative semi-major axis.
	ErrInvalidOrbit = errors.New("invalid orbit")
	// ErrUnboundedOrbit indicates an eccentricity outside [0,1).
	ErrUnboundedOrbit = errors.New("unbounded orbit")
)

// ValidateOrbit checks that the elements describe a bounded elliptical orbit.
func ValidateOrbit(o model.OrbitParams) error {
	for _, f := range [...]struct {
		name string
		v    float64
	}{
		{"semiMajorAxis", o.SemiMajorAxis},
		{"eccentricity", o.Eccentricity},
		{"inclination", o.Inclination},
		{"rightAscension", o.RightAscension},
		{"argumentOfPerigee", o.ArgumentOfPerigee},
		{"trueAnomaly", o.TrueAnomaly},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%w: %s is not finite", ErrInvalidOrbit, f.name)
		}
	}
	if o.SemiMajorAxis < 0 {
		return fmt.Errorf("%w: semi-major axis %g km is negative", ErrInvalidOrbit, o.SemiMajorAxis)
	}
	if o.Eccentricity < 0 || o.Eccentricity >= 1 {
		return fmt.Errorf("%w: eccentricity %g outside [0,1)", ErrUnboundedOrbit, o.Eccentricity)
	}
	return nil
}

// Position converts orbital elements to an inertial position at time t.
// The result is in the same length unit as the semi-major axis. A zero
// semi-major axis is a degenerate orbit pinned to the origin.
func Position(o model.OrbitParams, t float64) (model.Vector3D, error) {
	if err := ValidateOrbit(o); err != nil {
		return model.Vector3D{}, err
	}
	if o.SemiMajorAxis == 0 {
		return model.Vector3D{}, nil
	}
	theta := degToRad(o.TrueAnomaly + t*AnomalyRateDegPerUnit)
	return positionAtAnomaly(o, theta), nil
}

// positionAtAnomaly places the body at true anomaly theta (radians) on the
// ellipse and rotates it into the inertial frame with the 3-1-3 sequence
// (Ω, i, ω). Elements must already be validated.
func positionAtAnomaly(o model.OrbitParams, theta float64) model.Vector3D {
	i := degToRad(o.Inclination)
	raan := degToRad(o.RightAscension)
	w := degToRad(o.ArgumentOfPerigee)

	e := o.Eccentricity
	r := o.SemiMajorAxis * (1 - e*e) / (1 + e*math.Cos(theta))
	xOrbit := r * math.Cos(theta)
	yOrbit := r * math.Sin(theta)

	cosO, sinO := math.Cos(raan), math.Sin(raan)
	cosW, sinW := math.Cos(w), math.Sin(w)
	cosI, sinI := math.Cos(i), math.Sin(i)

	return model.Vector3D{
		X: xOrbit*(cosO*cosW-sinO*sinW*cosI) - yOrbit*(cosO*sinW+sinO*cosW*cosI),
		Y: xOrbit*(sinO*cosW+cosO*sinW*cosI) + yOrbit*(cosO*cosW*cosI-sinO*sinW),
		Z: xOrbit*sinW*sinI + yOrbit*cosW*sinI,
	}
}

// PerigeeRadius returns a(1-e), the closest distance to the central body.
func PerigeeRadius(o model.OrbitParams) float64 {
	return o.SemiMajorAxis * (1 - o.Eccentricity)
}

// ApogeeRadius returns a(1+e).
func ApogeeRadius(o model.OrbitParams) float64 {
	return o.SemiMajorAxis * (1 + o.Eccentricity)
}

func degToRad(deg float64) float64 { return deg * math.Pi / 180 }

func radToDeg(rad float64) float64 { return rad * 180 / math.Pi }

// normalizeDegrees wraps an angle into [0,360).
func normalizeDegrees(angle float64) float64 {
	wrapped := math.Mod(angle, 360)
	if wrapped < 0 {
		wrapped += 360
	}
	return wrapped
}
