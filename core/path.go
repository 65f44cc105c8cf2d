package core

import (
	"fmt"
	"math"

	"github.com/rwandaorbitguard/orbit-guard/model"
)

// DefaultPathSegments is the resolution of an orbit-path overlay.
const DefaultPathSegments = 128

// SampleOrbitPath returns segments+1 points evenly spaced in true anomaly
// around the full ellipse; the last point closes the loop. The true anomaly
// element itself is ignored.
func SampleOrbitPath(o model.OrbitParams, segments int) ([]model.Vector3D, error) {
	if segments <= 0 {
		return nil, fmt.Errorf("%w: path needs at least one segment, got %d", ErrInvalidOrbit, segments)
	}
	if err := ValidateOrbit(o); err != nil {
		return nil, err
	}
	points := make([]model.Vector3D, 0, segments+1)
	for j := 0; j <= segments; j++ {
		if o.SemiMajorAxis == 0 {
			points = append(points, model.Vector3D{})
			continue
		}
		theta := float64(j) / float64(segments) * 2 * math.Pi
		points = append(points, positionAtAnomaly(o, theta))
	}
	return points, nil
}
