package model

import "math"

// OrbitParams holds the six classical orbital elements of an object.
// Lengths are kilometres, angles are degrees.
type OrbitParams struct {
	SemiMajorAxis     float64 `json:"semiMajorAxis"`
	Eccentricity      float64 `json:"eccentricity"`
	Inclination       float64 `json:"inclination"`
	RightAscension    float64 `json:"rightAscension"`
	ArgumentOfPerigee float64 `json:"argumentOfPerigee"`
	TrueAnomaly       float64 `json:"trueAnomaly"`
}

// Vector3D is an Earth-centred inertial vector in kilometres (or km/s for
// velocities).
type Vector3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Norm returns the Euclidean norm of the vector.
func (v Vector3D) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// DistanceTo returns the straight-line distance between two points.
func (v Vector3D) DistanceTo(other Vector3D) float64 {
	return v.Sub(other).Norm()
}

// Add returns v + other.
func (v Vector3D) Add(other Vector3D) Vector3D {
	return Vector3D{X: v.X + other.X, Y: v.Y + other.Y, Z: v.Z + other.Z}
}

// Sub returns v - other.
func (v Vector3D) Sub(other Vector3D) Vector3D {
	return Vector3D{X: v.X - other.X, Y: v.Y - other.Y, Z: v.Z - other.Z}
}

// Scale returns v multiplied by f.
func (v Vector3D) Scale(f float64) Vector3D {
	return Vector3D{X: v.X * f, Y: v.Y * f, Z: v.Z * f}
}

// Dot returns the dot product of two vectors.
func (v Vector3D) Dot(other Vector3D) float64 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

// IsFinite reports whether no component is NaN or infinite.
func (v Vector3D) IsFinite() bool {
	for _, c := range [...]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
