package core

import "github.com/rwandaorbitguard/orbit-guard/model"

// EarthRadiusKm is the mean Earth radius used for altitude bands, mock orbit
// generation and scene scaling (kilometres).
const EarthRadiusKm = 6371.0

// GeostationaryAltitudeKm is the altitude of the geostationary belt.
const GeostationaryAltitudeKm = 35786.0

// Altitude returns the height above the mean Earth sphere of an inertial
// position in kilometres.
func Altitude(pos model.Vector3D) float64 {
	return pos.Norm() - EarthRadiusKm
}

// ScaleToEarthRadii converts kilometres into scene units where the Earth
// radius is 1.
func ScaleToEarthRadii(v model.Vector3D) model.Vector3D {
	return v.Scale(1 / EarthRadiusKm)
}
