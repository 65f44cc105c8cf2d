// Package stats computes the dashboard overview from a catalog.
package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/rwandaorbitguard/orbit-guard/core"
	"github.com/rwandaorbitguard/orbit-guard/kb"
	"github.com/rwandaorbitguard/orbit-guard/model"
)

// AltitudeBand classifies an orbit by altitude above the Earth's surface.
type AltitudeBand string

const (
	BandLEO AltitudeBand = "LEO"
	BandMEO AltitudeBand = "MEO"
	BandGEO AltitudeBand = "GEO"
	BandHEO AltitudeBand = "HEO"
)

const (
	// LEOCeilingKm is the upper altitude of low Earth orbit.
	LEOCeilingKm = 2000.0
	// GEOToleranceKm is the half-width of the geostationary band.
	GEOToleranceKm = 200.0
)

// BandForAltitude returns the band for an altitude in km.
func BandForAltitude(alt float64) AltitudeBand {
	switch {
	case alt < LEOCeilingKm:
		return BandLEO
	case math.Abs(alt-core.GeostationaryAltitudeKm) <= GEOToleranceKm:
		return BandGEO
	case alt < core.GeostationaryAltitudeKm:
		return BandMEO
	default:
		return BandHEO
	}
}

// Overview is the summary shown on the dashboard landing page.
type Overview struct {
	TotalSatellites  int `json:"totalSatellites"`
	ActiveSatellites int `json:"activeSatellites"`
	TotalDebris      int `json:"totalDebris"`
	TotalCollisions  int `json:"totalCollisions"`
	// ActiveAlerts counts critical and high predictions not yet resolved.
	ActiveAlerts int `json:"activeAlerts"`
	// HealthPercent is the share of satellites that are active.
	HealthPercent float64 `json:"healthPercent"`

	SatellitesByType   map[model.SatelliteType]int   `json:"satellitesByType"`
	SatellitesByStatus map[model.SatelliteStatus]int `json:"satellitesByStatus"`
	DebrisBySize       map[model.DebrisSize]int      `json:"debrisBySize"`
	AlertsBySeverity   map[model.Severity]int        `json:"alertsBySeverity"`
	AltitudeBands      map[AltitudeBand]int          `json:"altitudeBands"`

	MeanAltitudeKm   float64 `json:"meanAltitudeKm"`
	StdDevAltitudeKm float64 `json:"stdDevAltitudeKm"`
	MeanProbability  float64 `json:"meanProbability"`
	// MeanTrackingConfidence averages debris tracking confidence.
	MeanTrackingConfidence float64 `json:"meanTrackingConfidence"`
}

// Compute builds an overview of everything in c.
func Compute(c *kb.Catalog) Overview {
	sats := c.ListSatellites(kb.SatelliteFilter{})
	debris := c.ListDebris(kb.DebrisFilter{})
	collisions := c.ListCollisions(kb.CollisionFilter{})

	o := Overview{
		TotalSatellites:    len(sats),
		TotalDebris:        len(debris),
		TotalCollisions:    len(collisions),
		SatellitesByType:   make(map[model.SatelliteType]int),
		SatellitesByStatus: make(map[model.SatelliteStatus]int),
		DebrisBySize:       make(map[model.DebrisSize]int),
		AlertsBySeverity:   make(map[model.Severity]int),
		AltitudeBands:      make(map[AltitudeBand]int),
	}

	altitudes := make([]float64, 0, len(sats))
	for _, s := range sats {
		o.SatellitesByType[s.Type]++
		o.SatellitesByStatus[s.Status]++
		if s.Status == model.StatusActive {
			o.ActiveSatellites++
		}
		alt := core.Altitude(s.Position)
		altitudes = append(altitudes, alt)
		o.AltitudeBands[BandForAltitude(alt)]++
	}
	if len(altitudes) > 0 {
		o.MeanAltitudeKm, o.StdDevAltitudeKm = stat.MeanStdDev(altitudes, nil)
		if len(altitudes) == 1 {
			o.StdDevAltitudeKm = 0
		}
		o.HealthPercent = 100 * float64(o.ActiveSatellites) / float64(len(sats))
	}

	confidence := make([]float64, 0, len(debris))
	for _, d := range debris {
		o.DebrisBySize[d.Size]++
		confidence = append(confidence, d.TrackingConfidence)
	}
	if len(confidence) > 0 {
		o.MeanTrackingConfidence = stat.Mean(confidence, nil)
	}

	probabilities := make([]float64, 0, len(collisions))
	for _, p := range collisions {
		o.AlertsBySeverity[p.Severity]++
		probabilities = append(probabilities, p.Probability)
		if (p.Severity == model.SeverityCritical || p.Severity == model.SeverityHigh) && p.Status != model.CollisionResolved {
			o.ActiveAlerts++
		}
	}
	if len(probabilities) > 0 {
		o.MeanProbability = stat.Mean(probabilities, nil)
	}
	return o
}
