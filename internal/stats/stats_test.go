package stats

import (
	"math"
	"testing"

	"github.com/rwandaorbitguard/orbit-guard/core"
	"github.com/rwandaorbitguard/orbit-guard/kb"
	"github.com/rwandaorbitguard/orbit-guard/model"
)

func satAt(id string, alt float64, typ model.SatelliteType, status model.SatelliteStatus) *model.Satellite {
	r := core.EarthRadiusKm + alt
	return &model.Satellite{
		Object: model.Object{
			ID:       id,
			Name:     id,
			Position: model.Vector3D{X: r},
			Orbit:    model.OrbitParams{SemiMajorAxis: r},
		},
		Type:   typ,
		Status: status,
	}
}

func TestBandForAltitude(t *testing.T) {
	cases := []struct {
		alt  float64
		want AltitudeBand
	}{
		{400, BandLEO},
		{1999, BandLEO},
		{2000, BandMEO},
		{20200, BandMEO},
		{35585, BandMEO},
		{35700, BandGEO},
		{35986, BandGEO},
		{36000, BandHEO},
	}
	for _, tc := range cases {
		if got := BandForAltitude(tc.alt); got != tc.want {
			t.Fatalf("BandForAltitude(%v) = %s, want %s", tc.alt, got, tc.want)
		}
	}
}

func TestComputeOverview(t *testing.T) {
	c := kb.NewCatalog()
	for _, s := range []*model.Satellite{
		satAt("a", 500, model.SatelliteWeather, model.StatusActive),
		satAt("b", 1500, model.SatelliteWeather, model.StatusInactive),
		satAt("c", 35786, model.SatelliteCommunication, model.StatusActive),
		satAt("d", 20000, model.SatelliteNavigation, model.StatusActive),
	} {
		if err := c.AddSatellite(s); err != nil {
			t.Fatalf("AddSatellite: %v", err)
		}
	}
	for i, conf := range []float64{0.5, 0.9} {
		d := &model.Debris{
			Object:             model.Object{ID: []string{"x", "y"}[i], Orbit: model.OrbitParams{SemiMajorAxis: 7000}},
			Size:               model.DebrisSmall,
			TrackingConfidence: conf,
		}
		if err := c.AddDebris(d); err != nil {
			t.Fatalf("AddDebris: %v", err)
		}
	}
	c.ReplaceCollisions([]model.CollisionPrediction{
		{ID: "c1", Severity: model.SeverityCritical, Status: model.CollisionPredicted, Probability: 0.8},
		{ID: "c2", Severity: model.SeverityHigh, Status: model.CollisionResolved, Probability: 0.5},
		{ID: "c3", Severity: model.SeverityHigh, Status: model.CollisionMonitoring, Probability: 0.45},
		{ID: "c4", Severity: model.SeverityLow, Status: model.CollisionPredicted, Probability: 0.05},
	})

	o := Compute(c)

	if o.TotalSatellites != 4 || o.ActiveSatellites != 3 || o.TotalDebris != 2 || o.TotalCollisions != 4 {
		t.Fatalf("unexpected totals: %+v", o)
	}
	if o.ActiveAlerts != 2 {
		t.Fatalf("ActiveAlerts = %d, want 2", o.ActiveAlerts)
	}
	if o.HealthPercent != 75 {
		t.Fatalf("HealthPercent = %v, want 75", o.HealthPercent)
	}
	if o.SatellitesByType[model.SatelliteWeather] != 2 || o.SatellitesByStatus[model.StatusInactive] != 1 {
		t.Fatalf("unexpected breakdowns: %+v %+v", o.SatellitesByType, o.SatellitesByStatus)
	}
	wantBands := map[AltitudeBand]int{BandLEO: 2, BandMEO: 1, BandGEO: 1}
	for band, n := range wantBands {
		if o.AltitudeBands[band] != n {
			t.Fatalf("band %s = %d, want %d (all %v)", band, o.AltitudeBands[band], n, o.AltitudeBands)
		}
	}
	if math.Abs(o.MeanAltitudeKm-(500+1500+35786+20000)/4.0) > 1e-6 {
		t.Fatalf("MeanAltitudeKm = %v", o.MeanAltitudeKm)
	}
	if o.StdDevAltitudeKm <= 0 {
		t.Fatalf("StdDevAltitudeKm = %v", o.StdDevAltitudeKm)
	}
	if math.Abs(o.MeanTrackingConfidence-0.7) > 1e-12 {
		t.Fatalf("MeanTrackingConfidence = %v", o.MeanTrackingConfidence)
	}
	if math.Abs(o.MeanProbability-0.45) > 1e-12 {
		t.Fatalf("MeanProbability = %v", o.MeanProbability)
	}
}

func TestComputeEmptyCatalog(t *testing.T) {
	o := Compute(kb.NewCatalog())
	if o.TotalSatellites != 0 || o.HealthPercent != 0 || o.MeanAltitudeKm != 0 || math.IsNaN(o.StdDevAltitudeKm) {
		t.Fatalf("unexpected overview for empty catalog: %+v", o)
	}
}

func TestComputeSingleSatelliteHasZeroSpread(t *testing.T) {
	c := kb.NewCatalog()
	if err := c.AddSatellite(satAt("solo", 800, model.SatelliteResearch, model.StatusActive)); err != nil {
		t.Fatalf("AddSatellite: %v", err)
	}
	if o := Compute(c); o.StdDevAltitudeKm != 0 {
		t.Fatalf("StdDevAltitudeKm = %v, want 0", o.StdDevAltitudeKm)
	}
}
