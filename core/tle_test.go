package core

import (
	"errors"
	"math"
	"strings"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
)

// ISS element set with valid checksums.
const (
	issLine1 = "1 25544U 98067A   21275.59097222  .00000204  00000-0  10270-4 0  9993"
	issLine2 = "2 25544  51.6459 115.9059 0001817  61.3028  35.9198 15.49370953257767"
)

func TestElementsFromTLE(t *testing.T) {
	o, err := ElementsFromTLE(issLine1, issLine2)
	if err != nil {
		t.Fatalf("ElementsFromTLE: %v", err)
	}
	if !scalar.EqualWithinAbs(o.Inclination, 51.6459, 1e-9) {
		t.Fatalf("inclination = %v", o.Inclination)
	}
	if !scalar.EqualWithinAbs(o.RightAscension, 115.9059, 1e-9) {
		t.Fatalf("raan = %v", o.RightAscension)
	}
	if !scalar.EqualWithinAbs(o.Eccentricity, 0.0001817, 1e-12) {
		t.Fatalf("eccentricity = %v", o.Eccentricity)
	}
	if !scalar.EqualWithinAbs(o.ArgumentOfPerigee, 61.3028, 1e-9) {
		t.Fatalf("argument of perigee = %v", o.ArgumentOfPerigee)
	}
	// ~15.49 rev/day puts the ISS at roughly 6797 km.
	if math.Abs(o.SemiMajorAxis-6796.7) > 1 {
		t.Fatalf("semi-major axis = %v, want ~6796.7", o.SemiMajorAxis)
	}
	// Near-circular orbit: true anomaly stays close to the mean anomaly.
	if math.Abs(o.TrueAnomaly-35.9198) > 0.05 {
		t.Fatalf("true anomaly = %v, want ~35.92", o.TrueAnomaly)
	}
}

func TestValidateTLE(t *testing.T) {
	badChecksum := issLine1[:68] + "0"
	cases := map[string][2]string{
		"short line":       {issLine1[:60], issLine2},
		"bad checksum":     {badChecksum, issLine2},
		"swapped lines":    {issLine2, issLine1},
		"catalog mismatch": {issLine1, strings.Replace(issLine2, "25544", "25545", 1)},
	}
	for name, lines := range cases {
		if err := ValidateTLE(lines[0], lines[1]); !errors.Is(err, ErrInvalidTLE) {
			t.Fatalf("%s: err = %v, want ErrInvalidTLE", name, err)
		}
	}
	if err := ValidateTLE(issLine1+"\r\n", issLine2+" "); err != nil {
		t.Fatalf("trailing whitespace should be tolerated: %v", err)
	}
}

func TestTrueAnomalyFromMean(t *testing.T) {
	if got := trueAnomalyFromMean(1.2, 0); !scalar.EqualWithinAbs(got, 1.2, 1e-12) {
		t.Fatalf("circular orbit true anomaly = %v, want 1.2", got)
	}
	// At M = π every ellipse is at apoapsis.
	if got := trueAnomalyFromMean(math.Pi, 0.7); !scalar.EqualWithinAbs(math.Abs(got), math.Pi, 1e-9) {
		t.Fatalf("true anomaly at M=π = %v, want ±π", got)
	}
	E := eccentricAnomaly(0.5, 0.3)
	if m := E - 0.3*math.Sin(E); !scalar.EqualWithinAbs(m, 0.5, 1e-12) {
		t.Fatalf("Kepler residual: E=%v gives M=%v", E, m)
	}
}
