package core

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/rwandaorbitguard/orbit-guard/model"
)

const tol = 1e-9

func randomOrbit(rng *rand.Rand) model.OrbitParams {
	return model.OrbitParams{
		SemiMajorAxis:     EarthRadiusKm + 300 + rng.Float64()*36000,
		Eccentricity:      rng.Float64() * 0.99,
		Inclination:       rng.Float64() * 180,
		RightAscension:    rng.Float64() * 360,
		ArgumentOfPerigee: rng.Float64() * 360,
		TrueAnomaly:       rng.Float64() * 360,
	}
}

func TestPositionFiniteForBoundedOrbits(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 1000; i++ {
		o := randomOrbit(rng)
		tm := rng.Float64() * 1e5
		pos, err := Position(o, tm)
		if err != nil {
			t.Fatalf("Position(%+v, %v): %v", o, tm, err)
		}
		if !pos.IsFinite() {
			t.Fatalf("Position(%+v, %v) = %+v, want finite", o, tm, pos)
		}
	}
}

func TestPositionAtPerigee(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	for i := 0; i < 200; i++ {
		o := randomOrbit(rng)
		o.TrueAnomaly = 0
		pos, err := Position(o, 0)
		if err != nil {
			t.Fatalf("Position: %v", err)
		}
		want := o.SemiMajorAxis * (1 - o.Eccentricity)
		if !scalar.EqualWithinAbsOrRel(pos.Norm(), want, tol, tol) {
			t.Fatalf("|r| = %v, want perigee %v for %+v", pos.Norm(), want, o)
		}
		if got := PerigeeRadius(o); got != want {
			t.Fatalf("PerigeeRadius = %v, want %v", got, want)
		}
	}
}

func TestPositionDeterministic(t *testing.T) {
	o := model.OrbitParams{SemiMajorAxis: 7000, Eccentricity: 0.05, Inclination: 51.6, RightAscension: 120, ArgumentOfPerigee: 45, TrueAnomaly: 10}
	first, err := Position(o, 123.45)
	if err != nil {
		t.Fatalf("Position: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, _ := Position(o, 123.45)
		if again != first {
			t.Fatalf("Position not deterministic: %+v vs %+v", again, first)
		}
	}
}

func TestCircularOrbitConstantRadius(t *testing.T) {
	o := model.OrbitParams{SemiMajorAxis: 42164, Inclination: 0.1, RightAscension: 75, ArgumentOfPerigee: 200, TrueAnomaly: 33}
	for _, tm := range []float64{0, 1, 17.5, 900, 3600, 86400, -50} {
		pos, err := Position(o, tm)
		if err != nil {
			t.Fatalf("Position: %v", err)
		}
		if !scalar.EqualWithinAbsOrRel(pos.Norm(), o.SemiMajorAxis, tol, tol) {
			t.Fatalf("t=%v |r| = %v, want %v", tm, pos.Norm(), o.SemiMajorAxis)
		}
	}
}

func TestPositionAnomalyAdvancesLinearly(t *testing.T) {
	o := model.OrbitParams{SemiMajorAxis: 8000, Eccentricity: 0.2, Inclination: 30, RightAscension: 10, ArgumentOfPerigee: 20, TrueAnomaly: 5}
	later, _ := Position(o, 100)

	shifted := o
	shifted.TrueAnomaly += 100 * AnomalyRateDegPerUnit
	direct, _ := Position(shifted, 0)

	if later.DistanceTo(direct) > 1e-6 {
		t.Fatalf("advancing time by 100 should equal adding 10 degrees of anomaly: %+v vs %+v", later, direct)
	}
}

// The closed-form rotation must match composing Rz(Ω)·Rx(i)·Rz(ω).
func TestPositionMatchesEulerRotation(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 6))
	z := r3.Vec{Z: 1}
	x := r3.Vec{X: 1}
	for i := 0; i < 100; i++ {
		o := randomOrbit(rng)
		theta := degToRad(o.TrueAnomaly)
		e := o.Eccentricity
		r := o.SemiMajorAxis * (1 - e*e) / (1 + e*math.Cos(theta))
		v := r3.Vec{X: r * math.Cos(theta), Y: r * math.Sin(theta)}

		v = r3.NewRotation(degToRad(o.ArgumentOfPerigee), z).Rotate(v)
		v = r3.NewRotation(degToRad(o.Inclination), x).Rotate(v)
		v = r3.NewRotation(degToRad(o.RightAscension), z).Rotate(v)

		got, err := Position(o, 0)
		if err != nil {
			t.Fatalf("Position: %v", err)
		}
		want := model.Vector3D{X: v.X, Y: v.Y, Z: v.Z}
		if got.DistanceTo(want) > 1e-6*o.SemiMajorAxis {
			t.Fatalf("Position(%+v) = %+v, rotation gives %+v", o, got, want)
		}
	}
}

func TestPositionRejectsUnboundedOrbits(t *testing.T) {
	for _, e := range []float64{1, 1.5, -0.1} {
		o := model.OrbitParams{SemiMajorAxis: 7000, Eccentricity: e}
		if _, err := Position(o, 0); !errors.Is(err, ErrUnboundedOrbit) {
			t.Fatalf("e=%v: err = %v, want ErrUnboundedOrbit", e, err)
		}
	}
}

func TestPositionRejectsInvalidElements(t *testing.T) {
	cases := map[string]model.OrbitParams{
		"negative axis": {SemiMajorAxis: -1},
		"nan axis":      {SemiMajorAxis: math.NaN()},
		"inf incl":      {SemiMajorAxis: 7000, Inclination: math.Inf(1)},
		"nan anomaly":   {SemiMajorAxis: 7000, TrueAnomaly: math.NaN()},
	}
	for name, o := range cases {
		if _, err := Position(o, 0); !errors.Is(err, ErrInvalidOrbit) {
			t.Fatalf("%s: err = %v, want ErrInvalidOrbit", name, err)
		}
	}
}

func TestPositionZeroAxisIsOrigin(t *testing.T) {
	o := model.OrbitParams{Eccentricity: 0.5, Inclination: 40, TrueAnomaly: 90}
	for _, tm := range []float64{0, 10, 1e6} {
		pos, err := Position(o, tm)
		if err != nil {
			t.Fatalf("Position: %v", err)
		}
		if pos != (model.Vector3D{}) {
			t.Fatalf("zero orbit at t=%v = %+v, want origin", tm, pos)
		}
	}
}

func TestNormalizeDegrees(t *testing.T) {
	cases := map[float64]float64{0: 0, 360: 0, 370: 10, -10: 350, -720: 0, 359.5: 359.5}
	for in, want := range cases {
		if got := normalizeDegrees(in); !scalar.EqualWithinAbs(got, want, 1e-12) {
			t.Fatalf("normalizeDegrees(%v) = %v, want %v", in, got, want)
		}
	}
}
