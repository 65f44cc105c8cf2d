package core

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rwandaorbitguard/orbit-guard/model"
)

// EarthMu is Earth's standard gravitational parameter in km^3/s^2.
const EarthMu = 398600.4418

const tleLineLength = 69

// ErrInvalidTLE indicates a malformed two-line element set.
var ErrInvalidTLE = errors.New("invalid TLE")

// ValidateTLE checks line length, line numbers, matching catalog numbers and
// the modulo-10 checksums.
func ValidateTLE(line1, line2 string) error {
	line1 = strings.TrimRight(line1, " \r\n")
	line2 = strings.TrimRight(line2, " \r\n")
	for n, line := range []string{line1, line2} {
		if len(line) != tleLineLength {
			return fmt.Errorf("%w: line %d has %d characters, want %d", ErrInvalidTLE, n+1, len(line), tleLineLength)
		}
		if line[0] != byte('1'+n) {
			return fmt.Errorf("%w: line %d starts with %q", ErrInvalidTLE, n+1, line[0])
		}
		if want, got := tleChecksum(line), int(line[68]-'0'); want != got {
			return fmt.Errorf("%w: line %d checksum %d, want %d", ErrInvalidTLE, n+1, got, want)
		}
	}
	if line1[2:7] != line2[2:7] {
		return fmt.Errorf("%w: catalog numbers %q and %q differ", ErrInvalidTLE, line1[2:7], line2[2:7])
	}
	return nil
}

func tleChecksum(line string) int {
	sum := 0
	for _, c := range line[:68] {
		switch {
		case c >= '0' && c <= '9':
			sum += int(c - '0')
		case c == '-':
			sum++
		}
	}
	return sum % 10
}

// ElementsFromTLE derives classical elements from a TLE. The semi-major axis
// comes from the mean motion and the true anomaly from the mean anomaly.
func ElementsFromTLE(line1, line2 string) (model.OrbitParams, error) {
	if err := ValidateTLE(line1, line2); err != nil {
		return model.OrbitParams{}, err
	}

	fields := []struct {
		name string
		raw  string
	}{
		{"inclination", line2[8:16]},
		{"right ascension", line2[17:25]},
		{"eccentricity", "0." + line2[26:33]},
		{"argument of perigee", line2[34:42]},
		{"mean anomaly", line2[43:51]},
		{"mean motion", line2[52:63]},
	}
	vals := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f.raw), 64)
		if err != nil {
			return model.OrbitParams{}, fmt.Errorf("%w: %s %q", ErrInvalidTLE, f.name, f.raw)
		}
		vals[i] = v
	}
	inc, raan, ecc, argp, meanAnomaly, revsPerDay := vals[0], vals[1], vals[2], vals[3], vals[4], vals[5]
	if revsPerDay <= 0 {
		return model.OrbitParams{}, fmt.Errorf("%w: mean motion must be positive", ErrInvalidTLE)
	}

	n := revsPerDay * 2 * math.Pi / 86400 // rad/s
	orbit := model.OrbitParams{
		SemiMajorAxis:     math.Cbrt(EarthMu / (n * n)),
		Eccentricity:      ecc,
		Inclination:       inc,
		RightAscension:    raan,
		ArgumentOfPerigee: argp,
		TrueAnomaly:       normalizeDegrees(radToDeg(trueAnomalyFromMean(degToRad(meanAnomaly), ecc))),
	}
	if err := ValidateOrbit(orbit); err != nil {
		return model.OrbitParams{}, fmt.Errorf("%w: %v", ErrInvalidTLE, err)
	}
	return orbit, nil
}

// eccentricAnomaly solves Kepler's equation M = E - e sin E with
// Newton-Raphson.
func eccentricAnomaly(meanAnomaly, e float64) float64 {
	if e == 0 {
		return meanAnomaly
	}
	E := meanAnomaly
	if e >= 0.8 {
		E = math.Pi
	}
	for i := 0; i < 50; i++ {
		delta := (E - e*math.Sin(E) - meanAnomaly) / (1 - e*math.Cos(E))
		E -= delta
		if math.Abs(delta) < 1e-12 {
			break
		}
	}
	return E
}

func trueAnomalyFromMean(meanAnomaly, e float64) float64 {
	E := eccentricAnomaly(meanAnomaly, e)
	return math.Atan2(math.Sqrt(1-e*e)*math.Sin(E), math.Cos(E)-e)
}
