package mockdata

import "github.com/rwandaorbitguard/orbit-guard/model"

// ProbabilityBand returns the half-open range [lo, hi) a prediction's
// probability must fall in for its severity. Bands never overlap.
func ProbabilityBand(s model.Severity) (lo, hi float64) {
	switch s {
	case model.SeverityCritical:
		return 0.7, 1.0
	case model.SeverityHigh:
		return 0.4, 0.7
	case model.SeverityMedium:
		return 0.2, 0.4
	default:
		return 0.05, 0.2
	}
}

// SeverityForProbability inverts ProbabilityBand. It reports false for
// probabilities below the low band or at/above 1.
func SeverityForProbability(p float64) (model.Severity, bool) {
	for _, s := range model.Severities() {
		if lo, hi := ProbabilityBand(s); p >= lo && p < hi {
			return s, true
		}
	}
	return "", false
}
