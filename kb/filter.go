package kb

import (
	"slices"
	"strings"

	"github.com/rwandaorbitguard/orbit-guard/model"
)

// SatelliteFilter selects satellites. Empty sets match everything; Query is a
// case-insensitive substring of the id, name or country.
type SatelliteFilter struct {
	Types    []model.SatelliteType
	Statuses []model.SatelliteStatus
	Query    string
}

// Match reports whether s passes the filter.
func (f SatelliteFilter) Match(s *model.Satellite) bool {
	if len(f.Types) > 0 && !slices.Contains(f.Types, s.Type) {
		return false
	}
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, s.Status) {
		return false
	}
	return matchQuery(f.Query, s.ID, s.Name, s.Country)
}

// DebrisFilter selects debris fragments.
type DebrisFilter struct {
	Sizes []model.DebrisSize
	Query string
}

// Match reports whether d passes the filter.
func (f DebrisFilter) Match(d *model.Debris) bool {
	if len(f.Sizes) > 0 && !slices.Contains(f.Sizes, d.Size) {
		return false
	}
	return matchQuery(f.Query, d.ID, d.Name, d.Source)
}

// CollisionFilter selects predictions. MaxProbability of zero means no upper
// bound.
type CollisionFilter struct {
	Severities     []model.Severity
	Query          string
	MinDistance    float64
	MaxProbability float64
}

// Match reports whether p passes the filter.
func (f CollisionFilter) Match(p *model.CollisionPrediction) bool {
	if len(f.Severities) > 0 && !slices.Contains(f.Severities, p.Severity) {
		return false
	}
	if p.MinimumDistance < f.MinDistance {
		return false
	}
	if f.MaxProbability > 0 && p.Probability > f.MaxProbability {
		return false
	}
	return matchQuery(f.Query, p.ID, p.Object1.ID, p.Object1.Name, p.Object2.ID, p.Object2.Name)
}

func matchQuery(query string, fields ...string) bool {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), query) {
			return true
		}
	}
	return false
}
