package mockdata

import "github.com/rwandaorbitguard/orbit-guard/model"

// Labels are the sets categories are drawn from. Each draw picks uniformly
// from the slice, so repeating an entry weights it.
type Labels struct {
	SatelliteTypes    []model.SatelliteType
	SatelliteStatuses []model.SatelliteStatus
	DebrisSizes       []model.DebrisSize
	Severities        []model.Severity
	CollisionStatuses []model.CollisionStatus
	Countries         []string
	DebrisSources     []string
}

// DefaultLabels mirrors the dashboard's mix: most satellites active, most
// debris small, low severity twice as common as the others.
func DefaultLabels() Labels {
	return Labels{
		SatelliteTypes: model.SatelliteTypes(),
		SatelliteStatuses: []model.SatelliteStatus{
			model.StatusActive, model.StatusActive, model.StatusActive,
			model.StatusInactive, model.StatusDeorbiting,
		},
		DebrisSizes: []model.DebrisSize{
			model.DebrisSmall, model.DebrisSmall, model.DebrisSmall,
			model.DebrisMedium, model.DebrisLarge,
		},
		Severities: []model.Severity{
			model.SeverityLow, model.SeverityLow,
			model.SeverityMedium, model.SeverityHigh, model.SeverityCritical,
		},
		CollisionStatuses: []model.CollisionStatus{
			model.CollisionPredicted, model.CollisionMonitoring, model.CollisionResolved,
		},
		Countries:     []string{"Rwanda", "USA", "China", "Russia", "EU", "India", "Japan", "UK"},
		DebrisSources: []string{"Rocket body", "Satellite fragmentation", "Collision", "Mission-related", "Unknown"},
	}
}

// withDefaults fills empty sets from DefaultLabels.
func (l Labels) withDefaults() Labels {
	d := DefaultLabels()
	if len(l.SatelliteTypes) == 0 {
		l.SatelliteTypes = d.SatelliteTypes
	}
	if len(l.SatelliteStatuses) == 0 {
		l.SatelliteStatuses = d.SatelliteStatuses
	}
	if len(l.DebrisSizes) == 0 {
		l.DebrisSizes = d.DebrisSizes
	}
	if len(l.Severities) == 0 {
		l.Severities = d.Severities
	}
	if len(l.CollisionStatuses) == 0 {
		l.CollisionStatuses = d.CollisionStatuses
	}
	if len(l.Countries) == 0 {
		l.Countries = d.Countries
	}
	if len(l.DebrisSources) == 0 {
		l.DebrisSources = d.DebrisSources
	}
	return l
}
