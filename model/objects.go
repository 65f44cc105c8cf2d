package model

import "time"

// SatelliteType classifies a satellite by mission.
type SatelliteType string

const (
	SatelliteCommunication SatelliteType = "communication"
	SatelliteWeather       SatelliteType = "weather"
	SatelliteNavigation    SatelliteType = "navigation"
	SatelliteResearch      SatelliteType = "research"
	SatelliteMilitary      SatelliteType = "military"
)

// SatelliteTypes lists every satellite type.
func SatelliteTypes() []SatelliteType {
	return []SatelliteType{
		SatelliteCommunication,
		SatelliteWeather,
		SatelliteNavigation,
		SatelliteResearch,
		SatelliteMilitary,
	}
}

// SatelliteStatus is the operational state of a satellite.
type SatelliteStatus string

const (
	StatusActive     SatelliteStatus = "active"
	StatusInactive   SatelliteStatus = "inactive"
	StatusDeorbiting SatelliteStatus = "deorbiting"
)

// SatelliteStatuses lists every satellite status.
func SatelliteStatuses() []SatelliteStatus {
	return []SatelliteStatus{StatusActive, StatusInactive, StatusDeorbiting}
}

// DebrisSize is the size class of a debris fragment:
// small < 10cm, medium 10cm-1m, large > 1m.
type DebrisSize string

const (
	DebrisSmall  DebrisSize = "small"
	DebrisMedium DebrisSize = "medium"
	DebrisLarge  DebrisSize = "large"
)

// DebrisSizes lists every debris size class.
func DebrisSizes() []DebrisSize {
	return []DebrisSize{DebrisSmall, DebrisMedium, DebrisLarge}
}

// ObjectKind distinguishes satellites from debris in collision pairs.
type ObjectKind string

const (
	KindSatellite ObjectKind = "satellite"
	KindDebris    ObjectKind = "debris"
)

// TLE is a two-line element set. Satellites carrying one are propagated with
// SGP4 instead of the simplified Keplerian transform.
type TLE struct {
	Line1 string `json:"line1"`
	Line2 string `json:"line2"`
}

// Object is the part shared by every tracked body.
type Object struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Position Vector3D    `json:"position"`
	Velocity Vector3D    `json:"velocity"`
	Orbit    OrbitParams `json:"orbit"`
}

// Elements returns the orbital elements the position is derived from.
func (o *Object) Elements() OrbitParams { return o.Orbit }

// SetPosition overwrites the derived position.
func (o *Object) SetPosition(p Vector3D) { o.Position = p }

// Orbiting is implemented by anything whose position is recomputed from its
// own orbit.
type Orbiting interface {
	Elements() OrbitParams
	SetPosition(Vector3D)
}

// Satellite is an artificial satellite in the catalog.
type Satellite struct {
	Object
	Type       SatelliteType   `json:"type"`
	Status     SatelliteStatus `json:"status"`
	LastUpdate time.Time       `json:"lastUpdate"`
	Country    string          `json:"country,omitempty"`
	LaunchDate time.Time       `json:"launchDate,omitempty"`
	TLE        *TLE            `json:"tle,omitempty"`
}

// Ref returns a collision-pair reference to the satellite.
func (s Satellite) Ref() ObjectRef {
	return ObjectRef{ID: s.ID, Name: s.Name, Kind: KindSatellite}
}

// Debris is a tracked debris fragment.
type Debris struct {
	Object
	Size               DebrisSize `json:"size"`
	Source             string     `json:"source,omitempty"`
	TrackingConfidence float64    `json:"trackingConfidence"`
}

// Ref returns a collision-pair reference to the fragment.
func (d Debris) Ref() ObjectRef {
	return ObjectRef{ID: d.ID, Name: d.Name, Kind: KindDebris}
}
