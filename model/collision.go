package model

import "time"

// Severity is the risk class of a predicted conjunction.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Severities lists every severity, lowest first.
func Severities() []Severity {
	return []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}
}

// CollisionStatus tracks a prediction through its lifecycle.
type CollisionStatus string

const (
	CollisionPredicted  CollisionStatus = "predicted"
	CollisionMonitoring CollisionStatus = "monitoring"
	CollisionResolved   CollisionStatus = "resolved"
	CollisionOccurred   CollisionStatus = "occurred"
)

// ObjectRef identifies one side of a collision pair.
type ObjectRef struct {
	ID   string     `json:"id"`
	Name string     `json:"name"`
	Kind ObjectKind `json:"kind"`
}

// CollisionPrediction forecasts a close approach between two objects.
type CollisionPrediction struct {
	ID              string          `json:"id"`
	Object1         ObjectRef       `json:"object1"`
	Object2         ObjectRef       `json:"object2"`
	PredictedTime   time.Time       `json:"predictedTime"`
	Probability     float64         `json:"probability"`
	MinimumDistance float64         `json:"minimumDistance"` // km
	Severity        Severity        `json:"severity"`
	Status          CollisionStatus `json:"status"`
}
