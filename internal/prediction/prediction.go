// Package prediction talks to the external collision-risk prediction service
// and validates the six-field state vector form before anything is sent.
package prediction

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rwandaorbitguard/orbit-guard/model"
)

// DefaultEndpoint is the hosted prediction service.
const DefaultEndpoint = "https://backend-rwanda-orbit-guard.onrender.com/predict"

// Status is the classification returned by the prediction service.
type Status string

const (
	StatusRedAlert   Status = "RED ALERT"
	StatusGreenLight Status = "GREEN LIGHT"
)

// Valid reports whether s is one of the two documented statuses.
func (s Status) Valid() bool {
	return s == StatusRedAlert || s == StatusGreenLight
}

var (
	ErrMissingField     = errors.New("missing field")
	ErrInvalidField     = errors.New("invalid field")
	ErrPredictionFailed = errors.New("prediction failed")
	ErrRequestPending   = errors.New("prediction already in progress")
)

// MissingFieldsMessage is shown when any form field is blank.
const MissingFieldsMessage = "Please fill in all fields"

// FieldError identifies the form field that failed validation.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string { return fmt.Sprintf("%s: %v", e.Field, e.Err) }
func (e *FieldError) Unwrap() error { return e.Err }

// Request is the body POSTed to the prediction service. Positions are in
// metres, velocities in m/s. The answer reports distances in km.
type Request struct {
	X  float64 `json:"x_start"`
	Y  float64 `json:"y_start"`
	Z  float64 `json:"z_start"`
	Vx float64 `json:"Vx_start"`
	Vy float64 `json:"Vy_start"`
	Vz float64 `json:"Vz_start"`
}

// Position returns the request's position vector.
func (r Request) Position() model.Vector3D { return model.Vector3D{X: r.X, Y: r.Y, Z: r.Z} }

// Velocity returns the request's velocity vector.
func (r Request) Velocity() model.Vector3D { return model.Vector3D{X: r.Vx, Y: r.Vy, Z: r.Vz} }

// Response is the prediction service's answer.
type Response struct {
	Status            Status  `json:"status"`
	MissDistanceKm    float64 `json:"miss_distance_km"`
	SafetyThresholdKm float64 `json:"safety_threshold_km"`
	ModelRMSEMeters   float64 `json:"model_rmse_meters"`
}

// Severity maps a RED ALERT to critical and everything else to low.
func (r Response) Severity() model.Severity {
	if r.Status == StatusRedAlert {
		return model.SeverityCritical
	}
	return model.SeverityLow
}

// Form holds the raw text of the six prediction inputs.
type Form struct {
	X  string `json:"x_start"`
	Y  string `json:"y_start"`
	Z  string `json:"z_start"`
	Vx string `json:"Vx_start"`
	Vy string `json:"Vy_start"`
	Vz string `json:"Vz_start"`
}

// Parse validates the form. Every field must be present before any is parsed,
// so a blank field always reports ErrMissingField.
func (f Form) Parse() (Request, error) {
	var req Request
	fields := []struct {
		name string
		raw  string
		dst  *float64
	}{
		{"x_start", f.X, &req.X},
		{"y_start", f.Y, &req.Y},
		{"z_start", f.Z, &req.Z},
		{"Vx_start", f.Vx, &req.Vx},
		{"Vy_start", f.Vy, &req.Vy},
		{"Vz_start", f.Vz, &req.Vz},
	}
	for _, fld := range fields {
		if strings.TrimSpace(fld.raw) == "" {
			return Request{}, &FieldError{Field: fld.name, Err: ErrMissingField}
		}
	}
	for _, fld := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(fld.raw), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return Request{}, &FieldError{Field: fld.name, Err: ErrInvalidField}
		}
		*fld.dst = v
	}
	return req, nil
}

// Message returns the text shown to a user for err.
func Message(err error) string {
	var fe *FieldError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingField):
		return MissingFieldsMessage
	case errors.As(err, &fe) && errors.Is(err, ErrInvalidField):
		return fmt.Sprintf("Invalid number for %s", fe.Field)
	case errors.Is(err, ErrRequestPending):
		return "A prediction is already in progress"
	case errors.Is(err, ErrPredictionFailed):
		var he *HTTPError
		if errors.As(err, &he) {
			return he.Error()
		}
		return "Failed to get prediction"
	default:
		return "Failed to get prediction"
	}
}
