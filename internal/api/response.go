package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rwandaorbitguard/orbit-guard/internal/logging"
	"github.com/rwandaorbitguard/orbit-guard/internal/mockdata"
	"github.com/rwandaorbitguard/orbit-guard/internal/prediction"
	"github.com/rwandaorbitguard/orbit-guard/internal/session"
	"github.com/rwandaorbitguard/orbit-guard/kb"
)

// WriteJSON writes a JSON response with the given status code and data.
func WriteJSON(ctx context.Context, w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logging.FromContext(ctx, nil).Warn(ctx, "failed to encode json response", logging.Err(err))
	}
}

// WriteJSONError writes {"error": msg} with the given status code.
func WriteJSONError(ctx context.Context, w http.ResponseWriter, status int, msg string) {
	WriteJSON(ctx, w, status, map[string]string{"error": msg})
}

// StatusForError maps domain errors to HTTP status codes.
func StatusForError(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, prediction.ErrMissingField), errors.Is(err, prediction.ErrInvalidField):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrInvalidCredentials),
		errors.Is(err, session.ErrNoSession),
		errors.Is(err, session.ErrSessionClosed):
		return http.StatusUnauthorized
	case errors.Is(err, kb.ErrObjectNotFound):
		return http.StatusNotFound
	case errors.Is(err, prediction.ErrRequestPending),
		errors.Is(err, kb.ErrObjectExists),
		errors.Is(err, mockdata.ErrEmptyPool):
		return http.StatusConflict
	case errors.Is(err, prediction.ErrPredictionFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes err with its mapped status. Server errors are logged and
// their detail withheld.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status := StatusForError(err)
	msg := err.Error()
	switch {
	case status == http.StatusInternalServerError:
		logging.FromContext(ctx, nil).Error(ctx, "request failed", logging.Err(err))
		msg = "internal error"
	case errors.Is(err, prediction.ErrMissingField),
		errors.Is(err, prediction.ErrInvalidField),
		errors.Is(err, prediction.ErrPredictionFailed),
		errors.Is(err, prediction.ErrRequestPending):
		msg = prediction.Message(err)
	}
	WriteJSONError(ctx, w, status, msg)
}
