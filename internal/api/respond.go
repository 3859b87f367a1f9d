package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/squaredose/squaredosed/pkg/types"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type errorBody struct {
	Error string `json:"error"`
}

// writeError maps the error taxonomy in pkg/types to an HTTP status and
// writes a {"error": "..."} body. Every handler maps core errors through
// here except the two DELETE handlers, which answer a store failure with
// a flat 503 of their own.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorBody{Error: err.Error()})
}

func statusFor(err error) int {
	var validation *types.ValidationError
	var actuator *types.ActuatorError
	var persistence *types.PersistenceError
	var wifiTransient *types.WiFiTransientError

	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, types.ErrTimeNotSynced):
		return http.StatusServiceUnavailable
	case errors.Is(err, types.ErrInterrupted):
		return http.StatusConflict
	case errors.As(err, &actuator):
		return http.StatusInternalServerError
	case errors.As(err, &persistence):
		return http.StatusInternalServerError
	case errors.As(err, &wifiTransient):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return types.NewValidationError("body", "malformed request body")
	}
	return nil
}
