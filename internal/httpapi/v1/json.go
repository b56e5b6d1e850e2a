package v1

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mlorenzo/finanzas/internal/errs"
)

// errorResponse is the standard error payload for the API.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// toJSON writes a JSON response with status code.
func toJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, msg, code string) {
	toJSON(w, status, errorResponse{Error: msg, Code: code})
}

func badRequest(w http.ResponseWriter, msg string) { writeErr(w, http.StatusBadRequest, msg, "") }
func notFound(w http.ResponseWriter)               { writeErr(w, http.StatusNotFound, "not_found", "not_found") }
func unprocessable(w http.ResponseWriter, msg, code string) {
	writeErr(w, http.StatusUnprocessableEntity, msg, code)
}

// writeDomainErr maps sentinel errors onto HTTP statuses; anything unmapped
// becomes a 500.
func writeDomainErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		notFound(w)
	case errors.Is(err, errs.ErrNoRateConfigured):
		writeErr(w, http.StatusConflict, err.Error(), "no_rate_configured")
	case errors.Is(err, errs.ErrInvalidRate):
		unprocessable(w, err.Error(), "invalid_rate")
	case errors.Is(err, errs.ErrInvalidCurrency):
		unprocessable(w, err.Error(), "invalid_currency")
	case errors.Is(err, errs.ErrMissingForeignKey):
		unprocessable(w, err.Error(), "missing_foreign_key")
	case errors.Is(err, errs.ErrInvalidSource), errors.Is(err, errs.ErrInvalid):
		unprocessable(w, err.Error(), "validation_error")
	default:
		writeErr(w, http.StatusInternalServerError, "internal error", "")
	}
}
