package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors for the domain layer. Services wrap these with context via
// fmt.Errorf and %w; handlers map them to statuses through RespondError.
var (
	// ErrNotFound covers rows that are absent, soft-deleted, or owned by a
	// different tenant. The three cases are deliberately indistinguishable.
	ErrNotFound     = errors.New("resource not found")
	ErrConflict     = errors.New("duplicate entry")
	ErrValidation   = errors.New("validation failed")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

// RespondError maps domain errors to the failure envelope. Stack traces and
// internal detail never reach the response.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		Fail(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrConflict):
		Fail(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrValidation):
		Fail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrForbidden):
		Fail(w, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrUnauthorized):
		Fail(w, http.StatusUnauthorized, err.Error())
	default:
		Fail(w, http.StatusInternalServerError, "internal error")
	}
}
