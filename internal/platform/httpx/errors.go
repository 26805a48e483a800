// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/odyssey-erp/odyssey-books/internal/shared"
)

type fieldError interface {
	FieldName() string
}

// RespondError maps domain errors to HTTP responses using RFC7807.
// Errors naming an input field carry it in the "field" extension member.
func RespondError(w http.ResponseWriter, err error) {
	var field string
	var fe fieldError
	if errors.As(err, &fe) {
		field = fe.FieldName()
	}
	switch {
	case errors.Is(err, shared.ErrUnprocessable):
		problem(w, http.StatusUnprocessableEntity, "Unresolved Reference", err.Error(), field)
	case errors.Is(err, shared.ErrNotFound):
		problem(w, http.StatusNotFound, "Not Found", err.Error(), field)
	case errors.Is(err, shared.ErrConflict):
		problem(w, http.StatusConflict, "Conflict", err.Error(), field)
	case errors.Is(err, shared.ErrValidation):
		problem(w, http.StatusBadRequest, "Validation Failed", err.Error(), field)
	case errors.Is(err, shared.ErrForbidden):
		problem(w, http.StatusForbidden, "Forbidden", err.Error(), "")
	case errors.Is(err, shared.ErrUnauthorized):
		problem(w, http.StatusUnauthorized, "Unauthorized", err.Error(), "")
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

// IsClientError reports whether err maps to a 4xx response.
func IsClientError(err error) bool {
	return shared.IsClientError(err)
}
