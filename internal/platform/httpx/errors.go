package httpx

import (
	"errors"
	"net/http"

	"github.com/procurio-erp/procurio/internal/shared"
)

// ProblemError is implemented by domain errors that know their own HTTP
// status and reason code. The decision layers (authorization, lifecycle)
// return these so handlers never have to inspect them.
type ProblemError interface {
	error
	Status() int
	ReasonCode() string
}

// RespondError maps domain errors to HTTP responses using RFC7807.
// Unknown errors degrade to a generic 500 without leaking internals.
func RespondError(w http.ResponseWriter, err error) {
	var pe ProblemError
	if errors.As(err, &pe) {
		Problem(w, pe.Status(), http.StatusText(pe.Status()), pe.Error(), pe.ReasonCode())
		return
	}
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error(), "")
	case errors.Is(err, shared.ErrDuplicate):
		Problem(w, http.StatusConflict, "Duplicate", err.Error(), "")
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error(), "")
	case errors.Is(err, shared.ErrInvalidCredentials):
		Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error(), "unauthenticated")
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "", "")
	}
}
