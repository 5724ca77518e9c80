package httpx

import (
	"errors"
	"net/http"

	"github.com/bizhub-io/bizhub/internal/shared"
)

// UnauthorizedDetail is the only detail ever sent with a 401 so callers cannot
// tell which authentication check failed.
const UnauthorizedDetail = "invalid or missing credentials"

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrConflict):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrForbidden):
		Forbidden(w)
	case errors.Is(err, shared.ErrUnauthorized), errors.Is(err, shared.ErrInvalidCredentials):
		Unauthorized(w)
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

// Unauthorized writes the uniform 401 problem.
func Unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="bizhub"`)
	Problem(w, http.StatusUnauthorized, "Unauthorized", UnauthorizedDetail)
}

// Forbidden writes the uniform 403 problem.
func Forbidden(w http.ResponseWriter) {
	Problem(w, http.StatusForbidden, "Forbidden", "insufficient role or permission")
}
