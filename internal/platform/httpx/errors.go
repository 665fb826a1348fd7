package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/atlas-pos/atlas-pos/internal/shared"
)

// RespondError maps a domain error onto the response envelope. Validation
// errors keep their per-field detail; internal failures are logged and
// masked.
func RespondError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		JSON(w, http.StatusBadRequest, Envelope{Error: &ErrorBody{
			Code:    "INVALID_INPUT",
			Message: "validation failed",
			Fields:  verr.Fields,
		}})
		return
	}

	status := shared.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
	}
	Fail(w, status, shared.ErrorCode(err), shared.UserSafeMessage(err))
}
