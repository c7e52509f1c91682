// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/odyssey-erp/billdesk/internal/backend"
	"github.com/odyssey-erp/billdesk/internal/billing"
	"github.com/odyssey-erp/billdesk/internal/shared"
)

// RespondError maps domain and backend errors to RFC7807 responses.
// Backend client errors keep their status; any other backend failure
// surfaces as 502.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, billing.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrTenantMissing):
		Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrConflict), errors.Is(err, shared.ErrInFlight), errors.Is(err, shared.ErrLocked),
		errors.Is(err, shared.ErrIdempotencyConflict):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		if apiErr, ok := backend.AsAPIError(err); ok {
			if apiErr.ClientError() {
				Problem(w, apiErr.Status, http.StatusText(apiErr.Status), apiErr.Message)
				return
			}
			Problem(w, http.StatusBadGateway, "Bad Gateway", apiErr.Message)
			return
		}
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
