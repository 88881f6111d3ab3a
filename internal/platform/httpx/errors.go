package httpx

import (
	"errors"
	"net/http"

	"github.com/mealgrid/mealgrid-rms/internal/platform/db"
)

// RespondError maps platform-level errors to HTTP responses. Domain packages
// register their own mappings through handler-level switches; anything that
// falls through here is either a concurrency conflict or an internal failure.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, db.ErrConcurrencyConflict):
		Problem(w, http.StatusConflict, "Conflict", "concurrent update, retry the request")
	case errors.Is(err, db.ErrDuplicate):
		Problem(w, http.StatusConflict, "Duplicate", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
