package handlers

import (
	"net/http"

	"github.com/google/uuid"
)

// ParseContributionID extracts and validates the contribution ID from the
// request path. Returns uuid.Nil and false after writing the error response
// when the value is not a UUID.
// Expects path parameter: cid
func ParseContributionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := r.PathValue("cid")
	id, err := uuid.Parse(raw)
	if err != nil {
		ErrorResponse(w, http.StatusBadRequest, "INVALID_CONTRIBUTION_ID", "invalid contribution ID format")
		return uuid.Nil, false
	}
	return id, true
}
