package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"groupdesk.org/internal/identity"
)

type resolveIDRequest struct {
	Username string `json:"username"`
}

// handleResolveID maps a human-entered handle to its numeric external id so
// the frontend can build member pickers without talking to the provider
// itself. Unlike login it reports unknown handles as not-found: no credential
// is involved here, so there is nothing to leak.
func (a *API) handleResolveID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req resolveIDRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Username) == "" {
		writeError(w, r, http.StatusBadRequest, "username is required")
		return
	}

	userID, err := a.identity.ResolveHandle(r.Context(), req.Username)
	if errors.Is(err, identity.ErrNotFound) {
		writeError(w, r, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		writeError(w, r, http.StatusServiceUnavailable, "Service is temporarily unavailable. Please try again later.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"id":      userID,
	})
}
