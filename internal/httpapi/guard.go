package httpapi

import (
	"errors"
	"net/http"

	"groupdesk.org/internal/auth"
)

// apiError is a computed gate failure. The three failure classes stay
// distinguishable by status code so clients can branch: 401 redirects to
// login, 403 shows a permission-denied state, 404 a missing workspace.
type apiError struct {
	code int
	msg  string
}

func (e *apiError) write(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, e.code, e.msg)
}

var (
	errUnauthenticated = &apiError{http.StatusUnauthorized, "Not logged in"}
	// The denied message never names the missing permission; probing clients
	// must not learn the workspace's role taxonomy.
	errForbidden         = &apiError{http.StatusForbidden, "You do not have permission to do this"}
	errWorkspaceNotFound = &apiError{http.StatusNotFound, "Workspace not found"}
	errStoreUnavailable  = &apiError{http.StatusServiceUnavailable, "Service is temporarily unavailable. Please try again later."}
)

// guardedHandler is business logic executed only after the gate has resolved
// a validated identity, workspace, and permit.
type guardedHandler func(w http.ResponseWriter, r *http.Request, actx auth.Authorized)

// pageLoader is the server-rendered variant: it returns a view model that the
// gate encodes on success. Failures use the same status taxonomy.
type pageLoader func(r *http.Request, actx auth.Authorized) (any, error)

// guard sequences session validation, workspace existence, and permission
// resolution, then hands the typed authorized context to the wrapped handler.
// An empty required label admits any member with standing (a role or owner).
func (a *API) guard(w http.ResponseWriter, r *http.Request, workspaceGroupID int64, required string, next guardedHandler) {
	actx, apiErr := a.authorize(r, workspaceGroupID, required)
	if apiErr != nil {
		apiErr.write(w, r)
		return
	}
	next(w, r.WithContext(auth.ContextWithAuthorized(r.Context(), actx)), actx)
}

// guardPage is guard for page-data loaders.
func (a *API) guardPage(w http.ResponseWriter, r *http.Request, workspaceGroupID int64, required string, load pageLoader) {
	actx, apiErr := a.authorize(r, workspaceGroupID, required)
	if apiErr != nil {
		apiErr.write(w, r)
		return
	}
	data, err := load(r.WithContext(auth.ContextWithAuthorized(r.Context(), actx)), actx)
	if err != nil {
		a.handleOperationError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

// sessionUser resolves the session cookie to a stored account. Session
// validation always runs before any other request inspection.
func (a *API) sessionUser(r *http.Request) (auth.User, *apiError) {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil || cookie.Value == "" {
		return auth.User{}, errUnauthenticated
	}
	userID, err := auth.ValidateSession(cookie.Value)
	if err != nil {
		return auth.User{}, errUnauthenticated
	}
	user, err := a.users.Find(r.Context(), userID)
	if errors.Is(err, auth.ErrNotFound) {
		// Session outlived the account; treat like no session.
		return auth.User{}, errUnauthenticated
	}
	if err != nil {
		return auth.User{}, errStoreUnavailable
	}
	return user, nil
}

func (a *API) authorize(r *http.Request, workspaceGroupID int64, required string) (auth.Authorized, *apiError) {
	ctx := r.Context()

	user, apiErr := a.sessionUser(r)
	if apiErr != nil {
		return auth.Authorized{}, apiErr
	}

	// Workspace existence is checked before permissions so a missing
	// workspace reads as not-found even for a global owner.
	ws, err := a.workspaces.FindWorkspace(ctx, workspaceGroupID)
	if errors.Is(err, auth.ErrNotFound) {
		return auth.Authorized{}, errWorkspaceNotFound
	}
	if err != nil {
		return auth.Authorized{}, errStoreUnavailable
	}

	permit, err := a.resolver.Resolve(ctx, user.ID, workspaceGroupID)
	if err != nil {
		return auth.Authorized{}, errStoreUnavailable
	}
	if required == "" {
		if !permit.HasStanding() {
			return auth.Authorized{}, errForbidden
		}
	} else if !permit.Has(required) {
		return auth.Authorized{}, errForbidden
	}

	return auth.Authorized{User: user, Workspace: ws, Permit: permit}, nil
}

// handleOperationError maps business-logic failures that escape a guarded
// handler. Raw detail never reaches the caller.
func (a *API) handleOperationError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "Resource not found")
	case errors.Is(err, auth.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, "Invalid request")
	default:
		writeError(w, r, http.StatusInternalServerError, "Something went wrong")
	}
}
