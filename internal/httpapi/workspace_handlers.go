package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"groupdesk.org/internal/auth"
	"groupdesk.org/internal/identity"
	"groupdesk.org/internal/workspace"
)

// handleWorkspaceScoped routes /v1/workspaces/{groupId}/... and declares each
// operation's required permission at the dispatch site. The guard runs the
// full session → workspace → permission sequence before any handler executes.
func (a *API) handleWorkspaceScoped(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/workspaces/")
	path = strings.Trim(path, "/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	parts := strings.Split(path, "/")
	groupID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || groupID <= 0 {
		// Session validation still runs first: an unauthenticated caller
		// sees 401 here, never the input error.
		if _, apiErr := a.sessionUser(r); apiErr != nil {
			apiErr.write(w, r)
			return
		}
		writeError(w, r, http.StatusBadRequest, "invalid workspace id")
		return
	}
	tail := parts[1:]

	switch {
	case len(tail) == 2 && tail[0] == "home" && tail[1] == "active-sessions":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.guard(w, r, groupID, "", a.activeSessions)

	case len(tail) == 3 && tail[0] == "settings" && tail[1] == "activity" && tail[2] == "role":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		a.guard(w, r, groupID, auth.PermAdmin, a.setActivityRole)

	case len(tail) == 4 && tail[0] == "allies" && tail[2] == "visits":
		a.guard(w, r, groupID, auth.PermManageAlliances, func(w http.ResponseWriter, r *http.Request, actx auth.Authorized) {
			a.allyVisit(w, r, actx, tail[1], tail[3])
		})

	case len(tail) == 2 && tail[0] == "profile":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		memberID, err := strconv.ParseInt(tail[1], 10, 64)
		if err != nil || memberID <= 0 {
			writeError(w, r, http.StatusBadRequest, "invalid user id")
			return
		}
		a.guardPage(w, r, groupID, "", func(r *http.Request, actx auth.Authorized) (any, error) {
			return a.memberProfile(r, actx, memberID)
		})

	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

// activeSessions lists in-progress activity sessions for the workspace home
// view. Any member with standing may read it.
func (a *API) activeSessions(w http.ResponseWriter, r *http.Request, actx auth.Authorized) {
	sessions, err := a.workspace.ActiveSessions(r.Context(), actx.Workspace.GroupID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "Something went wrong")
		return
	}
	if sessions == nil {
		sessions = []workspace.ActivitySession{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"sessions": sessions,
	})
}

type setActivityRoleRequest struct {
	Role string `json:"role"`
}

// setActivityRole looks up the named group role at the identity provider and
// merge-writes its rank into the activity config section. Fields other
// callers wrote into the section survive the merge.
func (a *API) setActivityRole(w http.ResponseWriter, r *http.Request, actx auth.Authorized) {
	var req setActivityRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Role) == "" {
		writeError(w, r, http.StatusBadRequest, "role is required")
		return
	}

	ctx := r.Context()
	groupRole, err := a.identity.GroupRole(ctx, actx.Workspace.GroupID, req.Role)
	if errors.Is(err, identity.ErrNotFound) {
		writeError(w, r, http.StatusNotFound, "Role not found")
		return
	}
	if err != nil {
		writeError(w, r, http.StatusServiceUnavailable, "Service is temporarily unavailable. Please try again later.")
		return
	}

	if _, err := a.config.Set(ctx, "activity", map[string]any{"role": groupRole.Rank}, actx.Workspace.GroupID); err != nil {
		writeError(w, r, http.StatusInternalServerError, "Something went wrong")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

type allyVisitPatchRequest struct {
	Name string `json:"name"`
	Time string `json:"time"`
}

func (a *API) allyVisit(w http.ResponseWriter, r *http.Request, actx auth.Authorized, allyID, visitID string) {
	if allyID == "" || visitID == "" {
		writeError(w, r, http.StatusBadRequest, "Missing ally id")
		return
	}
	switch r.Method {
	case http.MethodDelete:
		err := a.workspace.DeleteAllyVisit(r.Context(), actx.Workspace.GroupID, visitID)
		if errors.Is(err, workspace.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "Visit not found")
			return
		}
		if err != nil {
			writeError(w, r, http.StatusInternalServerError, "Something went wrong")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})

	case http.MethodPatch:
		var req allyVisitPatchRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		if req.Name == "" || req.Time == "" {
			writeError(w, r, http.StatusBadRequest, "Missing data")
			return
		}
		visitTime, err := time.Parse(time.RFC3339, req.Time)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "Invalid time")
			return
		}
		_, err = a.workspace.UpdateAllyVisit(r.Context(), actx.Workspace.GroupID, visitID, workspace.AllyVisitUpdate{
			Name: &req.Name,
			Time: &visitTime,
		})
		if errors.Is(err, workspace.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "Visit not found")
			return
		}
		if err != nil {
			writeError(w, r, http.StatusInternalServerError, "Something went wrong")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})

	default:
		methodNotAllowed(w, r, http.MethodPatch, http.MethodDelete)
	}
}

type memberProfile struct {
	UserID          int64  `json:"userId"`
	Username        string `json:"username"`
	DisplayName     string `json:"displayName,omitempty"`
	AvatarThumbnail string `json:"avatarThumbnail,omitempty"`
	IsOwner         bool   `json:"isOwner"`
	RoleName        string `json:"roleName,omitempty"`
	Rank            int    `json:"rank"`
}

// memberProfile assembles the page data for a member's profile view: stored
// identity fields, the workspace role, and best-effort fresh display
// attributes from the provider.
func (a *API) memberProfile(r *http.Request, actx auth.Authorized, memberID int64) (any, error) {
	ctx := r.Context()
	member, err := a.users.Find(ctx, memberID)
	if err != nil {
		return nil, err
	}

	profile := memberProfile{
		UserID:          member.ID,
		Username:        member.Username,
		DisplayName:     member.DisplayName,
		AvatarThumbnail: member.Picture,
		IsOwner:         member.IsOwner,
	}
	permit, err := a.resolver.Resolve(ctx, memberID, actx.Workspace.GroupID)
	if err != nil {
		return nil, err
	}
	profile.Rank = permit.Rank
	if role, err := a.roles.FindByUser(ctx, memberID, actx.Workspace.GroupID); err == nil {
		profile.RoleName = role.Name
	}

	if attrs, err := a.identity.DisplayAttributes(ctx, memberID); err == nil {
		if attrs.Username != "" {
			profile.Username = attrs.Username
		}
		if attrs.DisplayName != "" {
			profile.DisplayName = attrs.DisplayName
		}
		if attrs.AvatarURL != "" {
			profile.AvatarThumbnail = attrs.AvatarURL
		}
	}
	return profile, nil
}
