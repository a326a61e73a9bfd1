package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"groupdesk.org/internal/auth"
	"groupdesk.org/internal/obs"
	"groupdesk.org/internal/ratelimit"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginUser struct {
	ID              int64  `json:"id"`
	Username        string `json:"username"`
	DisplayName     string `json:"displayName"`
	AvatarThumbnail string `json:"avatarThumbnail,omitempty"`
	IsOwner         bool   `json:"isOwner"`
}

type loginWorkspace struct {
	GroupID        int64  `json:"groupId"`
	GroupThumbnail string `json:"groupThumbnail,omitempty"`
	GroupName      string `json:"groupName,omitempty"`
}

type loginResponse struct {
	Success    bool             `json:"success"`
	User       loginUser        `json:"user"`
	Workspaces []loginWorkspace `json:"workspaces"`
}

const (
	msgInvalidCredentials = "Invalid username or password"
	msgSlowDown           = "Slow down! Too many login attempts, please try again later."
)

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	// The attempt window is checked before anything else. A denied attempt
	// causes no identity resolution and no session write.
	if decision := a.loginLimiter.Admit(ratelimit.ClientKey(r)); !decision.Allowed {
		obs.CountLogin("rate_limited")
		w.Header().Set("Retry-After", retryAfterSeconds(decision.RetryAfter))
		writeError(w, r, http.StatusTooManyRequests, msgSlowDown)
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "Username and password are required")
		return
	}

	ctx := r.Context()

	// An unknown handle and a provider outage both read as a bad credential
	// so handle existence never leaks.
	userID, err := a.identity.ResolveHandle(ctx, req.Username)
	if err != nil {
		obs.CountLogin("invalid_credentials")
		writeError(w, r, http.StatusUnauthorized, msgInvalidCredentials)
		return
	}

	user, err := a.users.Find(ctx, userID)
	if errors.Is(err, auth.ErrNotFound) {
		obs.CountLogin("invalid_credentials")
		writeError(w, r, http.StatusUnauthorized, msgInvalidCredentials)
		return
	}
	if err != nil {
		obs.CountLogin("upstream_error")
		writeError(w, r, http.StatusServiceUnavailable, "Database service is temporarily unavailable. Please try again later.")
		return
	}

	// Accounts without a local password fail closed.
	if err := auth.VerifyPassword(user.PasswordHash, req.Password); err != nil {
		obs.CountLogin("invalid_credentials")
		writeError(w, r, http.StatusUnauthorized, msgInvalidCredentials)
		return
	}

	token, expiresAt, err := auth.IssueSession(user.ID, a.sessionTTL)
	if err != nil {
		obs.CountLogin("upstream_error")
		writeError(w, r, http.StatusInternalServerError, "An unexpected error occurred during login")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	resp := loginResponse{
		Success: true,
		User: loginUser{
			ID:       user.ID,
			Username: user.Username,
			IsOwner:  user.IsOwner,
		},
		Workspaces: []loginWorkspace{},
	}

	// Display attributes are hydration only; partial data must not fail a
	// login that already verified.
	if attrs, err := a.identity.DisplayAttributes(ctx, user.ID); err == nil {
		if attrs.Username != "" {
			resp.User.Username = attrs.Username
		}
		resp.User.DisplayName = attrs.DisplayName
		resp.User.AvatarThumbnail = attrs.AvatarURL
	}
	if resp.User.DisplayName == "" {
		resp.User.DisplayName = user.DisplayName
	}
	if resp.User.AvatarThumbnail == "" {
		resp.User.AvatarThumbnail = user.Picture
	}

	if memberships, err := a.memberships.MembershipsByUser(ctx, user.ID); err == nil {
		for _, m := range memberships {
			entry := loginWorkspace{GroupID: m.WorkspaceGroupID}
			if group, err := a.identity.GroupInfo(ctx, m.WorkspaceGroupID); err == nil {
				entry.GroupThumbnail = group.LogoURL
				entry.GroupName = group.Name
			}
			resp.Workspaces = append(resp.Workspaces, entry)
		}
	}

	obs.CountLogin("success")
	writeJSON(w, http.StatusOK, resp)
}

// handleLogout clears the session cookie. Invalidating an already-invalid
// session is a no-op success, so the handler never inspects the cookie value.
func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func retryAfterSeconds(d time.Duration) string {
	secs := int(d.Seconds())
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
