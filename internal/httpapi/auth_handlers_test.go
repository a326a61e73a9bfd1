package httpapi

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"groupdesk.org/internal/auth"
)

func TestLoginSuccess(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/v1/auth/login", `{"username":"mod","password":"member-pass"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookie {
			cookie = c
		}
	}
	if cookie == nil || cookie.Value == "" {
		t.Fatal("login must set the session cookie")
	}
	if !cookie.HttpOnly {
		t.Fatal("session cookie must be http-only")
	}
	userID, err := auth.ValidateSession(cookie.Value)
	if err != nil || userID != 2 {
		t.Fatalf("cookie does not carry a valid session: id=%d err=%v", userID, err)
	}

	body := decodeBody(t, rec)
	if body["success"] != true {
		t.Fatalf("unexpected body: %v", body)
	}
	user, _ := body["user"].(map[string]any)
	if user["id"] != float64(2) || user["username"] != "mod" {
		t.Fatalf("unexpected user payload: %v", user)
	}
	workspaces, _ := body["workspaces"].([]any)
	if len(workspaces) != 1 {
		t.Fatalf("expected one workspace, got %v", body["workspaces"])
	}
	ws, _ := workspaces[0].(map[string]any)
	if ws["groupId"] != float64(5) {
		t.Fatalf("unexpected workspace payload: %v", ws)
	}
}

func TestLoginRejectsBadRequests(t *testing.T) {
	h := newHarness(t)

	if rec := h.do(t, http.MethodGet, "/v1/auth/login", "", nil); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET login status = %d", rec.Code)
	}
	if rec := h.do(t, http.MethodPost, "/v1/auth/login", `{bad json`, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed body status = %d", rec.Code)
	}
	if rec := h.do(t, http.MethodPost, "/v1/auth/login", `{"username":"  ","password":"x"}`, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("blank username status = %d", rec.Code)
	}
	if rec := h.do(t, http.MethodPost, "/v1/auth/login", `{"username":"mod","password":""}`, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("empty password status = %d", rec.Code)
	}
}

// An unknown handle and a wrong password must be indistinguishable to the
// caller.
func TestLoginFailuresDoNotLeakHandleExistence(t *testing.T) {
	h := newHarness(t)

	unknown := h.do(t, http.MethodPost, "/v1/auth/login", `{"username":"ghost","password":"whatever"}`, nil)
	wrongPass := h.do(t, http.MethodPost, "/v1/auth/login", `{"username":"mod","password":"wrong"}`, nil)

	if unknown.Code != http.StatusUnauthorized || wrongPass.Code != http.StatusUnauthorized {
		t.Fatalf("statuses = %d / %d, want 401 / 401", unknown.Code, wrongPass.Code)
	}
	if unknown.Body.String() != wrongPass.Body.String() {
		t.Fatalf("failure bodies differ:\n%s\n%s", unknown.Body.String(), wrongPass.Body.String())
	}
	if decodeBody(t, unknown)["error"] != msgInvalidCredentials {
		t.Fatalf("unexpected error message: %s", unknown.Body.String())
	}
}

func TestLoginNoLocalPasswordFailsClosed(t *testing.T) {
	h := newHarness(t)
	h.users.users[4] = auth.User{ID: 4, Username: "sso_only"}
	h.identity.handles["sso_only"] = 4

	rec := h.do(t, http.MethodPost, "/v1/auth/login", `{"username":"sso_only","password":"anything"}`, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestLoginRateLimited(t *testing.T) {
	h := newHarness(t)

	for i := 0; i < loginThreshold; i++ {
		rec := h.do(t, http.MethodPost, "/v1/auth/login", `{"username":"mod","password":"wrong"}`, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d status = %d", i+1, rec.Code)
		}
	}
	calls := h.identity.resolveCalls

	rec := h.do(t, http.MethodPost, "/v1/auth/login", `{"username":"mod","password":"member-pass"}`, nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("throttled attempt status = %d", rec.Code)
	}
	if decodeBody(t, rec)["error"] != msgSlowDown {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("throttled response must carry Retry-After")
	}
	if h.identity.resolveCalls != calls {
		t.Fatal("a throttled attempt must not reach the identity provider")
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Fatal("a throttled attempt must not set a session cookie")
	}

	// The window eventually reopens.
	h.limitTime = h.limitTime.Add(loginWindow + time.Second)
	rec = h.do(t, http.MethodPost, "/v1/auth/login", `{"username":"mod","password":"member-pass"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("post-window attempt status = %d body = %s", rec.Code, rec.Body.String())
	}
}

func TestLoginStoreOutage(t *testing.T) {
	h := newHarness(t)
	h.users.err = fmt.Errorf("connection refused")

	rec := h.do(t, http.MethodPost, "/v1/auth/login", `{"username":"mod","password":"member-pass"}`, nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	h := newHarness(t)

	for i := 0; i < 2; i++ {
		rec := h.do(t, http.MethodPost, "/v1/auth/logout", "", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("logout %d status = %d", i+1, rec.Code)
		}
		var cleared bool
		for _, c := range rec.Result().Cookies() {
			if c.Name == sessionCookie && c.MaxAge < 0 && c.Value == "" {
				cleared = true
			}
		}
		if !cleared {
			t.Fatal("logout must clear the session cookie")
		}
	}

	// A garbage cookie is cleared the same way.
	rec := h.do(t, http.MethodPost, "/v1/auth/logout", "", &http.Cookie{Name: sessionCookie, Value: "not-a-token"})
	if rec.Code != http.StatusOK {
		t.Fatalf("logout with stale cookie status = %d", rec.Code)
	}
}
