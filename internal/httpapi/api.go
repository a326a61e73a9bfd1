// Package httpapi is the HTTP surface of the groupdesk service: login and
// logout, the authorization gate, and the guarded workspace endpoints.
package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"groupdesk.org/internal/auth"
	"groupdesk.org/internal/identity"
	"groupdesk.org/internal/obs"
	"groupdesk.org/internal/ratelimit"
	"groupdesk.org/internal/workspace"
	"groupdesk.org/internal/wsconfig"
)

const (
	sessionCookie = "groupdesk_session"

	loginWindow    = 15 * time.Minute
	loginThreshold = 5

	// coarse per-client ceiling across the whole API
	apiRatePerSecond = 30
	apiRateBurst     = 60
)

// MembershipStore lists a user's role memberships across workspaces.
type MembershipStore interface {
	MembershipsByUser(ctx context.Context, userID int64) ([]auth.Membership, error)
}

// ReadyProbe is a simple readiness check (e.g. a database ping).
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Deps carries everything the API needs.
type Deps struct {
	Users       auth.UserStore
	Workspaces  auth.WorkspaceStore
	Roles       auth.RoleStore
	Memberships MembershipStore
	Resolver    *auth.Resolver
	Identity    identity.Provider
	Config      *wsconfig.Engine
	Workspace   workspace.Store
	ReadyProbe  ReadyProbe
	SessionTTL  time.Duration

	// LoginLimiter may be injected for tests; defaults to the production
	// window (5 attempts / 15 minutes per client key).
	LoginLimiter *ratelimit.Limiter
}

// API is the HTTP layer.
type API struct {
	mux          *http.ServeMux
	users        auth.UserStore
	workspaces   auth.WorkspaceStore
	roles        auth.RoleStore
	memberships  MembershipStore
	resolver     *auth.Resolver
	identity     identity.Provider
	config       *wsconfig.Engine
	workspace    workspace.Store
	readyProbe   ReadyProbe
	loginLimiter *ratelimit.Limiter
	sessionTTL   time.Duration
	version      string
}

func New(deps Deps, version string) *API {
	a := &API{
		mux:          http.NewServeMux(),
		users:        deps.Users,
		workspaces:   deps.Workspaces,
		roles:        deps.Roles,
		memberships:  deps.Memberships,
		resolver:     deps.Resolver,
		identity:     deps.Identity,
		config:       deps.Config,
		workspace:    deps.Workspace,
		readyProbe:   deps.ReadyProbe,
		loginLimiter: deps.LoginLimiter,
		sessionTTL:   deps.SessionTTL,
		version:      version,
	}
	if a.loginLimiter == nil {
		a.loginLimiter = ratelimit.New(loginThreshold, loginWindow)
	}
	if a.sessionTTL <= 0 {
		a.sessionTTL = auth.DefaultSessionTTL
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// auth
	a.mux.HandleFunc("/v1/auth/login", a.handleLogin)
	a.mux.HandleFunc("/v1/auth/logout", a.handleLogout)

	// identity proxy
	a.mux.HandleFunc("/v1/identity/id", a.handleResolveID)

	// guarded workspace endpoints
	a.mux.HandleFunc("/v1/workspaces/", a.handleWorkspaceScoped)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the fully wrapped http.Handler for the server.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = MaxBodyBytes(h, 1<<20)
	h = SecurityHeaders(h)
	h = CORS(h)
	h = RateLimit(h, apiRateBurst, apiRatePerSecond)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "groupdesk-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "groupdesk-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}
