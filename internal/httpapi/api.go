package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"aulavirtual.org/internal/auth"
	"aulavirtual.org/internal/obs"
	"aulavirtual.org/internal/users"
)

// ReadyProbe checks dependencies for the readiness endpoint.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Options configures the HTTP layer.
type Options struct {
	AllowedOrigins []string
	RateBurst      int
	RatePerSecond  int
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	auth       *auth.Service
	users      *users.Service
	readyProbe ReadyProbe
	version    string
	opts       Options
}

// New wires all routes.
func New(authSvc *auth.Service, userSvc *users.Service, rp ReadyProbe, version string, opts Options) *API {
	if opts.RateBurst <= 0 {
		opts.RateBurst = 50
	}
	if opts.RatePerSecond <= 0 {
		opts.RatePerSecond = 25
	}
	a := &API{
		mux:        http.NewServeMux(),
		auth:       authSvc,
		users:      userSvc,
		readyProbe: rp,
		version:    version,
		opts:       opts,
	}

	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/api/info", a.Info)
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/api/auth/login", a.handleLogin)
	a.mux.HandleFunc("/api/auth/register", a.handleRegister)
	a.mux.HandleFunc("/api/auth/logout", a.handleLogout)

	a.mux.HandleFunc("/api/users", a.handleUsers)
	a.mux.HandleFunc("/api/users/", a.handleUserScoped)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Resource not found")
	})

	return a
}

// Handler returns the fully wrapped http.Handler.
func (a *API) Handler() http.Handler {
	h := a.withAuth(a.mux)
	h = LoggingJSON(h)
	h = MaxBodyBytes(h, 1<<20)
	h = RateLimit(h, a.opts.RateBurst, a.opts.RatePerSecond)
	h = CORS(a.opts.AllowedOrigins)(h)
	h = SecurityHeaders(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "aula-virtual-api",
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
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "aula-virtual-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}
