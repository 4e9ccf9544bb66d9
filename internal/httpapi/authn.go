package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"aulavirtual.org/internal/auth"
	"aulavirtual.org/internal/obs"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

var publicPaths = []string{
	"/api/auth/login",
	"/api/auth/register",
	"/api/auth/logout",
	"/api/info",
	"/metrics",
	"/healthz",
	"/readyz",
}

// withAuth resolves the bearer token into a principal and enforces the route
// policy table. Missing or invalid tokens yield 401; a resolved principal
// failing the route's rule yields 403 before the handler runs.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			obs.ObserveTokenCheck("missing")
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		principal, err := a.auth.Resolve(r.Context(), token)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidToken) {
				obs.ObserveTokenCheck("denied")
				writeError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}
			writeError(w, http.StatusInternalServerError, "An unexpected error occurred")
			return
		}
		obs.ObserveTokenCheck("ok")

		rule, vars := policyFor(r.Method, r.URL.Path)
		if err := auth.Authorize(principal, rule, vars); err != nil {
			writeError(w, http.StatusForbidden, "Access denied")
			return
		}

		ctx := auth.ContextWithPrincipal(r.Context(), principal)
		ctx = auth.ContextWithToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}
