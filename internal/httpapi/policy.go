package httpapi

import (
	"strings"

	"aulavirtual.org/internal/auth"
)

// routePolicy binds a route to its required-authority rule. The table is the
// single place per-endpoint policy lives; it is evaluated after principal
// resolution and before dispatch, so a denial never reaches a handler.
type routePolicy struct {
	method  string
	pattern string
	rule    auth.Rule
}

// Patterns are matched in order; keep literal segments (e.g. search) ahead of
// parameterized ones.
var routePolicies = []routePolicy{
	{"GET", "/api/users", auth.AnyRole(auth.RoleAdmin)},
	{"POST", "/api/users", auth.AnyRole(auth.RoleAdmin)},
	{"GET", "/api/users/search", auth.AnyRole(auth.RoleAdmin)},
	{"PUT", "/api/users/{id}/status", auth.AnyRole(auth.RoleAdmin)},
	{"GET", "/api/users/{id}", auth.SelfOr("id", auth.RoleAdmin)},
	{"PUT", "/api/users/{id}", auth.SelfOr("id", auth.RoleAdmin)},
	{"DELETE", "/api/users/{id}", auth.AnyRole(auth.RoleAdmin)},
}

// policyFor returns the rule and extracted path variables for a route.
// Routes without a table entry only require an authenticated principal.
func policyFor(method, path string) (auth.Rule, map[string]string) {
	for _, p := range routePolicies {
		if p.method != method {
			continue
		}
		if vars, ok := matchPattern(p.pattern, path); ok {
			return p.rule, vars
		}
	}
	return auth.Authenticated(), nil
}

// matchPattern matches a path against a pattern with {var} segments.
func matchPattern(pattern, path string) (map[string]string, bool) {
	patternParts := strings.Split(strings.Trim(pattern, "/"), "/")
	pathParts := strings.Split(strings.Trim(path, "/"), "/")
	if len(patternParts) != len(pathParts) {
		return nil, false
	}
	var vars map[string]string
	for i, part := range patternParts {
		if strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") {
			if pathParts[i] == "" {
				return nil, false
			}
			if vars == nil {
				vars = make(map[string]string)
			}
			vars[strings.Trim(part, "{}")] = pathParts[i]
			continue
		}
		if part != pathParts[i] {
			return nil, false
		}
	}
	return vars, true
}
