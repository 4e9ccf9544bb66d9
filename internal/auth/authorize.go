package auth

// Rule is a per-endpoint authorization policy evaluated against the resolved
// principal and the request's path variables. Rules are attached to routes in
// a static table so policy can be tested independently of routing.
type Rule func(p Principal, vars map[string]string) bool

// Authenticated allows any resolved principal.
func Authenticated() Rule {
	return func(Principal, map[string]string) bool { return true }
}

// AnyRole allows principals holding at least one of the given roles.
func AnyRole(roles ...RoleName) Rule {
	return func(p Principal, _ map[string]string) bool {
		for _, role := range roles {
			if p.HasRole(role) {
				return true
			}
		}
		return false
	}
}

// SelfOr allows the principal whose id equals the named path variable, or any
// principal holding one of the given roles. The comparison happens before the
// handler runs, so a denial has no side effects.
func SelfOr(idVar string, roles ...RoleName) Rule {
	elevated := AnyRole(roles...)
	return func(p Principal, vars map[string]string) bool {
		if id, ok := vars[idVar]; ok && id != "" && id == p.ID {
			return true
		}
		return elevated(p, vars)
	}
}

// Authorize evaluates a rule and returns ErrForbidden on denial.
func Authorize(p Principal, rule Rule, vars map[string]string) error {
	if rule == nil {
		return nil
	}
	if !rule(p, vars) {
		return ErrForbidden
	}
	return nil
}
