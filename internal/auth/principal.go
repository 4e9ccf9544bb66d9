package auth

import "sort"

// AuthorityPrefix is prepended to role names when building granted
// authorities, e.g. ROLE_ADMIN.
const AuthorityPrefix = "ROLE_"

// Principal is the per-request identity derived from a validated token and
// the user's current credential-store state. It is never persisted.
type Principal struct {
	ID          string
	UserCode    string
	Username    string
	Email       string
	FirstName   string
	LastName    string
	Authorities map[string]struct{}
}

// NewPrincipal builds a principal from the user's current roles.
func NewPrincipal(user *User) Principal {
	authorities := make(map[string]struct{}, len(user.Roles))
	for _, role := range user.Roles {
		authorities[AuthorityPrefix+string(role.Name)] = struct{}{}
	}
	return Principal{
		ID:          user.ID,
		UserCode:    user.UserCode,
		Username:    user.Username,
		Email:       user.Email,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		Authorities: authorities,
	}
}

// HasAuthority reports whether the principal holds the granted authority.
func (p Principal) HasAuthority(authority string) bool {
	_, ok := p.Authorities[authority]
	return ok
}

// HasRole reports whether the principal holds the authority for the role.
func (p Principal) HasRole(role RoleName) bool {
	return p.HasAuthority(AuthorityPrefix + string(role))
}

// AuthorityList returns the granted authorities in sorted order.
func (p Principal) AuthorityList() []string {
	out := make([]string, 0, len(p.Authorities))
	for a := range p.Authorities {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}
