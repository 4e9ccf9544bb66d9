package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"aulavirtual.org/internal/obs"
)

// Registration is the payload accepted by Register.
type Registration struct {
	UserCode        string
	Username        string
	Email           string
	Password        string
	FirstName       string
	LastName        string
	MaternalSurname string
	Phone           string
	Roles           []string
}

// Service orchestrates credential checks, token issuance and per-request
// principal resolution against live user state.
type Service struct {
	store Store
	codec *Codec
	now   func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service) error

// WithServiceClock overrides the time source (useful for tests).
func WithServiceClock(fn func() time.Time) ServiceOption {
	return func(s *Service) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

// NewService constructs a Service over the given credential store and codec.
func NewService(store Store, codec *Codec, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("auth: store is required")
	}
	if codec == nil {
		return nil, errors.New("auth: codec is required")
	}
	svc := &Service{store: store, codec: codec, now: time.Now}
	for _, opt := range opts {
		if err := opt(svc); err != nil {
			return nil, err
		}
	}
	return svc, nil
}

// Login authenticates a username/password pair and mints an access token.
// Unknown usernames, wrong passwords and non-active accounts all surface as
// ErrBadCredentials; the actual reason is only logged.
func (s *Service) Login(ctx context.Context, username, password string) (string, Principal, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", Principal{}, ErrBadCredentials
	}

	user, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			logAuthFailure(username, "unknown username")
			return "", Principal{}, ErrBadCredentials
		}
		return "", Principal{}, err
	}
	if user.Status != StatusActive {
		logAuthFailure(username, fmt.Sprintf("account status %s", user.Status))
		return "", Principal{}, ErrBadCredentials
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		logAuthFailure(username, "password mismatch")
		return "", Principal{}, ErrBadCredentials
	}

	// Best effort: a failure to record last-login must not fail the login.
	if err := s.store.RecordLogin(ctx, user.ID, s.now().UTC()); err != nil {
		obs.LogEvent(map[string]any{
			"level": "warn", "msg": "record last login failed",
			"username": username, "error": err.Error(),
		})
	}

	principal := NewPrincipal(user)
	token, _, err := s.codec.Mint(user.Username)
	if err != nil {
		return "", Principal{}, err
	}
	return token, principal, nil
}

// Register creates a user and immediately logs it in. Duplicate username,
// email or user code fail with a ConflictError naming the field, checked in
// that order, before anything is persisted.
func (s *Service) Register(ctx context.Context, reg Registration) (string, Principal, error) {
	reg.UserCode = strings.TrimSpace(reg.UserCode)
	reg.Username = strings.TrimSpace(reg.Username)
	reg.Email = strings.TrimSpace(strings.ToLower(reg.Email))
	if verr := ValidateRegistration(reg); verr != nil {
		return "", Principal{}, verr
	}

	if taken, err := s.store.ExistsByUsername(ctx, reg.Username); err != nil {
		return "", Principal{}, err
	} else if taken {
		return "", Principal{}, &ConflictError{Field: "username"}
	}
	if taken, err := s.store.ExistsByEmail(ctx, reg.Email); err != nil {
		return "", Principal{}, err
	} else if taken {
		return "", Principal{}, &ConflictError{Field: "email"}
	}
	if taken, err := s.store.ExistsByUserCode(ctx, reg.UserCode); err != nil {
		return "", Principal{}, err
	} else if taken {
		return "", Principal{}, &ConflictError{Field: "userCode"}
	}

	roles, err := ResolveRoles(ctx, s.store, reg.Roles)
	if err != nil {
		return "", Principal{}, err
	}
	hash, err := HashPassword(reg.Password)
	if err != nil {
		return "", Principal{}, err
	}

	user := &User{
		UserCode:        reg.UserCode,
		Username:        reg.Username,
		Email:           reg.Email,
		PasswordHash:    hash,
		FirstName:       strings.TrimSpace(reg.FirstName),
		LastName:        strings.TrimSpace(reg.LastName),
		MaternalSurname: strings.TrimSpace(reg.MaternalSurname),
		Phone:           strings.TrimSpace(reg.Phone),
		Status:          StatusActive,
		Roles:           roles,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return "", Principal{}, err
	}

	return s.Login(ctx, reg.Username, reg.Password)
}

// Resolve validates a bearer token and rebuilds the principal from the
// subject's current credential-store state. The authority set always comes
// from the user's current roles, never from the token.
func (s *Service) Resolve(ctx context.Context, token string) (Principal, error) {
	subject, err := s.codec.Validate(token)
	if err != nil {
		return Principal{}, err
	}
	user, err := s.store.FindByUsername(ctx, subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			logAuthFailure(subject, "token subject no longer exists")
			return Principal{}, ErrInvalidToken
		}
		return Principal{}, err
	}
	if user.Status != StatusActive {
		logAuthFailure(subject, fmt.Sprintf("token subject status %s", user.Status))
		return Principal{}, ErrInvalidToken
	}
	return NewPrincipal(user), nil
}

// ResolveRoles maps requested role names onto stored roles. An empty request
// defaults to STUDENT. Unknown names also fall back to STUDENT: this mirrors
// the behavior existing clients depend on, but it silently down-scopes a
// mistyped elevated-role request, so every fallback is logged at warn level.
func ResolveRoles(ctx context.Context, store Store, requested []string) ([]Role, error) {
	names := make([]RoleName, 0, len(requested)+1)
	seen := make(map[RoleName]struct{})
	add := func(n RoleName) {
		if _, ok := seen[n]; !ok {
			seen[n] = struct{}{}
			names = append(names, n)
		}
	}
	if len(requested) == 0 {
		add(RoleStudent)
	}
	for _, raw := range requested {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		name, ok := ParseRoleName(raw)
		if !ok {
			obs.LogEvent(map[string]any{
				"level": "warn", "msg": "unknown role requested, falling back to STUDENT",
				"role": raw,
			})
			name = RoleStudent
		}
		add(name)
	}
	if len(names) == 0 {
		add(RoleStudent)
	}

	roles := make([]Role, 0, len(names))
	for _, name := range names {
		role, err := store.FindRoleByName(ctx, name)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, fmt.Errorf("%w: role %s", ErrNotFound, name)
			}
			return nil, err
		}
		roles = append(roles, *role)
	}
	return roles, nil
}

// ValidateRegistration checks the field constraints on a registration payload.
// Both self-registration and admin-driven user creation enforce the same
// rules.
func ValidateRegistration(reg Registration) *ValidationError {
	fields := make(map[string]string)
	if reg.UserCode == "" {
		fields["userCode"] = "user code is required"
	} else if len(reg.UserCode) > 20 {
		fields["userCode"] = "user code must be at most 20 characters"
	}
	if reg.Username == "" {
		fields["username"] = "username is required"
	} else if len(reg.Username) < 3 || len(reg.Username) > 50 {
		fields["username"] = "username must be between 3 and 50 characters"
	}
	if reg.Email == "" {
		fields["email"] = "email is required"
	} else if !strings.Contains(reg.Email, "@") || len(reg.Email) > 100 {
		fields["email"] = "email is not valid"
	}
	if reg.Password == "" {
		fields["password"] = "password is required"
	} else if len(reg.Password) < 6 {
		fields["password"] = "password must be at least 6 characters"
	}
	if strings.TrimSpace(reg.FirstName) == "" {
		fields["firstName"] = "first name is required"
	}
	if strings.TrimSpace(reg.LastName) == "" {
		fields["lastName"] = "last name is required"
	}
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

func logAuthFailure(username, reason string) {
	obs.LogEvent(map[string]any{
		"level":    "warn",
		"msg":      "authentication failed",
		"username": username,
		"reason":   reason,
	})
}
