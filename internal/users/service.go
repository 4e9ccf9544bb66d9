// Package users implements the user-management operations exposed under
// /api/users. It shares the credential store with the auth subsystem so that
// status and role changes take effect on the next request.
package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"aulavirtual.org/internal/auth"
)

// Store is the persistence contract for user management.
type Store interface {
	List(ctx context.Context) ([]*auth.User, error)
	Get(ctx context.Context, id string) (*auth.User, error)
	Update(ctx context.Context, user *auth.User) error
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, term string) ([]*auth.User, error)
}

// Update carries optional field changes; nil means keep the current value.
type Update struct {
	Username        *string
	Email           *string
	Password        *string
	FirstName       *string
	LastName        *string
	MaternalSurname *string
	Phone           *string
}

// Service applies user-management rules on top of the store.
type Service struct {
	store Store
	creds auth.Store
}

// NewService constructs a Service. The creds store is consulted for
// uniqueness checks and role lookups.
func NewService(store Store, creds auth.Store) (*Service, error) {
	if store == nil || creds == nil {
		return nil, errors.New("users: store is required")
	}
	return &Service{store: store, creds: creds}, nil
}

// List returns all users.
func (s *Service) List(ctx context.Context) ([]*auth.User, error) {
	return s.store.List(ctx)
}

// Get returns a user by id.
func (s *Service) Get(ctx context.Context, id string) (*auth.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: user id is required", auth.ErrInvalidInput)
	}
	return s.store.Get(ctx, id)
}

// Create persists a new user without logging it in. Same validation, conflict
// and role semantics as registration.
func (s *Service) Create(ctx context.Context, reg auth.Registration) (*auth.User, error) {
	reg.UserCode = strings.TrimSpace(reg.UserCode)
	reg.Username = strings.TrimSpace(reg.Username)
	reg.Email = strings.TrimSpace(strings.ToLower(reg.Email))
	if verr := auth.ValidateRegistration(reg); verr != nil {
		return nil, verr
	}

	if taken, err := s.creds.ExistsByUsername(ctx, reg.Username); err != nil {
		return nil, err
	} else if taken {
		return nil, &auth.ConflictError{Field: "username"}
	}
	if taken, err := s.creds.ExistsByEmail(ctx, reg.Email); err != nil {
		return nil, err
	} else if taken {
		return nil, &auth.ConflictError{Field: "email"}
	}
	if taken, err := s.creds.ExistsByUserCode(ctx, reg.UserCode); err != nil {
		return nil, err
	} else if taken {
		return nil, &auth.ConflictError{Field: "userCode"}
	}

	roles, err := auth.ResolveRoles(ctx, s.creds, reg.Roles)
	if err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(reg.Password)
	if err != nil {
		return nil, err
	}

	user := &auth.User{
		UserCode:        reg.UserCode,
		Username:        reg.Username,
		Email:           reg.Email,
		PasswordHash:    hash,
		FirstName:       strings.TrimSpace(reg.FirstName),
		LastName:        strings.TrimSpace(reg.LastName),
		MaternalSurname: strings.TrimSpace(reg.MaternalSurname),
		Phone:           strings.TrimSpace(reg.Phone),
		Status:          auth.StatusActive,
		Roles:           roles,
	}
	if err := s.creds.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ApplyUpdate modifies a user. Username and email changes re-run the
// uniqueness checks; an empty password pointer keeps the current hash.
func (s *Service) ApplyUpdate(ctx context.Context, id string, upd Update) (*auth.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.Username != nil {
		username := strings.TrimSpace(*upd.Username)
		if username == "" {
			return nil, fmt.Errorf("%w: username is required", auth.ErrInvalidInput)
		}
		if username != user.Username {
			taken, err := s.creds.ExistsByUsername(ctx, username)
			if err != nil {
				return nil, err
			}
			if taken {
				return nil, &auth.ConflictError{Field: "username"}
			}
			user.Username = username
		}
	}
	if upd.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*upd.Email))
		if email == "" || !strings.Contains(email, "@") {
			return nil, fmt.Errorf("%w: valid email is required", auth.ErrInvalidInput)
		}
		if email != user.Email {
			taken, err := s.creds.ExistsByEmail(ctx, email)
			if err != nil {
				return nil, err
			}
			if taken {
				return nil, &auth.ConflictError{Field: "email"}
			}
			user.Email = email
		}
	}
	if upd.Password != nil && strings.TrimSpace(*upd.Password) != "" {
		hash, err := auth.HashPassword(*upd.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}
	if upd.FirstName != nil {
		user.FirstName = strings.TrimSpace(*upd.FirstName)
	}
	if upd.LastName != nil {
		user.LastName = strings.TrimSpace(*upd.LastName)
	}
	if upd.MaternalSurname != nil {
		user.MaternalSurname = strings.TrimSpace(*upd.MaternalSurname)
	}
	if upd.Phone != nil {
		user.Phone = strings.TrimSpace(*upd.Phone)
	}

	if err := s.store.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Delete removes a user.
func (s *Service) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: user id is required", auth.ErrInvalidInput)
	}
	return s.store.Delete(ctx, id)
}

// ChangeStatus sets the account status. A suspended or inactive user keeps
// any outstanding tokens, but principal resolution rejects them on the next
// request.
func (s *Service) ChangeStatus(ctx context.Context, id string, status auth.UserStatus) (*auth.User, error) {
	if !auth.ValidStatus(status) {
		return nil, fmt.Errorf("%w: unsupported status %s", auth.ErrInvalidInput, status)
	}
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	user.Status = status
	if err := s.store.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Search matches the term against user code, username, email and names.
func (s *Service) Search(ctx context.Context, term string) ([]*auth.User, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, fmt.Errorf("%w: search term is required", auth.ErrInvalidInput)
	}
	return s.store.Search(ctx, term)
}
