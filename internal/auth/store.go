package auth

import (
	"context"
	"time"
)

// Store is the credential-store contract consumed by the auth subsystem.
// Implementations are synchronous and authoritative; not-found is reported
// with ErrNotFound.
type Store interface {
	FindByID(ctx context.Context, id string) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)

	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByUserCode(ctx context.Context, userCode string) (bool, error)

	FindRoleByName(ctx context.Context, name RoleName) (*Role, error)

	CreateUser(ctx context.Context, user *User) error

	// RecordLogin updates the user's last-login timestamp. Login treats a
	// failure here as non-fatal.
	RecordLogin(ctx context.Context, userID string, at time.Time) error
}
