package auth

import "time"

// UserStatus controls whether an account may authenticate. Status is enforced
// both at login and on every request during principal resolution.
type UserStatus string

const (
	StatusActive    UserStatus = "ACTIVE"
	StatusInactive  UserStatus = "INACTIVE"
	StatusSuspended UserStatus = "SUSPENDED"
)

// ValidStatus reports whether s is one of the known account statuses.
func ValidStatus(s UserStatus) bool {
	switch s {
	case StatusActive, StatusInactive, StatusSuspended:
		return true
	}
	return false
}

// RoleName is the closed set of roles known to the system. There is no
// dynamic role creation; the four values below are seeded by migration.
type RoleName string

const (
	RoleAdmin       RoleName = "ADMIN"
	RoleInstructor  RoleName = "INSTRUCTOR"
	RoleStudent     RoleName = "STUDENT"
	RoleCoordinator RoleName = "COORDINATOR"
)

// ParseRoleName maps a raw role string to a known RoleName.
func ParseRoleName(raw string) (RoleName, bool) {
	switch RoleName(raw) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleInstructor:
		return RoleInstructor, true
	case RoleStudent:
		return RoleStudent, true
	case RoleCoordinator:
		return RoleCoordinator, true
	}
	return "", false
}

// Role groups users under one of the enumerated role names.
type Role struct {
	ID          string
	Name        RoleName
	Description string
}

// User is the credential-store record for an account. Username, email and
// user code are each globally unique; a persisted user always has at least
// one role.
type User struct {
	ID              string
	UserCode        string
	Username        string
	Email           string
	PasswordHash    string
	FirstName       string
	LastName        string
	MaternalSurname string
	Phone           string
	ProfilePicture  string
	Status          UserStatus
	Roles           []Role
	CreatedAt       time.Time
	UpdatedAt       time.Time
	LastLogin       *time.Time
}

// RoleNames returns the user's role names as plain strings.
func (u *User) RoleNames() []string {
	if u == nil || len(u.Roles) == 0 {
		return nil
	}
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, string(r.Name))
	}
	return names
}
