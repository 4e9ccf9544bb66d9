package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

// stubStore is an in-memory credential store for service tests.
type stubStore struct {
	users          map[string]*User
	roles          map[RoleName]Role
	seq            int
	recordLoginErr error
}

func newStubStore() *stubStore {
	return &stubStore{
		users: make(map[string]*User),
		roles: map[RoleName]Role{
			RoleAdmin:       {ID: "r-admin", Name: RoleAdmin},
			RoleInstructor:  {ID: "r-instructor", Name: RoleInstructor},
			RoleStudent:     {ID: "r-student", Name: RoleStudent},
			RoleCoordinator: {ID: "r-coordinator", Name: RoleCoordinator},
		},
	}
}

func (s *stubStore) FindByID(_ context.Context, id string) (*User, error) {
	if user, ok := s.users[id]; ok {
		return user, nil
	}
	return nil, ErrNotFound
}

func (s *stubStore) FindByUsername(_ context.Context, username string) (*User, error) {
	for _, user := range s.users {
		if user.Username == username {
			return user, nil
		}
	}
	return nil, ErrNotFound
}

func (s *stubStore) ExistsByUsername(_ context.Context, username string) (bool, error) {
	for _, user := range s.users {
		if user.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (s *stubStore) ExistsByEmail(_ context.Context, email string) (bool, error) {
	for _, user := range s.users {
		if user.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (s *stubStore) ExistsByUserCode(_ context.Context, userCode string) (bool, error) {
	for _, user := range s.users {
		if user.UserCode == userCode {
			return true, nil
		}
	}
	return false, nil
}

func (s *stubStore) FindRoleByName(_ context.Context, name RoleName) (*Role, error) {
	if role, ok := s.roles[name]; ok {
		return &role, nil
	}
	return nil, ErrNotFound
}

func (s *stubStore) CreateUser(_ context.Context, user *User) error {
	if user.ID == "" {
		s.seq++
		user.ID = fmt.Sprintf("u-%d", s.seq)
	}
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	s.users[user.ID] = user
	return nil
}

func (s *stubStore) RecordLogin(_ context.Context, userID string, at time.Time) error {
	if s.recordLoginErr != nil {
		return s.recordLoginErr
	}
	if user, ok := s.users[userID]; ok {
		t := at
		user.LastLogin = &t
	}
	return nil
}

func seedUser(t *testing.T, store *stubStore, username, password string, status UserStatus, roles ...RoleName) *User {
	t.Helper()
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	assigned := make([]Role, 0, len(roles))
	for _, name := range roles {
		assigned = append(assigned, store.roles[name])
	}
	user := &User{
		UserCode:     "C-" + username,
		Username:     username,
		Email:        username + "@example.edu",
		PasswordHash: hash,
		FirstName:    "Test",
		LastName:     "User",
		Status:       status,
		Roles:        assigned,
	}
	if err := store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return user
}

func newTestService(t *testing.T, store *stubStore) *Service {
	t.Helper()
	codec, err := NewCodec("test-secret")
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	svc, err := NewService(store, codec)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestLoginSuccess(t *testing.T) {
	store := newStubStore()
	user := seedUser(t, store, "jdoe", "secret123", StatusActive, RoleStudent)
	svc := newTestService(t, store)

	token, principal, err := svc.Login(context.Background(), "jdoe", "secret123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if token == "" {
		t.Fatal("expected a token")
	}
	if principal.ID != user.ID || principal.Username != "jdoe" {
		t.Fatalf("principal = %+v", principal)
	}
	if !principal.HasRole(RoleStudent) {
		t.Fatal("expected ROLE_STUDENT authority")
	}
	if user.LastLogin == nil {
		t.Fatal("expected last login to be recorded")
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	store := newStubStore()
	seedUser(t, store, "jdoe", "secret123", StatusActive, RoleStudent)
	seedUser(t, store, "dormant", "secret123", StatusInactive, RoleStudent)
	seedUser(t, store, "blocked", "secret123", StatusSuspended, RoleStudent)
	svc := newTestService(t, store)

	cases := map[string]struct {
		username, password string
	}{
		"unknown username": {"nobody", "secret123"},
		"wrong password":   {"jdoe", "wrong"},
		"inactive account": {"dormant", "secret123"},
		"suspended account": {"blocked", "secret123"},
		"empty password":   {"jdoe", ""},
	}
	for name, tc := range cases {
		_, _, err := svc.Login(context.Background(), tc.username, tc.password)
		if !errors.Is(err, ErrBadCredentials) {
			t.Fatalf("%s: err = %v, want ErrBadCredentials", name, err)
		}
	}
}

func TestLoginSurvivesRecordLoginFailure(t *testing.T) {
	store := newStubStore()
	seedUser(t, store, "jdoe", "secret123", StatusActive, RoleStudent)
	store.recordLoginErr = errors.New("db unavailable")
	svc := newTestService(t, store)

	token, _, err := svc.Login(context.Background(), "jdoe", "secret123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if token == "" {
		t.Fatal("expected a token")
	}
}

func TestRegisterDefaultsToStudent(t *testing.T) {
	store := newStubStore()
	svc := newTestService(t, store)

	token, principal, err := svc.Register(context.Background(), Registration{
		UserCode:  "S001",
		Username:  "newbie",
		Email:     "Newbie@Example.edu",
		Password:  "secret123",
		FirstName: "New",
		LastName:  "Student",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if token == "" {
		t.Fatal("expected a token")
	}
	if !principal.HasRole(RoleStudent) {
		t.Fatalf("authorities = %v, want ROLE_STUDENT", principal.AuthorityList())
	}
	stored, err := store.FindByUsername(context.Background(), "newbie")
	if err != nil {
		t.Fatalf("FindByUsername: %v", err)
	}
	if stored.Email != "newbie@example.edu" {
		t.Fatalf("email = %q, want lowercase", stored.Email)
	}
	if stored.Status != StatusActive {
		t.Fatalf("status = %s, want ACTIVE", stored.Status)
	}
	if err := VerifyPassword(stored.PasswordHash, "secret123"); err != nil {
		t.Fatalf("stored hash does not verify: %v", err)
	}
}

func TestRegisterUnknownRoleFallsBackToStudent(t *testing.T) {
	store := newStubStore()
	svc := newTestService(t, store)

	_, principal, err := svc.Register(context.Background(), Registration{
		UserCode:  "S002",
		Username:  "typo",
		Email:     "typo@example.edu",
		Password:  "secret123",
		FirstName: "Ty",
		LastName:  "Po",
		Roles:     []string{"TEACHER"},
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if !principal.HasRole(RoleStudent) {
		t.Fatalf("authorities = %v, want ROLE_STUDENT fallback", principal.AuthorityList())
	}
	if principal.HasRole(RoleInstructor) {
		t.Fatal("unknown role must not grant INSTRUCTOR")
	}
}

func TestRegisterConflictOrder(t *testing.T) {
	store := newStubStore()
	existing := seedUser(t, store, "taken", "secret123", StatusActive, RoleStudent)
	svc := newTestService(t, store)

	base := Registration{
		Password:  "secret123",
		FirstName: "Dup",
		LastName:  "User",
	}
	cases := []struct {
		name      string
		reg       Registration
		wantField string
	}{
		{"username wins", Registration{UserCode: existing.UserCode, Username: existing.Username, Email: existing.Email}, "username"},
		{"then email", Registration{UserCode: existing.UserCode, Username: "fresh", Email: existing.Email}, "email"},
		{"then user code", Registration{UserCode: existing.UserCode, Username: "fresh", Email: "fresh@example.edu"}, "userCode"},
	}
	for _, tc := range cases {
		reg := base
		reg.UserCode = tc.reg.UserCode
		reg.Username = tc.reg.Username
		reg.Email = tc.reg.Email

		before := len(store.users)
		_, _, err := svc.Register(context.Background(), reg)
		var conflict *ConflictError
		if !errors.As(err, &conflict) {
			t.Fatalf("%s: err = %v, want ConflictError", tc.name, err)
		}
		if conflict.Field != tc.wantField {
			t.Fatalf("%s: field = %q, want %q", tc.name, conflict.Field, tc.wantField)
		}
		if len(store.users) != before {
			t.Fatalf("%s: conflict must not persist a user", tc.name)
		}
	}
}

func TestRegisterValidation(t *testing.T) {
	store := newStubStore()
	svc := newTestService(t, store)

	_, _, err := svc.Register(context.Background(), Registration{
		Username: "ab",
		Email:    "not-an-email",
		Password: "short",
	})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	for _, field := range []string{"userCode", "username", "email", "password", "firstName", "lastName"} {
		if _, ok := verr.Fields[field]; !ok {
			t.Fatalf("missing validation message for %s: %v", field, verr.Fields)
		}
	}
	if len(store.users) != 0 {
		t.Fatal("validation failure must not persist a user")
	}
}

func TestResolveRejectsDeletedSubject(t *testing.T) {
	store := newStubStore()
	user := seedUser(t, store, "jdoe", "secret123", StatusActive, RoleStudent)
	svc := newTestService(t, store)

	token, _, err := svc.Login(context.Background(), "jdoe", "secret123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	delete(store.users, user.ID)

	if _, err := svc.Resolve(context.Background(), token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Resolve = %v, want ErrInvalidToken", err)
	}
}

func TestResolveRejectsSuspendedSubject(t *testing.T) {
	store := newStubStore()
	user := seedUser(t, store, "jdoe", "secret123", StatusActive, RoleStudent)
	svc := newTestService(t, store)

	token, _, err := svc.Login(context.Background(), "jdoe", "secret123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	user.Status = StatusSuspended

	if _, err := svc.Resolve(context.Background(), token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Resolve = %v, want ErrInvalidToken", err)
	}
}

func TestResolveReflectsCurrentRoles(t *testing.T) {
	store := newStubStore()
	user := seedUser(t, store, "jdoe", "secret123", StatusActive, RoleStudent)
	svc := newTestService(t, store)

	token, _, err := svc.Login(context.Background(), "jdoe", "secret123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	// Roles granted after token issuance take effect on the next resolve.
	user.Roles = append(user.Roles, store.roles[RoleInstructor])

	principal, err := svc.Resolve(context.Background(), token)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !principal.HasRole(RoleInstructor) {
		t.Fatalf("authorities = %v, want ROLE_INSTRUCTOR", principal.AuthorityList())
	}
}

func TestResolveRolesDeduplicates(t *testing.T) {
	store := newStubStore()
	roles, err := ResolveRoles(context.Background(), store, []string{"STUDENT", "STUDENT", "ADMIN"})
	if err != nil {
		t.Fatalf("ResolveRoles: %v", err)
	}
	if len(roles) != 2 {
		t.Fatalf("got %d roles, want 2: %+v", len(roles), roles)
	}
}
