package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"aulavirtual.org/internal/auth"
	"aulavirtual.org/internal/ids"
)

const userColumns = `id, user_code, username, email, password_hash, first_name,
	last_name, maternal_surname, phone, profile_picture, status, created_at,
	updated_at, last_login`

func (s *Store) FindByID(ctx context.Context, id string) (*auth.User, error) {
	return s.findUser(ctx, `select `+userColumns+` from users where id = $1`, id)
}

func (s *Store) FindByUsername(ctx context.Context, username string) (*auth.User, error) {
	return s.findUser(ctx, `select `+userColumns+` from users where username = $1`, username)
}

// Get implements the user-management store on top of FindByID.
func (s *Store) Get(ctx context.Context, id string) (*auth.User, error) {
	return s.FindByID(ctx, id)
}

func (s *Store) findUser(ctx context.Context, query string, arg any) (*auth.User, error) {
	row := s.db.QueryRowContext(ctx, query, arg)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	roles, err := s.rolesForUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	user.Roles = roles
	return user, nil
}

func (s *Store) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return s.exists(ctx, `select exists(select 1 from users where username = $1)`, username)
}

func (s *Store) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return s.exists(ctx, `select exists(select 1 from users where email = $1)`, email)
}

func (s *Store) ExistsByUserCode(ctx context.Context, userCode string) (bool, error) {
	return s.exists(ctx, `select exists(select 1 from users where user_code = $1)`, userCode)
}

func (s *Store) exists(ctx context.Context, query string, arg any) (bool, error) {
	var found bool
	if err := s.db.QueryRowContext(ctx, query, arg).Scan(&found); err != nil {
		return false, err
	}
	return found, nil
}

func (s *Store) CreateUser(ctx context.Context, user *auth.User) error {
	if user.ID == "" {
		user.ID = ids.New()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `
		insert into users (id, user_code, username, email, password_hash,
			first_name, last_name, maternal_surname, phone, profile_picture, status)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		returning created_at, updated_at
	`, user.ID, user.UserCode, user.Username, user.Email, user.PasswordHash,
		user.FirstName, user.LastName, nullString(user.MaternalSurname),
		nullString(user.Phone), nullString(user.ProfilePicture), string(user.Status))
	if err := row.Scan(&user.CreatedAt, &user.UpdatedAt); err != nil {
		return conflictFromPg(err)
	}

	for _, role := range user.Roles {
		if _, err := tx.ExecContext(ctx, `
			insert into user_roles (user_id, role_id) values ($1, $2)
			on conflict do nothing
		`, user.ID, role.ID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) Update(ctx context.Context, user *auth.User) error {
	res, err := s.db.ExecContext(ctx, `
		update users set user_code = $2, username = $3, email = $4,
			password_hash = $5, first_name = $6, last_name = $7,
			maternal_surname = $8, phone = $9, profile_picture = $10,
			status = $11, updated_at = now()
		where id = $1
	`, user.ID, user.UserCode, user.Username, user.Email, user.PasswordHash,
		user.FirstName, user.LastName, nullString(user.MaternalSurname),
		nullString(user.Phone), nullString(user.ProfilePicture), string(user.Status))
	if err != nil {
		return conflictFromPg(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return auth.ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from users where id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return auth.ErrNotFound
	}
	return nil
}

func (s *Store) RecordLogin(ctx context.Context, userID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`update users set last_login = $2 where id = $1`, userID, at)
	return err
}

func (s *Store) List(ctx context.Context) ([]*auth.User, error) {
	return s.listUsers(ctx, `select `+userColumns+` from users order by username`)
}

func (s *Store) Search(ctx context.Context, term string) ([]*auth.User, error) {
	pattern := "%" + term + "%"
	return s.listUsers(ctx, `
		select `+userColumns+` from users
		where user_code ilike $1 or username ilike $1 or email ilike $1
			or first_name ilike $1 or last_name ilike $1
		order by username
	`, pattern)
}

func (s *Store) listUsers(ctx context.Context, query string, args ...any) ([]*auth.User, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*auth.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, user := range result {
		roles, err := s.rolesForUser(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		user.Roles = roles
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*auth.User, error) {
	var (
		user            auth.User
		maternalSurname sql.NullString
		phone           sql.NullString
		profilePicture  sql.NullString
		status          string
		lastLogin       sql.NullTime
	)
	err := row.Scan(&user.ID, &user.UserCode, &user.Username, &user.Email,
		&user.PasswordHash, &user.FirstName, &user.LastName, &maternalSurname,
		&phone, &profilePicture, &status, &user.CreatedAt, &user.UpdatedAt,
		&lastLogin)
	if err != nil {
		return nil, err
	}
	user.MaternalSurname = maternalSurname.String
	user.Phone = phone.String
	user.ProfilePicture = profilePicture.String
	user.Status = auth.UserStatus(status)
	if lastLogin.Valid {
		t := lastLogin.Time
		user.LastLogin = &t
	}
	return &user, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
