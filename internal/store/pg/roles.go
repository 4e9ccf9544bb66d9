package pg

import (
	"context"
	"database/sql"
	"errors"

	"aulavirtual.org/internal/auth"
)

func (s *Store) FindRoleByName(ctx context.Context, name auth.RoleName) (*auth.Role, error) {
	var (
		role        auth.Role
		roleName    string
		description sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`select id, name, description from roles where name = $1`, string(name)).
		Scan(&role.ID, &roleName, &description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	role.Name = auth.RoleName(roleName)
	role.Description = description.String
	return &role, nil
}

func (s *Store) rolesForUser(ctx context.Context, userID string) ([]auth.Role, error) {
	rows, err := s.db.QueryContext(ctx, `
		select r.id, r.name, r.description
		from roles r
		join user_roles ur on ur.role_id = r.id
		where ur.user_id = $1
		order by r.name
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []auth.Role
	for rows.Next() {
		var (
			role        auth.Role
			name        string
			description sql.NullString
		)
		if err := rows.Scan(&role.ID, &name, &description); err != nil {
			return nil, err
		}
		role.Name = auth.RoleName(name)
		role.Description = description.String
		roles = append(roles, role)
	}
	return roles, rows.Err()
}
