package postgres

import (
	"context"
	"fmt"

	"github.com/arthurdotwork/forumlive/internal/domain"
	"github.com/google/uuid"
)

const resolveUserQuery = `SELECT u.id, u.username, r.id, r.name
	FROM users u
	LEFT JOIN users_roles ur ON ur.user_id = u.id
	LEFT JOIN roles r ON r.id = ur.role_id
	WHERE u.id = $1`

type UserDirectory struct {
	db Querier
}

func NewUserDirectory(db Querier) *UserDirectory {
	return &UserDirectory{db: db}
}

func (d *UserDirectory) ResolveUser(ctx context.Context, userID uuid.UUID) (domain.User, error) {
	rows, err := d.db.Query(ctx, resolveUserQuery, userID)
	if err != nil {
		return domain.User{}, fmt.Errorf("db.Query: %w", err)
	}
	defer rows.Close()

	var (
		user  domain.User
		found bool
	)

	for rows.Next() {
		var (
			roleID   *uuid.UUID
			roleName *string
		)

		if err := rows.Scan(&user.ID, &user.Username, &roleID, &roleName); err != nil {
			return domain.User{}, fmt.Errorf("rows.Scan: %w", err)
		}

		found = true

		if roleID != nil && roleName != nil {
			user.Roles = append(user.Roles, domain.Role{ID: *roleID, Name: *roleName})
		}
	}

	if err := rows.Err(); err != nil {
		return domain.User{}, fmt.Errorf("rows.Err: %w", err)
	}

	if !found {
		return domain.User{}, domain.ErrUserNotFound
	}

	return user, nil
}
