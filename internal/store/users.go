package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/komponente/internal/model"
)

const userColumns = `id, display_name, username, password_hash, role, created_at`

// CreateUser creates a new user. A taken username yields model.ErrConflict.
func CreateUser(ctx context.Context, db sqlx.ExtContext, displayName, username, passwordHash, role string) (*model.User, error) {
	var id int64
	err := sqlx.GetContext(ctx, db, &id, db.Rebind(
		`INSERT INTO users (display_name, username, password_hash, role, created_at)
		 VALUES (?, ?, ?, ?, ?) RETURNING id`),
		displayName, username, passwordHash, role, now(),
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("creating user %q: %w", username, model.ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	return GetUser(ctx, db, id)
}

// GetUser returns a user by ID, or nil if it does not exist.
func GetUser(ctx context.Context, db sqlx.ExtContext, id int64) (*model.User, error) {
	u := &model.User{}
	err := sqlx.GetContext(ctx, db, u, db.Rebind(
		`SELECT `+userColumns+` FROM users WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}

// GetUserByUsername returns a user by login name, or nil if it does not exist.
func GetUserByUsername(ctx context.Context, db sqlx.ExtContext, username string) (*model.User, error) {
	u := &model.User{}
	err := sqlx.GetContext(ctx, db, u, db.Rebind(
		`SELECT `+userColumns+` FROM users WHERE username = ?`), username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user by username: %w", err)
	}
	return u, nil
}

// ListUsers returns all users ordered by ID.
func ListUsers(ctx context.Context, db sqlx.ExtContext) ([]model.User, error) {
	var users []model.User
	err := sqlx.SelectContext(ctx, db, &users,
		`SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return users, nil
}

// ListDisplayNames returns every user's display name in alphabetical order.
func ListDisplayNames(ctx context.Context, db sqlx.ExtContext) ([]string, error) {
	var names []string
	err := sqlx.SelectContext(ctx, db, &names,
		`SELECT display_name FROM users ORDER BY display_name`)
	if err != nil {
		return nil, fmt.Errorf("listing display names: %w", err)
	}
	return names, nil
}

// DisplayNameExists reports whether some user has exactly this display name.
func DisplayNameExists(ctx context.Context, db sqlx.ExtContext, name string) (bool, error) {
	var count int
	err := sqlx.GetContext(ctx, db, &count, db.Rebind(
		`SELECT COUNT(*) FROM users WHERE display_name = ?`), name)
	if err != nil {
		return false, fmt.Errorf("checking display name: %w", err)
	}
	return count > 0, nil
}

// UpdateUserPassword updates a user's password hash.
func UpdateUserPassword(ctx context.Context, db sqlx.ExtContext, id int64, passwordHash string) error {
	_, err := db.ExecContext(ctx, db.Rebind(
		`UPDATE users SET password_hash = ? WHERE id = ?`),
		passwordHash, id,
	)
	if err != nil {
		return fmt.Errorf("updating user password: %w", err)
	}
	return nil
}

// DeleteUser removes a user. Movements keep the person's name as free text.
func DeleteUser(ctx context.Context, db sqlx.ExtContext, id int64) error {
	result, err := db.ExecContext(ctx, db.Rebind(`DELETE FROM users WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	return expectOne(result, model.ErrNotFound)
}
