// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/authcore/internal/auth"
)

// Compile-time interface check.
var _ auth.UserRepository = (*UserRepository)(nil)

const userColumns = `id, username, email, password_hash, created_at, updated_at`

// UserRepository implements auth.UserRepository using PostgreSQL.
type UserRepository struct {
	db DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByUsernameOrEmail retrieves the user whose username or email equals
// identifier. A username match wins over an email match.
func (r *UserRepository) FindByUsernameOrEmail(ctx context.Context, identifier string) (*auth.User, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE username = $1 OR email = $1
		ORDER BY (username = $1) DESC
		LIMIT 1
	`, identifier)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.With("identifier", identifier).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.With("operation", "find user by username or email").Wrap(err)
	}
	return user, nil
}

// FindByID retrieves a user by ID.
func (r *UserRepository) FindByID(ctx context.Context, id ulid.ULID) (*auth.User, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1
	`, id.String())

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.With("operation", "find user by id").With("id", id.String()).Wrap(err)
	}
	return user, nil
}

// FindConflicting reports whether username or email belong to a user other
// than except.
func (r *UserRepository) FindConflicting(ctx context.Context, username, email string, except ulid.ULID) (auth.Conflict, error) {
	var c auth.Conflict
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(bool_or(username = $1), false),
		       COALESCE(bool_or(email = $2), false)
		FROM users
		WHERE (username = $1 OR email = $2) AND id <> $3
	`, username, email, except.String()).Scan(&c.Username, &c.Email)
	if err != nil {
		return auth.Conflict{}, oops.With("operation", "find conflicting users").
			With("username", username).
			Wrap(err)
	}
	return c, nil
}

// Create inserts a user. The ID is assigned here; timestamps come from the
// column defaults.
func (r *UserRepository) Create(ctx context.Context, nu auth.NewUser) (*auth.User, error) {
	user := &auth.User{
		ID:           ulid.Make(),
		Username:     nu.Username,
		Email:        nu.Email,
		PasswordHash: nu.PasswordHash,
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, oops.With("operation", "begin insert user").Wrap(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	err = tx.QueryRow(ctx, `
		INSERT INTO users (id, username, email, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`, user.ID.String(), user.Username, user.Email, user.PasswordHash).
		Scan(&user.CreatedAt, &user.UpdatedAt)
	if err == nil {
		err = tx.Commit(ctx)
	}
	if constraint, ok := isUniqueViolation(err); ok {
		return nil, oops.With("constraint", constraint).
			With("username", nu.Username).
			Wrap(auth.ErrDuplicate)
	}
	if err != nil {
		return nil, oops.With("operation", "insert user").
			With("username", nu.Username).
			Wrap(err)
	}
	return user, nil
}

// UpdateProfile changes a user's username and email.
func (r *UserRepository) UpdateProfile(ctx context.Context, id ulid.ULID, username, email string) (*auth.User, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE users SET username = $2, email = $3, updated_at = now()
		WHERE id = $1
		RETURNING `+userColumns, id.String(), username, email)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	if constraint, ok := isUniqueViolation(err); ok {
		return nil, oops.With("constraint", constraint).With("id", id.String()).Wrap(auth.ErrDuplicate)
	}
	if err != nil {
		return nil, oops.With("operation", "update profile").With("id", id.String()).Wrap(err)
	}
	return user, nil
}

// UpdatePassword replaces a user's password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error {
	result, err := r.db.Exec(ctx, `
		UPDATE users SET password_hash = $2, updated_at = now()
		WHERE id = $1
	`, id.String(), passwordHash)
	if err != nil {
		return oops.With("operation", "update password").With("id", id.String()).Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	return nil
}

// Delete removes a user. Sessions are removed by ON DELETE CASCADE.
func (r *UserRepository) Delete(ctx context.Context, id ulid.ULID) error {
	result, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id.String())
	if err != nil {
		return oops.With("operation", "delete user").With("id", id.String()).Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	return nil
}

// scanUser scans a single row into a User.
func scanUser(row pgx.Row) (*auth.User, error) {
	var (
		user  auth.User
		idStr string
	)
	if err := row.Scan(&idStr, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return nil, err
	}
	id, err := parseID(idStr)
	if err != nil {
		return nil, err
	}
	user.ID = id
	return &user, nil
}
