// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

// User is a stored account. PasswordHash never leaves this package's callers
// through Service; use View for anything returned to a presentation layer.
type User struct {
	ID           ulid.ULID
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserView is the part of a User that is safe to hand to callers.
type UserView struct {
	ID        ulid.ULID
	Username  string
	Email     string
	CreatedAt time.Time
}

// View returns the caller-safe projection of u.
func (u *User) View() *UserView {
	if u == nil {
		return nil
	}
	return &UserView{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

// NewUser is the input to UserRepository.Create.
type NewUser struct {
	Username     string
	Email        string
	PasswordHash string
}

// UserRepository manages user persistence.
type UserRepository interface {
	// FindByUsernameOrEmail returns the user whose username or email equals
	// identifier. Returns ErrNotFound if none matches.
	FindByUsernameOrEmail(ctx context.Context, identifier string) (*User, error)

	// FindByID returns the user with the given id. Returns ErrNotFound if
	// the user does not exist.
	FindByID(ctx context.Context, id ulid.ULID) (*User, error)

	// FindConflicting reports which of username and email are already held
	// by a user other than except. Pass the zero ULID to check against all users.
	FindConflicting(ctx context.Context, username, email string, except ulid.ULID) (Conflict, error)

	// Create inserts a user and returns it with its assigned id and timestamps.
	// Returns ErrDuplicate if the username or email is already taken.
	Create(ctx context.Context, user NewUser) (*User, error)

	// UpdateProfile changes username and email. Returns ErrDuplicate on a
	// unique collision and ErrNotFound if the user does not exist.
	UpdateProfile(ctx context.Context, id ulid.ULID, username, email string) (*User, error)

	// UpdatePassword replaces the stored password hash.
	UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error

	// Delete removes a user. Its sessions go with it.
	Delete(ctx context.Context, id ulid.ULID) error
}

// Conflict describes which unique credentials are already taken.
type Conflict struct {
	Username bool
	Email    bool
}

// Any reports whether either credential is taken.
func (c Conflict) Any() bool {
	return c.Username || c.Email
}
