// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/authcore/internal/auth"
)

// Compile-time interface check.
var _ auth.SessionRepository = (*SessionRepository)(nil)

// SessionRepository implements auth.SessionRepository using PostgreSQL.
type SessionRepository struct {
	db DB
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(db DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create stores a new session and fills in CreatedAt.
func (r *SessionRepository) Create(ctx context.Context, session *auth.Session) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO sessions (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`, session.TokenHash, session.UserID.String(), session.ExpiresAt).Scan(&session.CreatedAt)
	if isForeignKeyViolation(err) {
		return oops.With("user_id", session.UserID.String()).Wrap(auth.ErrNotFound)
	}
	if constraint, ok := isUniqueViolation(err); ok {
		return oops.With("constraint", constraint).Wrap(auth.ErrDuplicate)
	}
	if err != nil {
		return oops.With("operation", "insert session").
			With("user_id", session.UserID.String()).
			Wrap(err)
	}
	return nil
}

// Find retrieves the session matching userID and tokenHash.
func (r *SessionRepository) Find(ctx context.Context, userID ulid.ULID, tokenHash string) (*auth.Session, error) {
	var (
		session   auth.Session
		userIDStr string
	)
	err := r.db.QueryRow(ctx, `
		SELECT token_hash, user_id, expires_at, created_at
		FROM sessions
		WHERE user_id = $1 AND token_hash = $2
	`, userID.String(), tokenHash).Scan(&session.TokenHash, &userIDStr, &session.ExpiresAt, &session.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.With("user_id", userID.String()).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.With("operation", "find session").
			With("user_id", userID.String()).
			Wrap(err)
	}

	session.UserID, err = parseID(userIDStr)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// Delete removes the session matching userID and tokenHash, if present.
func (r *SessionRepository) Delete(ctx context.Context, userID ulid.ULID, tokenHash string) error {
	_, err := r.db.Exec(ctx, `
		DELETE FROM sessions WHERE user_id = $1 AND token_hash = $2
	`, userID.String(), tokenHash)
	if err != nil {
		return oops.With("operation", "delete session").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return nil
}

// DeleteByUser removes all sessions for a user.
func (r *SessionRepository) DeleteByUser(ctx context.Context, userID ulid.ULID) (int64, error) {
	result, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID.String())
	if err != nil {
		return 0, oops.With("operation", "delete sessions by user").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// DeleteExpired removes sessions that expired at or before cutoff.
func (r *SessionRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, cutoff)
	if err != nil {
		return 0, oops.With("operation", "delete expired sessions").Wrap(err)
	}
	return result.RowsAffected(), nil
}
