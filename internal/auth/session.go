// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Session token configuration.
const (
	SessionTokenBytes = 32             // 32 bytes = 64 hex chars
	DefaultSessionTTL = 24 * time.Hour // 24 hour expiry
)

// Session is a server-side login session. Only the token hash is stored.
type Session struct {
	TokenHash string
	UserID    ulid.ULID
	ExpiresAt time.Time
	CreatedAt time.Time
}

// NewSession creates a validated Session.
func NewSession(userID ulid.ULID, tokenHash string, expiresAt time.Time) (*Session, error) {
	if userID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.With("field", "user_id").Errorf("user ID cannot be zero")
	}
	if tokenHash == "" {
		return nil, oops.With("field", "token_hash").Errorf("token hash cannot be empty")
	}
	if expiresAt.IsZero() {
		return nil, oops.With("field", "expires_at").Errorf("expiry time cannot be zero")
	}
	return &Session{
		TokenHash: tokenHash,
		UserID:    userID,
		ExpiresAt: expiresAt,
	}, nil
}

// IsExpiredAt returns true if the session is expired at t. A session is
// valid up to but not including its expiry instant.
func (s *Session) IsExpiredAt(t time.Time) bool {
	return !t.Before(s.ExpiresAt)
}

// GenerateSessionToken creates a secure random token and its hash.
// Returns (plaintext_token, sha256_hash, error).
// The plaintext token goes to the carrier; the hash is stored in the database.
func GenerateSessionToken() (token, hash string, err error) {
	tokenBytes := make([]byte, SessionTokenBytes)
	if _, err = rand.Read(tokenBytes); err != nil {
		return "", "", oops.
			With("operation", "crypto/rand.Read").
			With("requested_bytes", SessionTokenBytes).
			Wrap(err)
	}

	token = hex.EncodeToString(tokenBytes)
	return token, HashSessionToken(token), nil
}

// HashSessionToken computes the SHA256 hash of a session token.
func HashSessionToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// SessionRepository manages session persistence.
type SessionRepository interface {
	// Create stores a new session.
	Create(ctx context.Context, session *Session) error

	// Find returns the session matching both userID and tokenHash.
	// Returns ErrNotFound if there is none. Expiry is not checked here.
	Find(ctx context.Context, userID ulid.ULID, tokenHash string) (*Session, error)

	// Delete removes the session matching userID and tokenHash.
	// Deleting a missing session is not an error.
	Delete(ctx context.Context, userID ulid.ULID, tokenHash string) error

	// DeleteByUser removes all sessions for a user and returns the count.
	DeleteByUser(ctx context.Context, userID ulid.ULID) (int64, error)

	// DeleteExpired removes sessions whose expiry is at or before cutoff
	// and returns the count of deleted records.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}
