// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/holomush/authcore/internal/auth"
)

// memStore is an in-memory credential store enforcing the same unique and
// cascade rules as the database schema.
type memStore struct {
	mu       sync.Mutex
	users    map[ulid.ULID]*auth.User
	sessions map[string]*auth.Session

	// failSessionDelete makes session deletes fail with this error.
	failSessionDelete error
}

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[ulid.ULID]*auth.User),
		sessions: make(map[string]*auth.Session),
	}
}

type memUsers struct{ s *memStore }

type memSessions struct{ s *memStore }

func (m *memStore) Users() auth.UserRepository       { return memUsers{m} }
func (m *memStore) Sessions() auth.SessionRepository { return memSessions{m} }

func (m *memStore) userCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users)
}

func (m *memStore) sessionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func copyUser(u *auth.User) *auth.User {
	c := *u
	return &c
}

func (r memUsers) FindByUsernameOrEmail(_ context.Context, identifier string) (*auth.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Username == identifier || u.Email == identifier {
			return copyUser(u), nil
		}
	}
	return nil, auth.ErrNotFound
}

func (r memUsers) FindByID(_ context.Context, id ulid.ULID) (*auth.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if u, ok := r.s.users[id]; ok {
		return copyUser(u), nil
	}
	return nil, auth.ErrNotFound
}

func (r memUsers) FindConflicting(_ context.Context, username, email string, except ulid.ULID) (auth.Conflict, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.conflictLocked(username, email, except), nil
}

func (r memUsers) conflictLocked(username, email string, except ulid.ULID) auth.Conflict {
	var c auth.Conflict
	for id, u := range r.s.users {
		if id == except {
			continue
		}
		c.Username = c.Username || u.Username == username
		c.Email = c.Email || u.Email == email
	}
	return c
}

func (r memUsers) Create(_ context.Context, nu auth.NewUser) (*auth.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.conflictLocked(nu.Username, nu.Email, ulid.ULID{}).Any() {
		return nil, auth.ErrDuplicate
	}
	now := time.Now()
	u := &auth.User{
		ID:           ulid.Make(),
		Username:     nu.Username,
		Email:        nu.Email,
		PasswordHash: nu.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.s.users[u.ID] = u
	return copyUser(u), nil
}

func (r memUsers) UpdateProfile(_ context.Context, id ulid.ULID, username, email string) (*auth.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	if r.conflictLocked(username, email, id).Any() {
		return nil, auth.ErrDuplicate
	}
	u.Username, u.Email, u.UpdatedAt = username, email, time.Now()
	return copyUser(u), nil
}

func (r memUsers) UpdatePassword(_ context.Context, id ulid.ULID, passwordHash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return auth.ErrNotFound
	}
	u.PasswordHash, u.UpdatedAt = passwordHash, time.Now()
	return nil
}

func (r memUsers) Delete(_ context.Context, id ulid.ULID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[id]; !ok {
		return auth.ErrNotFound
	}
	delete(r.s.users, id)
	for hash, sess := range r.s.sessions {
		if sess.UserID == id {
			delete(r.s.sessions, hash)
		}
	}
	return nil
}

func (r memSessions) Create(_ context.Context, session *auth.Session) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[session.UserID]; !ok {
		return auth.ErrNotFound
	}
	if _, ok := r.s.sessions[session.TokenHash]; ok {
		return auth.ErrDuplicate
	}
	c := *session
	c.CreatedAt = time.Now()
	r.s.sessions[session.TokenHash] = &c
	return nil
}

func (r memSessions) Find(_ context.Context, userID ulid.ULID, tokenHash string) (*auth.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sess, ok := r.s.sessions[tokenHash]
	if !ok || sess.UserID != userID {
		return nil, auth.ErrNotFound
	}
	c := *sess
	return &c, nil
}

func (r memSessions) Delete(_ context.Context, userID ulid.ULID, tokenHash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failSessionDelete != nil {
		return r.s.failSessionDelete
	}
	if sess, ok := r.s.sessions[tokenHash]; ok && sess.UserID == userID {
		delete(r.s.sessions, tokenHash)
	}
	return nil
}

func (r memSessions) DeleteByUser(_ context.Context, userID ulid.ULID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for hash, sess := range r.s.sessions {
		if sess.UserID == userID {
			delete(r.s.sessions, hash)
			n++
		}
	}
	return n, nil
}

func (r memSessions) DeleteExpired(_ context.Context, cutoff time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for hash, sess := range r.s.sessions {
		if !sess.ExpiresAt.After(cutoff) {
			delete(r.s.sessions, hash)
			n++
		}
	}
	return n, nil
}
