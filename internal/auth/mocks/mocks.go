// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package mocks provides testify mocks for the auth package interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/holomush/authcore/internal/auth"
)

// T is the subset of testing.TB the constructors need.
type T interface {
	mock.TestingT
	Cleanup(func())
}

// MockUserRepository is a mock type for the UserRepository type.
type MockUserRepository struct {
	mock.Mock
}

var _ auth.UserRepository = (*MockUserRepository)(nil)

// NewMockUserRepository creates a MockUserRepository whose expectations are
// asserted when the test ends.
func NewMockUserRepository(t T) *MockUserRepository {
	m := &MockUserRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func userOrNil(v any) *auth.User {
	if v == nil {
		return nil
	}
	return v.(*auth.User)
}

// FindByUsernameOrEmail provides a mock function.
func (m *MockUserRepository) FindByUsernameOrEmail(ctx context.Context, identifier string) (*auth.User, error) {
	args := m.Called(ctx, identifier)
	return userOrNil(args.Get(0)), args.Error(1)
}

// FindByID provides a mock function.
func (m *MockUserRepository) FindByID(ctx context.Context, id ulid.ULID) (*auth.User, error) {
	args := m.Called(ctx, id)
	return userOrNil(args.Get(0)), args.Error(1)
}

// FindConflicting provides a mock function.
func (m *MockUserRepository) FindConflicting(ctx context.Context, username, email string, except ulid.ULID) (auth.Conflict, error) {
	args := m.Called(ctx, username, email, except)
	return args.Get(0).(auth.Conflict), args.Error(1)
}

// Create provides a mock function.
func (m *MockUserRepository) Create(ctx context.Context, user auth.NewUser) (*auth.User, error) {
	args := m.Called(ctx, user)
	return userOrNil(args.Get(0)), args.Error(1)
}

// UpdateProfile provides a mock function.
func (m *MockUserRepository) UpdateProfile(ctx context.Context, id ulid.ULID, username, email string) (*auth.User, error) {
	args := m.Called(ctx, id, username, email)
	return userOrNil(args.Get(0)), args.Error(1)
}

// UpdatePassword provides a mock function.
func (m *MockUserRepository) UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error {
	return m.Called(ctx, id, passwordHash).Error(0)
}

// Delete provides a mock function.
func (m *MockUserRepository) Delete(ctx context.Context, id ulid.ULID) error {
	return m.Called(ctx, id).Error(0)
}

// MockSessionRepository is a mock type for the SessionRepository type.
type MockSessionRepository struct {
	mock.Mock
}

var _ auth.SessionRepository = (*MockSessionRepository)(nil)

// NewMockSessionRepository creates a MockSessionRepository whose expectations
// are asserted when the test ends.
func NewMockSessionRepository(t T) *MockSessionRepository {
	m := &MockSessionRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Create provides a mock function.
func (m *MockSessionRepository) Create(ctx context.Context, session *auth.Session) error {
	return m.Called(ctx, session).Error(0)
}

// Find provides a mock function.
func (m *MockSessionRepository) Find(ctx context.Context, userID ulid.ULID, tokenHash string) (*auth.Session, error) {
	args := m.Called(ctx, userID, tokenHash)
	if v := args.Get(0); v != nil {
		return v.(*auth.Session), args.Error(1)
	}
	return nil, args.Error(1)
}

// Delete provides a mock function.
func (m *MockSessionRepository) Delete(ctx context.Context, userID ulid.ULID, tokenHash string) error {
	return m.Called(ctx, userID, tokenHash).Error(0)
}

// DeleteByUser provides a mock function.
func (m *MockSessionRepository) DeleteByUser(ctx context.Context, userID ulid.ULID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

// DeleteExpired provides a mock function.
func (m *MockSessionRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

// MockPasswordHasher is a mock type for the PasswordHasher type.
type MockPasswordHasher struct {
	mock.Mock
}

var _ auth.PasswordHasher = (*MockPasswordHasher)(nil)

// NewMockPasswordHasher creates a MockPasswordHasher whose expectations are
// asserted when the test ends.
func NewMockPasswordHasher(t T) *MockPasswordHasher {
	m := &MockPasswordHasher{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Hash provides a mock function.
func (m *MockPasswordHasher) Hash(password string) (string, error) {
	args := m.Called(password)
	return args.String(0), args.Error(1)
}

// Verify provides a mock function.
func (m *MockPasswordHasher) Verify(password, hash string) (bool, error) {
	args := m.Called(password, hash)
	return args.Bool(0), args.Error(1)
}

// NeedsUpgrade provides a mock function.
func (m *MockPasswordHasher) NeedsUpgrade(hash string) bool {
	return m.Called(hash).Bool(0)
}

// MockRecorder is a mock type for the Recorder type.
type MockRecorder struct {
	mock.Mock
}

var _ auth.Recorder = (*MockRecorder)(nil)

// NewMockRecorder creates a MockRecorder whose expectations are asserted when
// the test ends.
func NewMockRecorder(t T) *MockRecorder {
	m := &MockRecorder{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// RecordOutcome provides a mock function.
func (m *MockRecorder) RecordOutcome(operation string, kind auth.ErrorKind) {
	m.Called(operation, kind)
}
