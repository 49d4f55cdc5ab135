// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/holomush/authcore/pkg/errutil"
)

// Operation names used in logs, spans and metrics.
const (
	OpRegister       = "register"
	OpLogin          = "login"
	OpCreateSession  = "create_session"
	OpDestroySession = "destroy_session"
	OpCurrentUser    = "current_user"
	OpIsLoggedIn     = "is_logged_in"
	OpUpdateProfile  = "update_profile"
	OpChangePassword = "change_password"
	OpPurgeSessions  = "purge_sessions"
	OpRevokeSessions = "revoke_sessions"
	OpDeleteUser     = "delete_user"
	tracerName       = "authcore/auth"
)

// dummyPasswordHash is the fallback dummy used when the hasher cannot produce
// one at construction. It never matches any password.
//
//nolint:gosec // G101: intentionally fake hash, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Recorder observes the outcome of each Service operation. kind is empty on
// success.
type Recorder interface {
	RecordOutcome(operation string, kind ErrorKind)
}

type nopRecorder struct{}

func (nopRecorder) RecordOutcome(string, ErrorKind) {}

// Service registers users, authenticates them and manages their sessions.
// Create one per process and pass it to whatever needs it.
type Service struct {
	users    UserRepository
	sessions SessionRepository
	hasher   PasswordHasher
	logger   *slog.Logger
	recorder Recorder
	tracer   trace.Tracer
	ttl      time.Duration
	now      func() time.Time

	// dummyHash is verified when a user doesn't exist so response time does
	// not reveal whether the account exists.
	dummyHash string
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRecorder sets the outcome recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithSessionTTL sets how long new sessions stay valid.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.ttl = ttl
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a Service. All three dependencies are required.
func NewService(users UserRepository, sessions SessionRepository, hasher PasswordHasher, opts ...Option) (*Service, error) {
	if users == nil {
		return nil, oops.Errorf("users repository is required")
	}
	if sessions == nil {
		return nil, oops.Errorf("sessions repository is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}

	s := &Service{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		logger:   slog.Default(),
		recorder: nopRecorder{},
		tracer:   otel.Tracer(tracerName),
		ttl:      DefaultSessionTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.ttl <= 0 {
		return nil, oops.With("ttl", s.ttl.String()).Errorf("session TTL must be positive")
	}
	s.dummyHash = s.newDummyHash()
	return s, nil
}

// newDummyHash hashes a random secret with the configured hasher, so the
// dummy verify costs the same as verifying a stored hash.
func (s *Service) newDummyHash() string {
	secret, _, err := GenerateSessionToken()
	if err == nil {
		var hash string
		if hash, err = s.hasher.Hash(secret); err == nil {
			return hash
		}
	}
	s.logger.Warn("using static dummy password hash", "error", err)
	return dummyPasswordHash
}

// start opens a span for op. The returned func must be called with the
// operation's final error.
func (s *Service) start(ctx context.Context, op string) (context.Context, func(error)) {
	ctx, span := s.tracer.Start(ctx, "auth."+op, trace.WithAttributes(attribute.String("auth.operation", op)))
	return ctx, func(err error) {
		kind := KindOf(err)
		s.recorder.RecordOutcome(op, kind)
		if err != nil {
			span.SetAttributes(attribute.String("auth.error_kind", string(kind)))
			if kind.Internal() || kind == "" {
				span.RecordError(err)
				span.SetStatus(codes.Error, string(kind))
				errutil.LogError(s.logger, "auth operation failed", err)
			}
		}
		span.End()
	}
}

// Register creates a new user after validating the credentials and checking
// that neither the username nor the email is taken.
func (s *Service) Register(ctx context.Context, username, email, password string) (err error) {
	ctx, end := s.start(ctx, OpRegister)
	defer func() { end(err) }()

	switch {
	case !ValidUsername(username):
		return newError(KindInvalidUsername, OpRegister)
	case !ValidEmail(email):
		return newError(KindInvalidEmail, OpRegister)
	case !StrongPassword(password):
		return newError(KindWeakPassword, OpRegister)
	}

	conflict, err := s.users.FindConflicting(ctx, username, email, ulid.ULID{})
	if err != nil {
		return wrapError(KindRegistrationFailed, OpRegister, err)
	}
	if conflict.Any() {
		return newError(KindDuplicateCredential, OpRegister)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return wrapError(KindRegistrationFailed, OpRegister, err)
	}

	user, err := s.users.Create(ctx, NewUser{Username: username, Email: email, PasswordHash: hash})
	if err != nil {
		// A concurrent registration won the unique index.
		if errors.Is(err, ErrDuplicate) {
			return wrapError(KindDuplicateCredential, OpRegister, err)
		}
		return wrapError(KindRegistrationFailed, OpRegister, err)
	}

	s.logger.InfoContext(ctx, "user registered", "operation", OpRegister, "user_id", user.ID.String())
	return nil
}

// Login checks identifier (username or email) and password. A wrong password
// and an unknown identifier produce the same error. Login does not create a
// session; call CreateSession with the returned user's ID.
func (s *Service) Login(ctx context.Context, identifier, password string) (view *UserView, err error) {
	ctx, end := s.start(ctx, OpLogin)
	defer func() { end(err) }()

	if identifier == "" || password == "" {
		return nil, newError(KindMissingCredentials, OpLogin)
	}

	user, lookupErr := s.users.FindByUsernameOrEmail(ctx, identifier)
	targetHash := s.dummyHash
	switch {
	case lookupErr == nil:
		targetHash = user.PasswordHash
	case errors.Is(lookupErr, ErrNotFound):
		user = nil
	default:
		return nil, wrapError(KindLoginFailed, OpLogin, lookupErr)
	}

	// Always verify, even against the dummy hash.
	valid, verifyErr := s.hasher.Verify(password, targetHash)
	if user == nil {
		return nil, newError(KindInvalidCredentials, OpLogin)
	}
	if verifyErr != nil {
		return nil, wrapError(KindLoginFailed, OpLogin, verifyErr)
	}
	if !valid {
		return nil, newError(KindInvalidCredentials, OpLogin)
	}

	if s.hasher.NeedsUpgrade(user.PasswordHash) {
		s.upgradeHash(ctx, user.ID, password)
	}

	return user.View(), nil
}

func (s *Service) upgradeHash(ctx context.Context, userID ulid.ULID, password string) {
	hash, err := s.hasher.Hash(password)
	if err == nil {
		err = s.users.UpdatePassword(ctx, userID, hash)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "best-effort password rehash failed",
			"operation", OpLogin,
			"user_id", userID.String(),
			"error", err)
	}
}

// CreateSession issues a new session for userID, persists it and stores the
// pair in carrier. The carrier is untouched if the session cannot be stored.
func (s *Service) CreateSession(ctx context.Context, carrier Carrier, userID ulid.ULID) (token string, err error) {
	ctx, end := s.start(ctx, OpCreateSession)
	defer func() { end(err) }()

	if carrier == nil {
		return "", oops.With("operation", OpCreateSession).Errorf("carrier is required")
	}

	token, tokenHash, err := GenerateSessionToken()
	if err != nil {
		return "", wrapError(KindSessionStoreFailed, OpCreateSession, err)
	}

	session, err := NewSession(userID, tokenHash, s.now().Add(s.ttl))
	if err != nil {
		return "", wrapError(KindSessionStoreFailed, OpCreateSession, err)
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return "", wrapError(KindSessionStoreFailed, OpCreateSession, err)
	}

	carrier.SetIdentity(userID, token)
	s.logger.DebugContext(ctx, "session created", "operation", OpCreateSession, "user_id", userID.String())
	return token, nil
}

// DestroySession deletes the carrier's session, if any, and clears the
// carrier. Store failures are logged and otherwise ignored.
func (s *Service) DestroySession(ctx context.Context, carrier Carrier) {
	ctx, end := s.start(ctx, OpDestroySession)
	defer end(nil)

	if carrier == nil {
		return
	}
	if userID, token, ok := carrier.Identity(); ok {
		if err := s.sessions.Delete(ctx, userID, HashSessionToken(token)); err != nil {
			s.logger.WarnContext(ctx, "best-effort session delete failed",
				"operation", OpDestroySession,
				"user_id", userID.String(),
				"error", err)
		}
	}
	carrier.ClearIdentity()
}

// CurrentUser resolves the carrier's session to a user. It returns (nil, nil)
// when there is no pair, the session is missing or expired, or the user is
// gone.
func (s *Service) CurrentUser(ctx context.Context, carrier Carrier) (view *UserView, err error) {
	ctx, end := s.start(ctx, OpCurrentUser)
	defer func() { end(err) }()

	user, err := s.resolveUser(ctx, carrier)
	if err != nil {
		return nil, wrapError(KindSessionStoreFailed, OpCurrentUser, err)
	}
	return user.View(), nil
}

// IsLoggedIn reports whether the carrier holds a pair backed by an unexpired
// session. Store failures count as not logged in.
func (s *Service) IsLoggedIn(ctx context.Context, carrier Carrier) bool {
	ctx, end := s.start(ctx, OpIsLoggedIn)
	defer end(nil)

	session, err := s.resolveSession(ctx, carrier)
	if err != nil {
		s.logger.WarnContext(ctx, "session lookup failed", "operation", OpIsLoggedIn, "error", err)
		return false
	}
	return session != nil
}

// HasIdentity reports whether the carrier holds a pair, without consulting
// the store.
func (s *Service) HasIdentity(carrier Carrier) bool {
	if carrier == nil {
		return false
	}
	_, _, ok := carrier.Identity()
	return ok
}

func (s *Service) resolveSession(ctx context.Context, carrier Carrier) (*Session, error) {
	if carrier == nil {
		return nil, nil
	}
	userID, token, ok := carrier.Identity()
	if !ok {
		return nil, nil
	}

	session, err := s.sessions.Find(ctx, userID, HashSessionToken(token))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, oops.With("user_id", userID.String()).Wrap(err)
	}
	if session.IsExpiredAt(s.now()) {
		return nil, nil
	}
	return session, nil
}

func (s *Service) resolveUser(ctx context.Context, carrier Carrier) (*User, error) {
	session, err := s.resolveSession(ctx, carrier)
	if err != nil || session == nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, session.UserID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, oops.With("user_id", session.UserID.String()).Wrap(err)
	}
	return user, nil
}

// UpdateProfile changes the current user's username and email.
func (s *Service) UpdateProfile(ctx context.Context, carrier Carrier, username, email string) (view *UserView, err error) {
	ctx, end := s.start(ctx, OpUpdateProfile)
	defer func() { end(err) }()

	user, err := s.resolveUser(ctx, carrier)
	if err != nil {
		return nil, wrapError(KindProfileUpdateFailed, OpUpdateProfile, err)
	}
	if user == nil {
		return nil, newError(KindNotAuthenticated, OpUpdateProfile)
	}

	if !ValidUsername(username) {
		return nil, newError(KindInvalidUsername, OpUpdateProfile)
	}
	if !ValidEmail(email) {
		return nil, newError(KindInvalidEmail, OpUpdateProfile)
	}

	conflict, err := s.users.FindConflicting(ctx, username, email, user.ID)
	if err != nil {
		return nil, wrapError(KindProfileUpdateFailed, OpUpdateProfile, err)
	}
	if conflict.Any() {
		return nil, oops.Code(string(KindDuplicateCredential)).
			With("operation", OpUpdateProfile).
			With("username_taken", conflict.Username).
			With("email_taken", conflict.Email).
			Errorf("%s", KindDuplicateCredential.Message())
	}

	updated, err := s.users.UpdateProfile(ctx, user.ID, username, email)
	switch {
	case errors.Is(err, ErrDuplicate):
		return nil, wrapError(KindDuplicateCredential, OpUpdateProfile, err)
	case errors.Is(err, ErrNotFound):
		return nil, wrapError(KindNotAuthenticated, OpUpdateProfile, err)
	case err != nil:
		return nil, wrapError(KindProfileUpdateFailed, OpUpdateProfile, err)
	}

	s.logger.InfoContext(ctx, "profile updated", "operation", OpUpdateProfile, "user_id", user.ID.String())
	return updated.View(), nil
}

// ChangePassword replaces the current user's password after verifying the
// current one.
func (s *Service) ChangePassword(ctx context.Context, carrier Carrier, current, next, confirm string) (err error) {
	ctx, end := s.start(ctx, OpChangePassword)
	defer func() { end(err) }()

	user, err := s.resolveUser(ctx, carrier)
	if err != nil {
		return wrapError(KindPasswordChangeFailed, OpChangePassword, err)
	}
	if user == nil {
		return newError(KindNotAuthenticated, OpChangePassword)
	}

	switch {
	case current == "" || next == "" || confirm == "":
		return newError(KindMissingCredentials, OpChangePassword)
	case next != confirm:
		return newError(KindPasswordMismatch, OpChangePassword)
	case !StrongPassword(next):
		return newError(KindWeakPassword, OpChangePassword)
	}

	valid, err := s.hasher.Verify(current, user.PasswordHash)
	if err != nil {
		return wrapError(KindPasswordChangeFailed, OpChangePassword, err)
	}
	if !valid {
		return newError(KindInvalidCredentials, OpChangePassword)
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		return wrapError(KindPasswordChangeFailed, OpChangePassword, err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return wrapError(KindPasswordChangeFailed, OpChangePassword, err)
	}

	s.logger.InfoContext(ctx, "password changed", "operation", OpChangePassword, "user_id", user.ID.String())
	return nil
}

// PurgeExpiredSessions deletes every expired session and returns how many
// were removed.
func (s *Service) PurgeExpiredSessions(ctx context.Context) (n int64, err error) {
	ctx, end := s.start(ctx, OpPurgeSessions)
	defer func() { end(err) }()

	n, err = s.sessions.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, wrapError(KindSessionStoreFailed, OpPurgeSessions, err)
	}
	s.logger.InfoContext(ctx, "expired sessions purged", "operation", OpPurgeSessions, "count", n)
	return n, nil
}

// RevokeSessions deletes all sessions for userID.
func (s *Service) RevokeSessions(ctx context.Context, userID ulid.ULID) (n int64, err error) {
	ctx, end := s.start(ctx, OpRevokeSessions)
	defer func() { end(err) }()

	n, err = s.sessions.DeleteByUser(ctx, userID)
	if err != nil {
		return 0, wrapError(KindSessionStoreFailed, OpRevokeSessions, err)
	}
	s.logger.InfoContext(ctx, "sessions revoked", "operation", OpRevokeSessions, "user_id", userID.String(), "count", n)
	return n, nil
}

// DeleteUser removes a user and, through the store, all of its sessions.
func (s *Service) DeleteUser(ctx context.Context, userID ulid.ULID) (err error) {
	ctx, end := s.start(ctx, OpDeleteUser)
	defer func() { end(err) }()

	if err := s.users.Delete(ctx, userID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return wrapError(KindUserNotFound, OpDeleteUser, err)
		}
		return wrapError(KindUserDeleteFailed, OpDeleteUser, err)
	}
	s.logger.InfoContext(ctx, "user deleted", "operation", OpDeleteUser, "user_id", userID.String())
	return nil
}
