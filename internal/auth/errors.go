// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"errors"

	"github.com/samber/oops"

	"github.com/holomush/authcore/pkg/errutil"
)

// Repository sentinels. Implementations wrap these so callers can use errors.Is.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned when a write collides with a unique constraint.
	ErrDuplicate = errors.New("duplicate")
)

// ErrorKind classifies a Service failure. The kind is carried as the oops
// error code, so errutil.AssertErrorCode and KindOf agree.
type ErrorKind string

// Error kinds returned by Service operations.
const (
	KindInvalidUsername      ErrorKind = "AUTH_INVALID_USERNAME"
	KindInvalidEmail         ErrorKind = "AUTH_INVALID_EMAIL"
	KindWeakPassword         ErrorKind = "AUTH_WEAK_PASSWORD"
	KindDuplicateCredential  ErrorKind = "AUTH_DUPLICATE_CREDENTIAL"
	KindMissingCredentials   ErrorKind = "AUTH_MISSING_CREDENTIALS"
	KindInvalidCredentials   ErrorKind = "AUTH_INVALID_CREDENTIALS"
	KindRegistrationFailed   ErrorKind = "AUTH_REGISTRATION_FAILED"
	KindSessionStoreFailed   ErrorKind = "AUTH_SESSION_STORE_FAILED"
	KindLoginFailed          ErrorKind = "AUTH_LOGIN_FAILED"
	KindNotAuthenticated     ErrorKind = "AUTH_NOT_AUTHENTICATED"
	KindPasswordMismatch     ErrorKind = "AUTH_PASSWORD_MISMATCH"
	KindProfileUpdateFailed  ErrorKind = "AUTH_PROFILE_UPDATE_FAILED"
	KindPasswordChangeFailed ErrorKind = "AUTH_PASSWORD_CHANGE_FAILED"
	KindUserNotFound         ErrorKind = "AUTH_USER_NOT_FOUND"
	KindUserDeleteFailed     ErrorKind = "AUTH_USER_DELETE_FAILED"
)

const genericMessage = "Something went wrong. Please try again."

var publicMessages = map[ErrorKind]string{
	KindInvalidUsername:      "Username must be 3-50 characters and can include letters, numbers, _ . -",
	KindInvalidEmail:         "Invalid email format.",
	KindWeakPassword:         "Password must be 8+ chars and include uppercase, lowercase, number, and special character.",
	KindDuplicateCredential:  "Username or email already exists.",
	KindMissingCredentials:   "Username and password are required.",
	KindInvalidCredentials:   "Invalid credentials.",
	KindRegistrationFailed:   "Registration failed. Please try again.",
	KindSessionStoreFailed:   "Could not start a session. Please try again.",
	KindLoginFailed:          "Login failed. Please try again.",
	KindNotAuthenticated:     "You must be logged in.",
	KindPasswordMismatch:     "New passwords do not match.",
	KindProfileUpdateFailed:  "Failed to update profile.",
	KindPasswordChangeFailed: "Failed to change password.",
	KindUserNotFound:         "User not found.",
	KindUserDeleteFailed:     "Failed to delete user.",
}

// Message returns the user-facing message for the kind.
func (k ErrorKind) Message() string {
	if msg, ok := publicMessages[k]; ok {
		return msg
	}
	return genericMessage
}

// Internal reports whether the kind stands for a store or system failure
// rather than a rejected input.
func (k ErrorKind) Internal() bool {
	switch k {
	case KindRegistrationFailed, KindSessionStoreFailed, KindLoginFailed,
		KindProfileUpdateFailed, KindPasswordChangeFailed, KindUserDeleteFailed:
		return true
	}
	return false
}

// KindOf returns the ErrorKind carried by err, or "" when err is nil or was
// not produced by a Service operation.
func KindOf(err error) ErrorKind {
	kind := ErrorKind(errutil.Code(err))
	if _, known := publicMessages[kind]; !known {
		return ""
	}
	return kind
}

// PublicMessage returns text safe to show an end user for err. Store and
// driver details never leak through it.
func PublicMessage(err error) string {
	if err == nil {
		return ""
	}
	return KindOf(err).Message()
}

// newError builds a coded error for kind with the kind's public message.
func newError(kind ErrorKind, operation string) error {
	return oops.Code(string(kind)).With("operation", operation).Errorf("%s", kind.Message())
}

// wrapError wraps cause under kind. Causes must not carry their own oops code
// because oops reports the innermost one.
func wrapError(kind ErrorKind, operation string, cause error) error {
	return oops.Code(string(kind)).With("operation", operation).Wrapf(cause, "%s", kind.Message())
}
