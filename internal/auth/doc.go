// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package auth provides registration, login and session management.
//
// # Domain Types
//
// User and Session are persisted through UserRepository and
// SessionRepository. Sessions should be created using NewSession, which
// rejects a zero user ID, an empty token hash or a zero expiry. Only
// UserView, which has no password field, is returned by Service.
//
// # Services
//
// Service coordinates the operations:
//   - Register, Login - credential validation, uniqueness and hashing
//   - CreateSession, DestroySession, CurrentUser, IsLoggedIn - session lifecycle
//   - UpdateProfile, ChangePassword - account changes for the current user
//   - PurgeExpiredSessions, RevokeSessions, DeleteUser - administration
//
// A Carrier conveys the (user ID, token) pair between requests and is passed
// explicitly to each session-aware call.
//
// # Errors
//
// Service errors are oops errors whose code is an ErrorKind. Use KindOf to
// branch on them and PublicMessage to get text safe for end users.
package auth
