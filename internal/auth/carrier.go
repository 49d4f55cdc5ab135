// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"sync"

	"github.com/oklog/ulid/v2"
)

// Carrier conveys a (user ID, session token) pair between requests. An HTTP
// layer typically backs it with a cookie; the core never assumes how.
type Carrier interface {
	// Identity returns the stored pair. ok is false when either half is unset.
	Identity() (userID ulid.ULID, token string, ok bool)

	// SetIdentity stores the pair, replacing any previous one.
	SetIdentity(userID ulid.ULID, token string)

	// ClearIdentity removes the pair.
	ClearIdentity()
}

// MemoryCarrier is an in-process Carrier. It is safe for concurrent use.
type MemoryCarrier struct {
	mu     sync.RWMutex
	userID ulid.ULID
	token  string
}

// NewMemoryCarrier creates an empty MemoryCarrier.
func NewMemoryCarrier() *MemoryCarrier {
	return &MemoryCarrier{}
}

// Identity implements Carrier.
func (c *MemoryCarrier) Identity() (ulid.ULID, string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.userID.Compare(ulid.ULID{}) == 0 || c.token == "" {
		return ulid.ULID{}, "", false
	}
	return c.userID, c.token, true
}

// SetIdentity implements Carrier.
func (c *MemoryCarrier) SetIdentity(userID ulid.ULID, token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userID = userID
	c.token = token
}

// ClearIdentity implements Carrier.
func (c *MemoryCarrier) ClearIdentity() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userID = ulid.ULID{}
	c.token = ""
}
