// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/authcore/internal/auth"
)

// fastHasher keeps round-trip tests quick; parameters are encoded in the hash
// so verification does not depend on them.
func fastHasher(t *testing.T) *auth.Argon2idHasher {
	t.Helper()
	h, err := auth.NewArgon2idHasherWithParams(auth.Argon2Params{Time: 1, Memory: 64, Threads: 1})
	require.NoError(t, err)
	return h
}

func TestHashPassword(t *testing.T) {
	hasher := auth.NewArgon2idHasher()

	t.Run("produces valid hash", func(t *testing.T) {
		hash, err := hasher.Hash("Password1!")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=65536,t=1,p=4$"))
	})

	t.Run("same password produces different hashes (salt)", func(t *testing.T) {
		hash1, err := hasher.Hash("samepassword")
		require.NoError(t, err)
		hash2, err := hasher.Hash("samepassword")
		require.NoError(t, err)
		assert.NotEqual(t, hash1, hash2)
	})

	t.Run("rejects empty password", func(t *testing.T) {
		_, err := hasher.Hash("")
		assert.ErrorIs(t, err, auth.ErrEmptyPassword)
	})
}

func TestVerifyPassword(t *testing.T) {
	hasher := auth.NewArgon2idHasher()

	t.Run("correct password verifies", func(t *testing.T) {
		hash, err := hasher.Hash("correctpassword")
		require.NoError(t, err)

		ok, err := hasher.Verify("correctpassword", hash)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("incorrect password fails", func(t *testing.T) {
		hash, err := hasher.Hash("correctpassword")
		require.NoError(t, err)

		ok, err := hasher.Verify("wrongpassword", hash)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	invalid := []struct {
		name string
		hash string
	}{
		{"invalid format", "not-a-valid-hash"},
		{"wrong algorithm", "$argon2i$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA"},
		{"invalid version format", "$argon2id$vXX$m=65536,t=1,p=4$c2FsdA$aGFzaA"},
		{"unsupported version", "$argon2id$v=16$m=65536,t=1,p=4$c2FsdA$aGFzaA"},
		{"invalid parameters format", "$argon2id$v=19$invalid$c2FsdA$aGFzaA"},
		{"invalid salt base64", "$argon2id$v=19$m=65536,t=1,p=4$!!!invalid!!!$aGFzaA"},
		{"invalid hash base64", "$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$!!!invalid!!!"},
		{"threads overflow", "$argon2id$v=19$m=65536,t=1,p=256$c2FsdA$aGFzaA"},
		{"zero threads", "$argon2id$v=19$m=65536,t=1,p=0$c2FsdA$aGFzaA"},
		{"empty key", "$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$"},
		{"zero time", "$argon2id$v=19$m=65536,t=0,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"},
		{"huge time", "$argon2id$v=19$m=65536,t=100000,p=4$c2FsdA$aGFzaA"},
		{"memory below threads minimum", "$argon2id$v=19$m=16,t=1,p=4$c2FsdA$aGFzaA"},
		{"huge memory", "$argon2id$v=19$m=4294967295,t=1,p=4$c2FsdA$aGFzaA"},
	}
	for _, tt := range invalid {
		t.Run(tt.name+" returns error", func(t *testing.T) {
			var (
				ok  bool
				err error
			)
			require.NotPanics(t, func() { ok, err = hasher.Verify("password", tt.hash) })
			assert.False(t, ok)
			assert.True(t, errors.Is(err, auth.ErrInvalidHash), "got %v", err)
		})
	}
}

func TestArgon2Params_Validate(t *testing.T) {
	assert.NoError(t, auth.DefaultArgon2Params().Validate())

	_, err := auth.NewArgon2idHasherWithParams(auth.Argon2Params{Time: 0, Memory: 64, Threads: 1})
	assert.Error(t, err)

	_, err = auth.NewArgon2idHasherWithParams(auth.Argon2Params{Time: 1, Memory: 64, Threads: 0})
	assert.Error(t, err)

	_, err = auth.NewArgon2idHasherWithParams(auth.Argon2Params{Time: 1, Memory: 8, Threads: 2})
	assert.Error(t, err)

	_, err = auth.NewArgon2idHasherWithParams(auth.Argon2Params{Time: auth.MaxArgon2Time + 1, Memory: 64, Threads: 1})
	assert.Error(t, err)

	_, err = auth.NewArgon2idHasherWithParams(auth.Argon2Params{Time: 1, Memory: auth.MaxArgon2Memory + 1, Threads: 1})
	assert.Error(t, err)
}

func TestNeedsUpgrade(t *testing.T) {
	hasher := auth.NewArgon2idHasher()

	t.Run("detects bcrypt hash needing upgrade", func(t *testing.T) {
		bcryptHash := "$2a$10$N9qo8uLOickgx2ZMRZoMyeIvNq.Uf3hE9tQALNP1Qn9sNp5x5x5x5"
		assert.True(t, hasher.NeedsUpgrade(bcryptHash))
	})

	t.Run("current parameters do not need upgrade", func(t *testing.T) {
		hash, err := hasher.Hash("password")
		require.NoError(t, err)
		assert.False(t, hasher.NeedsUpgrade(hash))
	})

	t.Run("weaker parameters need upgrade", func(t *testing.T) {
		hash, err := fastHasher(t).Hash("password")
		require.NoError(t, err)
		assert.True(t, hasher.NeedsUpgrade(hash))
	})
}

func randomStrongPassword(t *testing.T) string {
	t.Helper()
	const (
		lower   = "abcdefghijklmnopqrstuvwxyz"
		upper   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
		digits  = "0123456789"
		special = "!@#$%^&*()-_=+[]{};:,.<>/?~ "
		all     = lower + upper + digits + special
	)
	pick := func(set string) byte {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(set))))
		require.NoError(t, err)
		return set[n.Int64()]
	}
	extra, err := rand.Int(rand.Reader, big.NewInt(24))
	require.NoError(t, err)

	b := []byte{pick(lower), pick(upper), pick(digits), pick(special)}
	for i := 0; i < 4+int(extra.Int64()); i++ {
		b = append(b, pick(all))
	}
	return string(b)
}

func TestHashRoundTrip_RandomPasswords(t *testing.T) {
	hasher := fastHasher(t)

	for i := 0; i < 128; i++ {
		password := randomStrongPassword(t)
		require.True(t, auth.StrongPassword(password), "generated %q", password)

		hash, err := hasher.Hash(password)
		require.NoError(t, err)
		assert.NotEqual(t, password, hash)
		assert.NotContains(t, hash, password)

		ok, err := hasher.Verify(password, hash)
		require.NoError(t, err)
		assert.True(t, ok, "password %q did not verify", password)

		ok, err = hasher.Verify(password+"x", hash)
		require.NoError(t, err)
		assert.False(t, ok)
	}
}
