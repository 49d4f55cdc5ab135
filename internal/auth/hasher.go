// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/argon2"
)

// OWASP-recommended argon2id parameters.
const (
	DefaultArgon2Time    = 1         // iterations
	DefaultArgon2Memory  = 64 * 1024 // KiB
	DefaultArgon2Threads = 4         // parallelism

	argon2SaltLen = 16
	argon2KeyLen  = 32

	// Upper bounds for parameters read from stored hashes.
	MaxArgon2Time   = 64
	MaxArgon2Memory = 1024 * 1024 // KiB
)

// Hasher errors.
var (
	ErrEmptyPassword = errors.New("password cannot be empty")
	ErrInvalidHash   = errors.New("invalid password hash")
)

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	// Hash produces an encoded hash of the password.
	Hash(password string) (string, error)

	// Verify checks if the password matches the hash.
	// Returns (true, nil) on match, (false, nil) on mismatch, or error on invalid hash.
	Verify(password, hash string) (bool, error)

	// NeedsUpgrade reports whether hash was produced with weaker
	// parameters than the hasher currently uses.
	NeedsUpgrade(hash string) bool
}

// Argon2Params are the argon2id cost parameters.
type Argon2Params struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
}

// DefaultArgon2Params returns the OWASP-recommended parameters.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		Time:    DefaultArgon2Time,
		Memory:  DefaultArgon2Memory,
		Threads: DefaultArgon2Threads,
	}
}

// Validate rejects parameters argon2 cannot use.
func (p Argon2Params) Validate() error {
	if p.Time == 0 {
		return oops.With("field", "time").Errorf("argon2 time must be at least 1")
	}
	if p.Threads == 0 {
		return oops.With("field", "threads").Errorf("argon2 threads must be at least 1")
	}
	if p.Memory < 8*uint32(p.Threads) {
		return oops.With("field", "memory", "threads", p.Threads).
			Errorf("argon2 memory must be at least 8 KiB per thread")
	}
	if p.Time > MaxArgon2Time {
		return oops.With("field", "time", "max", MaxArgon2Time).Errorf("argon2 time is too large")
	}
	if p.Memory > MaxArgon2Memory {
		return oops.With("field", "memory", "max", MaxArgon2Memory).Errorf("argon2 memory is too large")
	}
	return nil
}

// Argon2idHasher implements PasswordHasher using argon2id in PHC string form.
type Argon2idHasher struct {
	params Argon2Params
}

// NewArgon2idHasher creates an Argon2idHasher with the default parameters.
func NewArgon2idHasher() *Argon2idHasher {
	return &Argon2idHasher{params: DefaultArgon2Params()}
}

// NewArgon2idHasherWithParams creates an Argon2idHasher with custom parameters.
func NewArgon2idHasherWithParams(params Argon2Params) (*Argon2idHasher, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Argon2idHasher{params: params}, nil
}

// Params returns the parameters new hashes are produced with.
func (h *Argon2idHasher) Params() Argon2Params {
	return h.params
}

// Hash produces an argon2id hash of the password.
func (h *Argon2idHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", oops.With("operation", "generate salt").Wrap(err)
	}

	key := argon2.IDKey([]byte(password), salt, h.params.Time, h.params.Memory, h.params.Threads, argon2KeyLen)

	// $argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>
	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.Memory,
		h.params.Time,
		h.params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

type decodedHash struct {
	params Argon2Params
	salt   []byte
	key    []byte
}

func decodeHash(encoded string) (*decodedHash, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return nil, oops.With("reason", "format").Wrap(ErrInvalidHash)
	}
	if parts[1] != "argon2id" {
		return nil, oops.With("algorithm", parts[1]).Wrap(ErrInvalidHash)
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, oops.With("reason", "version").Wrap(errors.Join(ErrInvalidHash, err))
	}
	if version != argon2.Version {
		return nil, oops.With("version", version).Wrap(ErrInvalidHash)
	}

	var memory, time, threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return nil, oops.With("reason", "params").Wrap(errors.Join(ErrInvalidHash, err))
	}
	// threads must fit in uint8
	if threads == 0 || threads > 255 {
		return nil, oops.With("threads", threads).Wrap(ErrInvalidHash)
	}
	if time == 0 || time > MaxArgon2Time {
		return nil, oops.With("time", time).Wrap(ErrInvalidHash)
	}
	if memory < 8*threads || memory > MaxArgon2Memory {
		return nil, oops.With("memory", memory).Wrap(ErrInvalidHash)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, oops.With("reason", "salt").Wrap(errors.Join(ErrInvalidHash, err))
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, oops.With("reason", "key").Wrap(errors.Join(ErrInvalidHash, err))
	}
	if len(key) == 0 || len(key) > 1<<30 {
		return nil, oops.With("key_len", len(key)).Wrap(ErrInvalidHash)
	}

	return &decodedHash{
		params: Argon2Params{Time: time, Memory: memory, Threads: uint8(threads)},
		salt:   salt,
		key:    key,
	}, nil
}

// Verify checks if the password matches the hash using a constant-time compare.
func (h *Argon2idHasher) Verify(password, encodedHash string) (bool, error) {
	d, err := decodeHash(encodedHash)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey([]byte(password), d.salt, d.params.Time, d.params.Memory, d.params.Threads, uint32(len(d.key)))
	return subtle.ConstantTimeCompare(computed, d.key) == 1, nil
}

// NeedsUpgrade returns true if hash is not argon2id or uses weaker parameters.
func (h *Argon2idHasher) NeedsUpgrade(hash string) bool {
	d, err := decodeHash(hash)
	if err != nil {
		return true
	}
	return d.params.Time < h.params.Time ||
		d.params.Memory < h.params.Memory ||
		d.params.Threads < h.params.Threads
}
