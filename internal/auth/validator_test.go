// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/holomush/authcore/internal/auth"
)

func TestValidUsername(t *testing.T) {
	tests := []struct {
		name     string
		username string
		want     bool
	}{
		{"simple", "alice", true},
		{"with allowed punctuation", "a.l_i-ce", true},
		{"digits only", "123", true},
		{"minimum length", "abc", true},
		{"maximum length", strings.Repeat("a", 50), true},
		{"too short", "ab", false},
		{"too long", strings.Repeat("a", 51), false},
		{"empty", "", false},
		{"space", "al ice", false},
		{"at sign", "alice@x", false},
		{"non-ascii", "alicé", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, auth.ValidUsername(tt.username))
		})
	}
}

func TestValidEmail(t *testing.T) {
	tests := []struct {
		name  string
		email string
		want  bool
	}{
		{"simple", "alice@x.com", true},
		{"subdomain", "bob.smith@mail.example.org", true},
		{"plus tag", "carol+tag@example.co.uk", true},
		{"no at", "alice.example.com", false},
		{"no dot in domain", "alice@localhost", false},
		{"empty local part", "@example.com", false},
		{"empty domain", "alice@", false},
		{"two at signs", "a@b@example.com", false},
		{"space", "al ice@example.com", false},
		{"trailing dot", "alice@example.", false},
		{"leading dot in domain", "alice@.example.com", false},
		{"double dot in local part", "al..ice@example.com", false},
		{"too long", strings.Repeat("a", 250) + "@x.com", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, auth.ValidEmail(tt.email))
		})
	}
}

func TestStrongPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		want     bool
	}{
		{"all classes at minimum length", "Abcdef1!", true},
		{"long", "correct-Horse-battery-9", true},
		{"seven characters", "Abcde1!", false},
		{"missing lowercase", "ABCDEF1!", false},
		{"missing uppercase", "abcdef1!", false},
		{"missing digit", "Abcdefg!", false},
		{"missing special", "Abcdefg1", false},
		{"space counts as special", "Abcdef1 ", true},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, auth.StrongPassword(tt.password))
		})
	}
}

func TestCharacterClassPredicates(t *testing.T) {
	assert.True(t, auth.HasLower("ABCd"))
	assert.False(t, auth.HasLower("ABC1!"))

	assert.True(t, auth.HasUpper("abcD"))
	assert.False(t, auth.HasUpper("abc1!"))

	assert.True(t, auth.HasDigit("abc9"))
	assert.False(t, auth.HasDigit("abcD!"))

	assert.True(t, auth.HasSpecial("abc#"))
	assert.True(t, auth.HasSpecial("abcé"))
	assert.False(t, auth.HasSpecial("abcD9"))
}

func TestStrongPassword_IsConjunctionOfPredicates(t *testing.T) {
	inputs := []string{
		"", "a", "Abcdef1!", "abcdefgh", "ABCDEFGH", "12345678", "!!!!!!!!",
		"Abcdefgh", "abcdef1!", "ABCDEF1!", "Abcdefg1", "Ab1!", "Pässwörd1", "Passw0rd€",
	}
	for _, s := range inputs {
		want := len([]rune(s)) >= auth.MinPasswordLength &&
			auth.HasLower(s) && auth.HasUpper(s) && auth.HasDigit(s) && auth.HasSpecial(s)
		assert.Equal(t, want, auth.StrongPassword(s), "password %q", s)
	}
}
