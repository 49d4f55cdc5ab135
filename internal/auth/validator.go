// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Credential shape limits.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 50
	MinPasswordLength = 8
	MaxEmailLength    = 254
)

// ValidUsername reports whether s is 3-50 characters drawn from
// letters, digits, underscore, dot and hyphen.
func ValidUsername(s string) bool {
	if len(s) < MinUsernameLength || len(s) > MaxUsernameLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isUsernameByte(s[i]) {
			return false
		}
	}
	return true
}

func isUsernameByte(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '_' || c == '.' || c == '-':
		return true
	}
	return false
}

// ValidEmail reports whether s has the shape local@domain, where the domain
// contains a dot that is neither its first nor last character.
func ValidEmail(s string) bool {
	if len(s) > MaxEmailLength || !utf8.ValidString(s) {
		return false
	}
	local, domain, ok := strings.Cut(s, "@")
	if !ok || local == "" || domain == "" || strings.Contains(domain, "@") {
		return false
	}
	if strings.ContainsFunc(s, func(r rune) bool { return unicode.IsSpace(r) || unicode.IsControl(r) }) {
		return false
	}
	if strings.HasPrefix(local, ".") || strings.HasSuffix(local, ".") || strings.Contains(local, "..") {
		return false
	}

	dot := strings.LastIndexByte(domain, '.')
	if dot <= 0 || dot == len(domain)-1 {
		return false
	}
	for _, label := range strings.Split(domain, ".") {
		if label == "" || strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
			return false
		}
	}
	return true
}

// StrongPassword reports whether s is at least 8 characters long and contains
// a lowercase letter, an uppercase letter, a digit and a special character.
func StrongPassword(s string) bool {
	return utf8.RuneCountInString(s) >= MinPasswordLength &&
		HasLower(s) && HasUpper(s) && HasDigit(s) && HasSpecial(s)
}

// HasLower reports whether s contains an ASCII lowercase letter.
func HasLower(s string) bool {
	return strings.ContainsFunc(s, func(r rune) bool { return r >= 'a' && r <= 'z' })
}

// HasUpper reports whether s contains an ASCII uppercase letter.
func HasUpper(s string) bool {
	return strings.ContainsFunc(s, func(r rune) bool { return r >= 'A' && r <= 'Z' })
}

// HasDigit reports whether s contains an ASCII digit.
func HasDigit(s string) bool {
	return strings.ContainsFunc(s, func(r rune) bool { return r >= '0' && r <= '9' })
}

// HasSpecial reports whether s contains a character outside [A-Za-z0-9].
func HasSpecial(s string) bool {
	return strings.ContainsFunc(s, func(r rune) bool {
		return (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9')
	})
}
