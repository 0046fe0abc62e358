// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// InviteAlphabet excludes the look-alikes 0/O and 1/I/L.
const InviteAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// DefaultCodeLength is the length of every generated invite code.
const DefaultCodeLength = 10

var ErrInvalidAdminSecret = errors.New("invalid admin secret")

// GenerateInviteCode draws length characters uniformly from InviteAlphabet
// using crypto/rand. A non-positive length uses DefaultCodeLength.
func GenerateInviteCode(length int) (string, error) {
	if length <= 0 {
		length = DefaultCodeLength
	}
	max := big.NewInt(int64(len(InviteAlphabet)))
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate invite code: %w", err)
		}
		b[i] = InviteAlphabet[n.Int64()]
	}
	return string(b), nil
}

// NormalizeCode trims and upper-cases a code typed or pasted by a guest.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidInviteCode reports whether code could have been produced by GenerateInviteCode.
func ValidInviteCode(code string) bool {
	if len(code) != DefaultCodeLength {
		return false
	}
	for _, c := range code {
		if !strings.ContainsRune(InviteAlphabet, c) {
			return false
		}
	}
	return true
}

// ValidateAdminSecret compares the provided secret in constant time.
func ValidateAdminSecret(provided, expected string) error {
	if expected == "" || provided == "" {
		return ErrInvalidAdminSecret
	}
	if subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
		return ErrInvalidAdminSecret
	}
	return nil
}
