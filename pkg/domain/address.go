package domain

import (
	"strings"

	dErrors "cac/pkg/domain-errors"
)

// Address identifies an account. It is opaque to the core: the only
// requirements are uniqueness and comparability. The canonical form is a
// lower-cased 0x-prefixed 40-hex-digit string, matching the wallet addresses
// the upstream collaborators authenticate with.
//
// Usage: construct via ParseAddress at trust boundaries to enforce the
// canonical form; direct casting bypasses validation.
type Address string

// ZeroAddress is the canonical "no account" value.
const ZeroAddress Address = ""

// ParseAddress constructs an Address from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or not a
// 0x-prefixed 40-hex-digit string; no other errors are expected.
func ParseAddress(s string) (Address, error) {
	if s == "" {
		return ZeroAddress, dErrors.New(dErrors.CodeInvalidInput, "address cannot be empty")
	}
	s = strings.ToLower(s)
	if !strings.HasPrefix(s, "0x") || len(s) != 42 || !isHex(s[2:]) {
		return ZeroAddress, dErrors.New(dErrors.CodeInvalidInput, "invalid address")
	}
	return Address(s), nil
}

// IsZero reports whether the address is unset.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// String returns the canonical string form.
func (a Address) String() string {
	return string(a)
}

func isHex(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		default:
			return false
		}
	}
	return true
}
