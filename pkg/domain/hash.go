package domain

import (
	"strings"

	dErrors "cac/pkg/domain-errors"
)

// Hash32 is an opaque 32-byte digest in 0x-prefixed hex form. The core stores
// and emits these (tax id hashes, verification credential hashes) but never
// computes or verifies them.
type Hash32 string

// ZeroHash is the all-zero digest, used where a hash is optional.
const ZeroHash Hash32 = "0x0000000000000000000000000000000000000000000000000000000000000000"

// ParseHash32 constructs a Hash32 from external input.
//
// Errors: returns CodeInvalidInput when the value is not a 0x-prefixed
// 64-hex-digit string. The empty string is rejected; callers wanting an
// optional hash pass ZeroHash explicitly.
func ParseHash32(s string) (Hash32, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "hash cannot be empty")
	}
	s = strings.ToLower(s)
	if !strings.HasPrefix(s, "0x") || len(s) != 66 || !isHex(s[2:]) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid 32-byte hash")
	}
	return Hash32(s), nil
}

// IsZero reports whether the digest is unset or all-zero.
func (h Hash32) IsZero() bool {
	return h == "" || h == ZeroHash
}

// String returns the canonical string form.
func (h Hash32) String() string {
	return string(h)
}
