package cryptox

import (
	"crypto/sha256"
	"crypto/subtle"
)

// TimingSafeCompare reports whether a and b are equal without leaking where
// they differ, or whether their lengths differ, through timing. Both inputs
// are reduced to fixed-length SHA-256 digests first, then compared with a
// constant-time primitive that never short-circuits.
func TimingSafeCompare(a, b string) bool {
	da := sha256.Sum256([]byte(a))
	db := sha256.Sum256([]byte(b))
	return subtle.ConstantTimeCompare(da[:], db[:]) == 1
}
