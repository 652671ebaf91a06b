package id

import (
	"crypto/rand"
	"encoding/hex"
)

// SuffixLen is the length of the suffix that keeps generated document names unique.
const SuffixLen = 8

// Hex returns n lowercase hex characters; odd n are rounded up.
func Hex(n int) string {
	b := make([]byte, (n+1)/2)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// NewID32 returns a 32 character request id, the form accepted by the
// idempotency middleware alongside UUIDs.
func NewID32() string { return Hex(32) }

// Suffix returns a short random tag for object and file names.
func Suffix() string { return Hex(SuffixLen) }
