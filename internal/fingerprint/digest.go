// Package fingerprint computes the tamper-evident digest for notes and talks
// to the external gpg binary for signing and verification.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// CanonicalTime renders a note timestamp in the fixed form used for hashing.
// The same instant always produces the same string, so digests are
// reproducible from stored data.
func CanonicalTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// Digest computes the SHA-256 fingerprint binding a note's timestamp to its
// content. The preimage is "<canonical timestamp>:<content>"; backdating a
// note invalidates its fingerprint.
func Digest(t time.Time, content string) string {
	h := sha256.Sum256([]byte(CanonicalTime(t) + ":" + content))
	return hex.EncodeToString(h[:])
}
