// Package digest provides the stable content hashes used for comparison-unit
// equality throughout the diff pipeline.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashBytes returns the SHA-256 hash of b as lowercase hex.
func HashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// HashString returns the SHA-256 hash of s as lowercase hex.
func HashString(s string) string {
	return HashBytes([]byte(s))
}

// ContentID returns a 16-hex-character short-form id for s.
// Suitable where a full digest is overkill (drawing tokens, sheet
// signatures) but collisions must still be negligible in practice.
func ContentID(s string) string {
	return HashString(s)[:16]
}
