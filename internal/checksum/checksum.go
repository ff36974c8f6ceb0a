// Package checksum fingerprints serialized collections so the session can
// tell whether the bound file already holds the current content.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Keyed returns a digest of data bound to a protection mode, so the same
// plaintext saved with and without a password fingerprints differently.
func Keyed(data []byte, protected bool) string {
	h := sha256.New()
	if protected {
		h.Write([]byte{1})
	} else {
		h.Write([]byte{0})
	}
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
