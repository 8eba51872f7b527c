// Package digest computes content checksums over the original,
// untransformed bytes of a stored object. The digest is recorded at write
// time and recomputed after decrypt+decompress on every read to detect
// corruption.
package digest

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Verify reports whether data hashes to want. Comparison is constant time.
func Verify(data []byte, want string) bool {
	return hmac.Equal([]byte(Sum(data)), []byte(want))
}
