// Package checksum computes the short content hashes used for change detection.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Size is the length in hex characters of a hash returned by Sum.
const Size = 16

// Sum returns the first Size hex characters of the SHA-256 digest of data.
// 64 bits keeps accidental collisions negligible for vaults of thousands of notes.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:Size/2])
}

// SumString is Sum for text content.
func SumString(s string) string {
	return Sum([]byte(s))
}
