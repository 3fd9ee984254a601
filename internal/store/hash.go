package store

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashContent returns the hex SHA-256 of a file's bytes. Index runs compare
// it with files.hash to skip unchanged files.
func HashContent(src []byte) string {
	sum := sha256.Sum256(src)
	return hex.EncodeToString(sum[:])
}
