package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HashString returns the hex SHA-256 digest of input
func HashString(input string) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}

// HashEmail normalizes an email address before hashing so the same lead
// always logs under the same identifier.
func HashEmail(email string) string {
	return HashString(strings.ToLower(strings.TrimSpace(email)))
}
