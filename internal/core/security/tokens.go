package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

const tokenPrefix = "mx_sess_"

// GenerateSessionToken creates a random bearer token and the hash that
// identifies its session server-side. Only the hash is ever stored.
func GenerateSessionToken() (token, sessionID string, err error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	token = tokenPrefix + hex.EncodeToString(raw)
	return token, HashToken(token), nil
}

// HashToken maps a bearer token to its session id.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// ValidateToken reports whether token hashes to sessionID.
func ValidateToken(token, sessionID string) bool {
	return subtle.ConstantTimeCompare([]byte(HashToken(token)), []byte(sessionID)) == 1
}
