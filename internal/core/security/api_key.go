package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

// GenerateAPIKey creates a new merchant API key and its SHA256 hash.
// Only the hash is stored; the real key is shown to the caller once.
func GenerateAPIKey() (realKey, keyHash string, err error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", "", fmt.Errorf("generate key bytes: %w", err)
	}

	realKey = fmt.Sprintf("lp_live_%s", hex.EncodeToString(bytes))
	keyHash = HashAPIKey(realKey)
	return realKey, keyHash, nil
}

// HashAPIKey returns the hex SHA256 of a key, the form stored and compared.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// ValidateKey checks a provided key against a stored hash in constant time.
func ValidateKey(providedKey, storedHash string) bool {
	computed := HashAPIKey(providedKey)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedHash)) == 1
}
