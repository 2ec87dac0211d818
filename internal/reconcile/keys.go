package reconcile

import (
	"crypto/rand"
	"encoding/hex"
)

const authKeyBytes = 8

// KeyGenerator returns a fresh auth key.
type KeyGenerator func() (string, error)

// RandomKey returns 16 hex characters from a CSPRNG.
func RandomKey() (string, error) {
	b := make([]byte, authKeyBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
