package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// ResetTokenValidity is the window a password-reset secret stays usable.
const ResetTokenValidity = 15 * time.Minute

// GenerateResetToken produces a high-entropy reset secret and its storable
// hash. The plain secret goes into the emailed link exactly once; only the
// hash is ever persisted.
func GenerateResetToken() (plain, hash string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("failed to generate reset token: %w", err)
	}

	plain = hex.EncodeToString(buf)
	return plain, HashResetToken(plain), nil
}

// HashResetToken maps a reset secret to its stored form.
func HashResetToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}
