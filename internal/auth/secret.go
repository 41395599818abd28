package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// GenerateSecret generates a random 256-bit secret, hex encoded. Used to
// provision the JWT signing secret when the deployment does not supply one.
func GenerateSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
