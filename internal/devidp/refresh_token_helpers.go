package devidp

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

const (
	refreshSecretBytes  = 32
	refreshSecretPrefix = "pjr_"
)

// newRefreshSecret returns the opaque value handed to the client and the
// digest the store indexes it under. Only the digest is retained.
func newRefreshSecret() (string, string, error) {
	secret := make([]byte, refreshSecretBytes)
	if _, err := rand.Read(secret); err != nil {
		return "", "", fmt.Errorf("devidp.refresh.entropy: %w", err)
	}
	opaque := refreshSecretPrefix + base64.RawURLEncoding.EncodeToString(secret)
	return opaque, refreshDigest(opaque), nil
}

func refreshDigest(opaque string) string {
	sum := sha256.Sum256([]byte(opaque))
	return hex.EncodeToString(sum[:])
}
