// Package token generates opaque session tokens. Tokens are 32 bytes of
// CSPRNG output (256 bits of entropy) in URL-safe base64, the same shape the
// original deployment used for its session cookies.
package token

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

const tokenBytes = 32

// CryptoSource draws tokens from crypto/rand.
type CryptoSource struct{}

func (CryptoSource) Token() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
