// Package auth implements the credential verification port with bcrypt.
// Password hashing is external to the core; the registry only ever sees the
// boolean outcome.
package auth

import "golang.org/x/crypto/bcrypt"

// BcryptVerifier satisfies domain.CredentialVerifier.
type BcryptVerifier struct {
	cost int
}

func NewBcryptVerifier(cost int) *BcryptVerifier {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptVerifier{cost: cost}
}

func (v *BcryptVerifier) Verify(passwordHash, plaintext string) bool {
	return bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(plaintext)) == nil
}

// Hash produces a bcrypt hash for seeding and account creation.
func (v *BcryptVerifier) Hash(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), v.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
