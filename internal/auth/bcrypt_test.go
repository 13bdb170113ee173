package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptVerifier_RoundTrip(t *testing.T) {
	v := NewBcryptVerifier(bcrypt.MinCost)

	hash, err := v.Hash("admin123")
	require.NoError(t, err)

	assert.True(t, v.Verify(hash, "admin123"))
	assert.False(t, v.Verify(hash, "admin124"))
	assert.False(t, v.Verify(hash, ""))
}

func TestBcryptVerifier_RejectsGarbageHash(t *testing.T) {
	v := NewBcryptVerifier(bcrypt.MinCost)
	assert.False(t, v.Verify("not-a-bcrypt-hash", "password"))
}

func TestNewBcryptVerifier_ClampsInvalidCost(t *testing.T) {
	v := NewBcryptVerifier(999)
	hash, err := v.Hash("pw")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
}
