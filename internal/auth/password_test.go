package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerifyPassword(t *testing.T) {
	svc := NewPasswordServiceWithCost(bcrypt.MinCost)

	hash, err := svc.HashPassword("correct-horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct-horse", hash)

	assert.NoError(t, svc.VerifyPassword(hash, "correct-horse"))
	assert.Error(t, svc.VerifyPassword(hash, "wrong-horse"))
}

func TestHashPasswordEmpty(t *testing.T) {
	svc := NewPasswordServiceWithCost(bcrypt.MinCost)
	_, err := svc.HashPassword("")
	assert.ErrorIs(t, err, ErrInvalidPassword)
}

func TestIsValidPassword(t *testing.T) {
	assert.Error(t, IsValidPassword("short"))
	assert.NoError(t, IsValidPassword("longenough"))
	assert.NoError(t, IsValidPassword(strings.Repeat("a", 128)))
	assert.Error(t, IsValidPassword(strings.Repeat("a", 129)))
}
