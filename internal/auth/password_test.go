package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/dkoval/identity-service/pkg/errors"
)

func TestHashPassword_RoundTrip(t *testing.T) {
	hash, err := HashPassword("SecurePass123")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(hash, "$2a$"))
	assert.True(t, VerifyPassword("SecurePass123", hash))
	assert.False(t, VerifyPassword("WrongPass456", hash))
}

// The salt is generated per hash, so hashing the same password twice must
// produce distinct blobs that both verify.
func TestHashPassword_SaltedDistinct(t *testing.T) {
	hash1, err := HashPassword("SecurePass123")
	require.NoError(t, err)
	hash2, err := HashPassword("SecurePass123")
	require.NoError(t, err)

	assert.NotEqual(t, hash1, hash2)
	assert.True(t, VerifyPassword("SecurePass123", hash1))
	assert.True(t, VerifyPassword("SecurePass123", hash2))
}

func TestVerifyPassword_MalformedHash(t *testing.T) {
	assert.False(t, VerifyPassword("SecurePass123", "not-a-bcrypt-hash"))
	assert.False(t, VerifyPassword("SecurePass123", ""))
}

func TestValidatePassword_Valid(t *testing.T) {
	tests := []struct {
		name     string
		password string
	}{
		{"standard", "SecurePass123"},
		{"with special chars", "P@ssw0rd!XY"},
		{"exactly 8 chars", "Abcdef1g"},
		{"long password", "VeryLongSecurePassword123456"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NoError(t, ValidatePassword(tt.password))
		})
	}
}

func TestValidatePassword_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		password string
	}{
		{"too short", "Ab1"},
		{"seven chars", "Abcdef1"},
		{"no uppercase", "securepass123"},
		{"no lowercase", "SECUREPASS123"},
		{"no digit", "SecurePassword"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		})
	}
}
