package auth

import (
	"fmt"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/dkoval/identity-service/pkg/errors"
)

// bcryptCost is the cost factor for bcrypt password hashing.
const bcryptCost = 12

// minPasswordLength is the minimum password length required.
const minPasswordLength = 8

// HashPassword hashes a plaintext password with bcrypt. The salt is generated
// by the library and embedded in the returned hash, so hashing the same
// password twice yields different blobs.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// VerifyPassword reports whether the plaintext password matches the stored
// hash. A malformed hash counts as a mismatch; the comparison itself is done
// in constant time by bcrypt.
func VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ValidatePassword checks that the password meets minimum complexity
// requirements: at least 8 characters with one uppercase letter, one
// lowercase letter, and one digit. Callers enforce this at registration and
// password change; hashing itself accepts any input.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLength {
		return apperrors.InvalidInput(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	var hasUpper, hasLower, hasDigit bool
	for _, ch := range password {
		switch {
		case unicode.IsUpper(ch):
			hasUpper = true
		case unicode.IsLower(ch):
			hasLower = true
		case unicode.IsDigit(ch):
			hasDigit = true
		}
	}

	if !hasUpper || !hasLower || !hasDigit {
		return apperrors.InvalidInput("password must contain at least one uppercase letter, one lowercase letter, and one digit")
	}

	return nil
}
