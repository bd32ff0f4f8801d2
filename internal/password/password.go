// Package password wraps bcrypt hashing for account credentials.
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	dErrors "nexus/pkg/domain-errors"
)

// Hash creates a salted bcrypt digest of the plaintext password. bcrypt is
// deliberately slow so offline guessing stays expensive.
func Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", dErrors.New(dErrors.CodeBadRequest, "invalid_request", "password cannot be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", dErrors.New(dErrors.CodeBadRequest, "invalid_request", "password is too long")
		}
		return "", fmt.Errorf("could not hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify checks a candidate password against a stored digest. It returns
// false for any mismatch, including corrupt or truncated stored hashes; it
// never reports why.
func Verify(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
