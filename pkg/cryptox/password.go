package cryptox

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// PasswordCost is the bcrypt work factor used for every stored password.
const PasswordCost = 10

// MaxPasswordBytes is the bcrypt input limit. Longer inputs are rejected by
// HashPassword rather than silently truncated.
const MaxPasswordBytes = 72

var ErrPasswordTooLong = errors.New("cryptox: password exceeds 72 bytes")

// dummyHash is compared against when there is no stored hash so a missing
// account costs the same as a wrong password.
var dummyHash = sync.OnceValue(func() []byte {
	h, _ := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), PasswordCost)
	return h
})

// HashPassword returns a salted bcrypt hash of password.
func HashPassword(password string) (string, error) {
	if len(password) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches encodedHash. A malformed
// hash is treated as a mismatch. An empty encodedHash still pays for one
// bcrypt comparison.
func VerifyPassword(password, encodedHash string) bool {
	if encodedHash == "" {
		_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password)) == nil
}
