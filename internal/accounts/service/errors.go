package service

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials is returned by Login for an unknown identifier
	// and for a wrong password alike.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrConflict is matched by every *ConflictError.
	ErrConflict = errors.New("already in use")

	ErrUserNotFound = errors.New("user not found")
)

// ConflictError reports a username or email already owned by another user.
// Field is "username" or "email", or empty when the store could not say
// which key collided.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	if e.Field == "" {
		return "username or email " + ErrConflict.Error()
	}
	return fmt.Sprintf("%s %s", e.Field, ErrConflict)
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }
