package accountsdk

import (
	"errors"
	"fmt"
)

// Error codes reported in GraphQL extensions.code.
const (
	CodeBadUserInput    = "BAD_USER_INPUT"
	CodeUnauthenticated = "UNAUTHENTICATED"
	CodeForbidden       = "FORBIDDEN"
	CodeConflict        = "CONFLICT"
	CodeNotFound        = "NOT_FOUND"
	CodeInternal        = "INTERNAL_SERVER_ERROR"
)

// Error is a failed request. GraphQL errors set Code; transport failures
// such as rate limiting set StatusCode instead.
type Error struct {
	Message    string
	Code       string
	StatusCode int
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("accounts: %s (%s)", e.Message, e.Code)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("accounts: HTTP %d: %s", e.StatusCode, e.Message)
	}
	return "accounts: " + e.Message
}

// HasCode reports whether err is an *Error with the given code.
func HasCode(err error, code string) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}
