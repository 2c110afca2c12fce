package graph

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aussiebroadwan/accounts/internal/accounts/policy"
	"github.com/aussiebroadwan/accounts/internal/accounts/service"
	"github.com/aussiebroadwan/accounts/pkg/slogx"
	"github.com/aussiebroadwan/accounts/pkg/validx"
)

// Error codes carried in extensions.code.
const (
	CodeBadUserInput    = "BAD_USER_INPUT"
	CodeUnauthenticated = "UNAUTHENTICATED"
	CodeForbidden       = "FORBIDDEN"
	CodeConflict        = "CONFLICT"
	CodeNotFound        = "NOT_FOUND"
	CodeInternal        = "INTERNAL_SERVER_ERROR"
)

// Error is a resolver error with a client-facing code. The executor copies
// Extensions into the response.
type Error struct {
	Message string
	Code    string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Extensions() map[string]interface{} {
	return map[string]interface{}{"code": e.Code}
}

// toError maps service and policy errors onto client errors. Anything it
// does not recognise is logged and hidden behind an opaque message.
func toError(ctx context.Context, err error) *Error {
	var gerr *Error
	var conflict *service.ConflictError

	switch {
	case errors.As(err, &gerr):
		return gerr
	case errors.Is(err, validx.ErrInvalid):
		return &Error{Message: err.Error(), Code: CodeBadUserInput}
	case errors.Is(err, service.ErrInvalidCredentials):
		return &Error{Message: service.ErrInvalidCredentials.Error(), Code: CodeUnauthenticated}
	case errors.Is(err, policy.ErrUnauthenticated):
		return &Error{Message: "not authenticated", Code: CodeUnauthenticated}
	case errors.Is(err, policy.ErrForbidden):
		return &Error{Message: "not authorized", Code: CodeForbidden}
	case errors.As(err, &conflict):
		return &Error{Message: conflict.Error(), Code: CodeConflict}
	case errors.Is(err, service.ErrUserNotFound):
		return &Error{Message: service.ErrUserNotFound.Error(), Code: CodeNotFound}
	}

	slogx.FromContext(ctx).Error("graphql resolver failed", slog.Any("err", err))
	return &Error{Message: "internal server error", Code: CodeInternal}
}
