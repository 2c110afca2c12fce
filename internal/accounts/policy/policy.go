// Package policy decides whether a caller may run a GraphQL operation.
// Rules are composed from small predicates in the way a permissions shield
// wraps resolvers: every operation has exactly one rule, and anything
// without a rule is denied.
package policy

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrUnauthenticated = errors.New("not authenticated")
	ErrForbidden       = errors.New("not authorized")
)

// Operation names, matching the GraphQL field names.
const (
	OpGetUserCount       = "getUserCount"
	OpGetAllUsers        = "getAllUsers"
	OpFindUserByUsername = "findUserByUsername"
	OpFindUserByEmail    = "findUserByEmail"
	OpFindUserByID       = "findUserById"
	OpCurrentUser        = "currentUser"

	OpLogin              = "login"
	OpAddUser            = "addUser"
	OpDeleteUserByID     = "deleteUserById"
	OpUpdateUserAccount  = "updateUserAccount"
	OpUpdateUserInfo     = "updateUserInfo"
	OpUpdateUserPassword = "updateUserPassword"
)

// Request is what a rule sees. CurrentUserID is empty for anonymous
// callers and TargetID is the id argument of the operation, if any.
type Request struct {
	Operation     string
	CurrentUserID string
	TargetID      string
}

type Gate interface {
	Allow(ctx context.Context, r Request) error
}

// Rule returns nil to allow.
type Rule func(ctx context.Context, r Request) error

// Rules is a Gate backed by a per-operation table.
type Rules map[string]Rule

func (rs Rules) Allow(ctx context.Context, r Request) error {
	rule, ok := rs[r.Operation]
	if !ok {
		return fmt.Errorf("%w: no rule for %q", ErrForbidden, r.Operation)
	}
	return rule(ctx, r)
}

// Default is the rule set the service runs with.
func Default() Rules {
	authed := IsAuthenticated()
	anon := NotAuthenticated()
	owner := All(IsAuthenticated(), IsOwner())

	return Rules{
		OpGetUserCount:       authed,
		OpGetAllUsers:        authed,
		OpFindUserByUsername: authed,
		OpFindUserByEmail:    authed,
		OpFindUserByID:       authed,
		OpCurrentUser:        authed,

		OpLogin:   anon,
		OpAddUser: anon,

		OpDeleteUserByID:     owner,
		OpUpdateUserAccount:  owner,
		OpUpdateUserInfo:     owner,
		OpUpdateUserPassword: owner,
	}
}

func IsAuthenticated() Rule {
	return func(_ context.Context, r Request) error {
		if r.CurrentUserID == "" {
			return ErrUnauthenticated
		}
		return nil
	}
}

// NotAuthenticated only admits anonymous callers.
func NotAuthenticated() Rule {
	return func(_ context.Context, r Request) error {
		if r.CurrentUserID != "" {
			return fmt.Errorf("%w: already authenticated", ErrForbidden)
		}
		return nil
	}
}

// IsOwner admits callers acting on their own account.
func IsOwner() Rule {
	return func(_ context.Context, r Request) error {
		if r.TargetID == "" || r.CurrentUserID != r.TargetID {
			return ErrForbidden
		}
		return nil
	}
}

// All runs rules in order and stops at the first denial.
func All(rules ...Rule) Rule {
	return func(ctx context.Context, r Request) error {
		for _, rule := range rules {
			if err := rule(ctx, r); err != nil {
				return err
			}
		}
		return nil
	}
}
