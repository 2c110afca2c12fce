package policy_test

import (
	"context"
	"testing"

	"github.com/aussiebroadwan/accounts/internal/accounts/policy"
	"github.com/stretchr/testify/require"
)

func TestDefaultRules(t *testing.T) {
	t.Parallel()

	const (
		me    = "01J00000000000000000000001"
		other = "01J00000000000000000000002"
	)

	queries := []string{
		policy.OpGetUserCount,
		policy.OpGetAllUsers,
		policy.OpFindUserByUsername,
		policy.OpFindUserByEmail,
		policy.OpFindUserByID,
		policy.OpCurrentUser,
	}
	anonymousOnly := []string{policy.OpLogin, policy.OpAddUser}
	ownerOnly := []string{
		policy.OpDeleteUserByID,
		policy.OpUpdateUserAccount,
		policy.OpUpdateUserInfo,
		policy.OpUpdateUserPassword,
	}

	type tc struct {
		name    string
		req     policy.Request
		wantErr error
	}
	var tests []tc

	for _, op := range queries {
		tests = append(tests,
			tc{op + " authenticated", policy.Request{Operation: op, CurrentUserID: me}, nil},
			tc{op + " anonymous", policy.Request{Operation: op}, policy.ErrUnauthenticated},
		)
	}
	for _, op := range anonymousOnly {
		tests = append(tests,
			tc{op + " anonymous", policy.Request{Operation: op}, nil},
			tc{op + " authenticated", policy.Request{Operation: op, CurrentUserID: me}, policy.ErrForbidden},
		)
	}
	for _, op := range ownerOnly {
		tests = append(tests,
			tc{op + " owner", policy.Request{Operation: op, CurrentUserID: me, TargetID: me}, nil},
			tc{op + " other user", policy.Request{Operation: op, CurrentUserID: me, TargetID: other}, policy.ErrForbidden},
			tc{op + " anonymous", policy.Request{Operation: op, TargetID: me}, policy.ErrUnauthenticated},
			tc{op + " no target", policy.Request{Operation: op, CurrentUserID: me}, policy.ErrForbidden},
		)
	}
	tests = append(tests,
		tc{"unknown operation", policy.Request{Operation: "dropAllUsers", CurrentUserID: me}, policy.ErrForbidden},
		tc{"empty operation", policy.Request{}, policy.ErrForbidden},
	)

	gate := policy.Default()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := gate.Allow(context.Background(), tt.req)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestAllStopsAtFirstDenial(t *testing.T) {
	calls := 0
	count := func(err error) policy.Rule {
		return func(context.Context, policy.Request) error {
			calls++
			return err
		}
	}

	err := policy.All(count(nil), count(policy.ErrForbidden), count(nil))(context.Background(), policy.Request{})
	require.ErrorIs(t, err, policy.ErrForbidden)
	require.Equal(t, 2, calls)
}
