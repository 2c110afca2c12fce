package accountsdk

import (
	"context"
	"time"
)

// Session runs operations as the user a token was issued to. Tokens are
// not refreshed: log in again once ExpiresAt has passed.
type Session struct {
	client    *Client
	token     string
	expiresAt time.Time
}

// Token returns the bearer token the session sends.
func (s *Session) Token() string { return s.token }

// ExpiresAt is zero for sessions created with WithToken.
func (s *Session) ExpiresAt() time.Time { return s.expiresAt }

// Do runs a GraphQL document with the session's token.
func (s *Session) Do(ctx context.Context, query string, vars map[string]any, out any) error {
	return s.client.do(ctx, s.token, query, vars, out)
}
