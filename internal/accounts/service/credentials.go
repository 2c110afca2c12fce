package service

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/accounts/internal/accounts/domain"
	"github.com/aussiebroadwan/accounts/pkg/cryptox"
	"github.com/aussiebroadwan/accounts/pkg/jwtx"
)

// CredentialManager hashes passwords and issues login tokens.
type CredentialManager struct {
	Signer jwtx.Signer
	Issuer string
	TTL    time.Duration
}

func (m *CredentialManager) HashPassword(_ context.Context, password string) (string, error) {
	return cryptox.HashPassword(password)
}

// VerifyPassword never errors on a mismatch. An empty hash is compared
// against a dummy so the caller pays the same cost either way.
func (m *CredentialManager) VerifyPassword(_ context.Context, password, hash string) bool {
	return cryptox.VerifyPassword(password, hash)
}

// IssueToken signs an access token for u valid from now.
func (m *CredentialManager) IssueToken(_ context.Context, u domain.User, now time.Time) (domain.Token, error) {
	if m.Signer == nil {
		return domain.Token{}, errors.New("credentials: no signer configured")
	}

	ttl := m.TTL
	if ttl <= 0 {
		ttl = jwtx.DefaultAccessTokenTTL
	}

	claims := jwtx.NewUserClaims(u.ID, u.Username, u.Email, ttl, m.Issuer, now)
	value, err := m.Signer.Sign(claims)
	if err != nil {
		return domain.Token{}, err
	}

	return domain.Token{Value: value, ExpiresAt: claims.ExpiresAt.Time}, nil
}
