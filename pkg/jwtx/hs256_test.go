package jwtx_test

import (
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/accounts/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const exampleIssuer = "accounts"

var exampleSecret = []byte(strings.Repeat("s", jwtx.MinSecretSize))

func newPair(t *testing.T, opts jwtx.VerifyOptions) (*jwtx.HS256Signer, *jwtx.HS256Verifier) {
	t.Helper()

	signer, err := jwtx.NewHS256Signer(exampleSecret)
	require.NoError(t, err)

	verifier, err := jwtx.NewHS256Verifier(exampleSecret, opts)
	require.NoError(t, err)

	return signer, verifier
}

func TestHS256SignAndVerify(t *testing.T) {
	signer, verifier := newPair(t, jwtx.VerifyOptions{Issuer: exampleIssuer})
	require.Equal(t, "HS256", signer.Alg())

	now := time.Now().UTC()
	claims := jwtx.NewUserClaims("01J9Z", "juuso", "juuso@example.com", 5*time.Minute, exampleIssuer, now)

	token, err := signer.Sign(claims)
	require.NoError(t, err)
	require.Len(t, strings.Split(token, "."), 3)

	parsed, err := verifier.Verify(token)
	require.NoError(t, err)
	require.Equal(t, claims.Subject, parsed.Subject)
	require.Equal(t, claims.Issuer, parsed.Issuer)
	require.Equal(t, "juuso", parsed.Username)
	require.Equal(t, "juuso@example.com", parsed.Email)
	require.NotEmpty(t, parsed.ID)
}

func TestHS256VerifyFailures(t *testing.T) {
	signer, verifier := newPair(t, jwtx.VerifyOptions{Issuer: exampleIssuer})
	now := time.Now().UTC()

	t.Run("wrong issuer", func(t *testing.T) {
		token, err := signer.Sign(jwtx.NewUserClaims("u1", "", "", time.Minute, "someone-else", now))
		require.NoError(t, err)

		_, err = verifier.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrIssuer)
	})

	t.Run("expired", func(t *testing.T) {
		token, err := signer.Sign(jwtx.NewUserClaims("u1", "", "", time.Minute, exampleIssuer, now.Add(-time.Hour)))
		require.NoError(t, err)

		_, err = verifier.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrExpired)
	})

	t.Run("different secret", func(t *testing.T) {
		other, err := jwtx.NewHS256Signer([]byte(strings.Repeat("o", jwtx.MinSecretSize)))
		require.NoError(t, err)

		token, err := other.Sign(jwtx.NewUserClaims("u1", "", "", time.Minute, exampleIssuer, now))
		require.NoError(t, err)

		_, err = verifier.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrInvalidSig)
	})

	t.Run("tampered payload", func(t *testing.T) {
		token, err := signer.Sign(jwtx.NewUserClaims("u1", "", "", time.Minute, exampleIssuer, now))
		require.NoError(t, err)

		evil, err := signer.Sign(jwtx.NewUserClaims("u2", "", "", time.Minute, exampleIssuer, now))
		require.NoError(t, err)

		parts := strings.Split(token, ".")
		parts[1] = strings.Split(evil, ".")[1]

		_, err = verifier.Verify(strings.Join(parts, "."))
		require.ErrorIs(t, err, jwtx.ErrInvalidSig)
	})

	t.Run("none algorithm", func(t *testing.T) {
		unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwtx.NewUserClaims("u1", "", "", time.Minute, exampleIssuer, now))
		token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = verifier.Verify(token)
		require.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := verifier.Verify("not.a.jwt")
		require.Error(t, err)

		_, err = verifier.Verify("")
		require.ErrorIs(t, err, jwtx.ErrMalformed)
	})
}

func TestHS256Leeway(t *testing.T) {
	signer, verifier := newPair(t, jwtx.VerifyOptions{Issuer: exampleIssuer, Leeway: time.Minute})

	// Expired 10 seconds ago, inside the leeway.
	token, err := signer.Sign(jwtx.NewUserClaims("u1", "", "", time.Minute, exampleIssuer, time.Now().Add(-70*time.Second)))
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.NoError(t, err)
}

func TestHS256RejectsWeakSecret(t *testing.T) {
	_, err := jwtx.NewHS256Signer([]byte("short"))
	require.ErrorIs(t, err, jwtx.ErrWeakSecret)

	_, err = jwtx.NewHS256Verifier([]byte("short"), jwtx.VerifyOptions{})
	require.ErrorIs(t, err, jwtx.ErrWeakSecret)
}

func TestHS256SignRequiresSubject(t *testing.T) {
	signer, _ := newPair(t, jwtx.VerifyOptions{})
	_, err := signer.Sign(jwtx.Claims{})
	require.Error(t, err)
}
