package httpx_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/accounts/pkg/httpx"
	"github.com/aussiebroadwan/accounts/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte(strings.Repeat("s", jwtx.MinSecretSize))

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) httpx.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := httpx.Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}), mw("first"), mw("second"))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, []string{"first", "second", "handler"}, order)
}

func TestOptionalAuthn(t *testing.T) {
	signer, err := jwtx.NewHS256Signer(testSecret)
	require.NoError(t, err)
	verifier, err := jwtx.NewHS256Verifier(testSecret, jwtx.VerifyOptions{Issuer: "accounts"})
	require.NoError(t, err)

	var gotUser string
	h := httpx.OptionalAuthn(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = httpx.UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	do := func(authz string) int {
		gotUser = ""
		req := httptest.NewRequest(http.MethodPost, "/graphql", nil)
		if authz != "" {
			req.Header.Set("Authorization", authz)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	t.Run("valid token", func(t *testing.T) {
		token, err := signer.Sign(jwtx.NewUserClaims("user-1", "juuso", "juuso@example.com", time.Minute, "accounts", time.Now()))
		require.NoError(t, err)

		require.Equal(t, http.StatusOK, do("Bearer "+token))
		require.Equal(t, "user-1", gotUser)
	})

	t.Run("no header is anonymous", func(t *testing.T) {
		require.Equal(t, http.StatusOK, do(""))
		require.Empty(t, gotUser)
	})

	t.Run("wrong scheme is anonymous", func(t *testing.T) {
		require.Equal(t, http.StatusOK, do("Basic Zm9vOmJhcg=="))
		require.Empty(t, gotUser)
	})

	t.Run("invalid token is anonymous", func(t *testing.T) {
		require.Equal(t, http.StatusOK, do("Bearer not-a-token"))
		require.Empty(t, gotUser)
	})

	t.Run("expired token is anonymous", func(t *testing.T) {
		token, err := signer.Sign(jwtx.NewUserClaims("user-1", "", "", time.Minute, "accounts", time.Now().Add(-time.Hour)))
		require.NoError(t, err)

		require.Equal(t, http.StatusOK, do("Bearer "+token))
		require.Empty(t, gotUser)
	})
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	httpx.WriteJSON(rec, http.StatusCreated, map[string]string{"status": "ok"})

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestDecodeJSON(t *testing.T) {
	var v struct {
		Query string `json:"query"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"query":"{ currentUser { id } }"}`))
	require.NoError(t, httpx.DecodeJSON(req, 1<<10, &v))
	require.Equal(t, "{ currentUser { id } }", v.Query)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"query":"`+strings.Repeat("x", 100)+`"}`))
	require.ErrorIs(t, httpx.DecodeJSON(req, 16, &v), httpx.ErrBodyTooLarge)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
	require.Error(t, httpx.DecodeJSON(req, 1<<10, &v))
}
