package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/accounts/internal/accounts/graph"
	accountshttp "github.com/aussiebroadwan/accounts/internal/accounts/http"
	"github.com/aussiebroadwan/accounts/internal/accounts/policy"
	"github.com/aussiebroadwan/accounts/internal/accounts/service"
	"github.com/aussiebroadwan/accounts/internal/accounts/store"
	"github.com/aussiebroadwan/accounts/internal/accounts/store/drivers/memory"
	"github.com/aussiebroadwan/accounts/pkg/accountsdk"
	"github.com/aussiebroadwan/accounts/pkg/cryptox"
	"github.com/aussiebroadwan/accounts/pkg/httpx"
	"github.com/aussiebroadwan/accounts/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte(strings.Repeat("s", jwtx.MinSecretSize))

func newRouter(t *testing.T, st store.Store) *accountshttp.Router {
	t.Helper()

	cipher, err := cryptox.NewFieldCipher([]byte(cryptox.TestFieldKey))
	require.NoError(t, err)
	signer, err := jwtx.NewHS256Signer(testSecret)
	require.NoError(t, err)
	verifier, err := jwtx.NewHS256Verifier(testSecret, jwtx.VerifyOptions{Issuer: "accounts"})
	require.NoError(t, err)

	users := &service.UserService{
		Store:       st,
		Cipher:      cipher,
		Credentials: &service.CredentialManager{Signer: signer, Issuer: "accounts", TTL: time.Hour},
	}
	schema, err := graph.NewSchema(&graph.Resolver{Users: users, Policy: policy.Default()})
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := accountshttp.NewRouter(verifier, "test", st, schema, logger)
	r.ApplyRoutes()
	return r
}

func post(t *testing.T, h http.Handler, token, query string, vars map[string]any) (*httptest.ResponseRecorder, accountshttp.GraphQLResponse) {
	t.Helper()

	body, err := json.Marshal(accountshttp.GraphQLRequest{Query: query, Variables: vars})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var res accountshttp.GraphQLResponse
	if rec.Code != http.StatusTooManyRequests {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	}
	return rec, res
}

const signUp = `mutation {
	addUser(username: "juuso", firstname: "Juuso", lastname: "Järvinen", email: "juuso@example.com",
		password: "hunter2hunter2", passwordconf: "hunter2hunter2") { id }
}`

const signIn = `mutation { login(identifier: "juuso@example.com", password: "hunter2hunter2") { value } }`

func TestGraphQLOverHTTP(t *testing.T) {
	r := newRouter(t, memory.NewStore())

	rec, res := post(t, r, "", signUp, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, res.Errors)

	_, res = post(t, r, "", signIn, nil)
	require.Empty(t, res.Errors)
	token := res.Data.(map[string]any)["login"].(map[string]any)["value"].(string)

	t.Run("bearer token identifies the caller", func(t *testing.T) {
		_, res := post(t, r, token, `{ currentUser { username email } }`, nil)
		require.Empty(t, res.Errors)
		me := res.Data.(map[string]any)["currentUser"].(map[string]any)
		require.Equal(t, "juuso", me["username"])
	})

	t.Run("anonymous caller", func(t *testing.T) {
		rec, res := post(t, r, "", `{ getUserCount }`, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, res.Errors, 1)
		require.Equal(t, graph.CodeUnauthenticated, res.Errors[0].Extensions["code"])
	})

	t.Run("forged token is anonymous", func(t *testing.T) {
		_, res := post(t, r, token+"x", `{ getUserCount }`, nil)
		require.Len(t, res.Errors, 1)
		require.Equal(t, graph.CodeUnauthenticated, res.Errors[0].Extensions["code"])
	})

	t.Run("get request", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/graphql?query=%7B+getUserCount+%7D", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.JSONEq(t, `{"data":{"getUserCount":1}}`, rec.Body.String())
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader("{"))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Contains(t, rec.Body.String(), "errors")
	})

	t.Run("syntax error", func(t *testing.T) {
		rec, res := post(t, r, token, `{ currentUser {`, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.NotEmpty(t, res.Errors)
	})
}

func TestCredentialOperationsUseStrictLimit(t *testing.T) {
	r := newRouter(t, memory.NewStore())

	_, res := post(t, r, "", signUp, nil)
	require.Empty(t, res.Errors)

	// signUp used one of the strict tokens.
	for i := 1; i < httpx.StrictLimit.Burst; i++ {
		rec, _ := post(t, r, "", signIn, nil)
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i)
	}

	rec, _ := post(t, r, "", signIn, nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	// Other operations from the same address have their own budget.
	rec, _ = post(t, r, "", `{ getUserCount }`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHealth(t *testing.T) {
	t.Run("livez", func(t *testing.T) {
		r := newRouter(t, memory.NewStore())
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/livez", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var body accountsdk.HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, "ok", body.Status)
		require.Equal(t, "test", body.Version)
		require.Nil(t, body.Checks)
	})

	t.Run("readyz", func(t *testing.T) {
		r := newRouter(t, memory.NewStore())
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var body accountsdk.HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, "ok", body.Checks.Database)
	})

	t.Run("readyz with a broken store", func(t *testing.T) {
		r := newRouter(t, downStore{memory.NewStore()})
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		var body accountsdk.HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, "degraded", body.Status)
		require.Contains(t, body.Checks.Database, "connection refused")
	})
}

func TestPlayground(t *testing.T) {
	r := newRouter(t, memory.NewStore())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/playground", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Accounts")
}

type downStore struct{ *memory.Store }

func (downStore) Ping(context.Context) error { return errors.New("connection refused") }
