package slogx_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aussiebroadwan/accounts/pkg/slogx"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()

	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := slogx.New(slogx.Config{
		Service: "accounts",
		Version: "test",
		Env:     "test",
		Level:   "warn",
		Output:  &buf,
	})

	logger.Info("dropped")
	logger.Warn("kept", "k", "v")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	require.Equal(t, "kept", lines[0]["msg"])
	require.Equal(t, "accounts", lines[0]["service"])
	require.Equal(t, "v", lines[0]["k"])
}

func TestNewText(t *testing.T) {
	var buf bytes.Buffer
	logger := slogx.New(slogx.Config{Service: "accounts", Format: "text", Output: &buf})

	logger.Info("hello")
	require.Contains(t, buf.String(), "msg=hello")
	require.Contains(t, buf.String(), "service=accounts")
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	require.NotNil(t, slogx.FromContext(context.Background()))
}

func TestWithUserID(t *testing.T) {
	var buf bytes.Buffer
	logger := slogx.New(slogx.Config{Service: "accounts", Output: &buf})

	ctx := slogx.WithContext(context.Background(), logger)
	ctx = slogx.WithUserID(ctx, "01J9ZUSER")
	slogx.FromContext(ctx).Info("did a thing")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	require.Equal(t, "01J9ZUSER", lines[0]["user_id"])
}

func TestHTTPMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := slogx.New(slogx.Config{Service: "accounts", Output: &buf})

	var sawLogger bool
	h := slogx.HTTPMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		slogx.FromContext(r.Context()).Info("inside")
		sawLogger = true
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/livez", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.True(t, sawLogger)
	require.Equal(t, http.StatusTeapot, rec.Code)
	require.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	require.Equal(t, "req-123", lines[0]["req_id"])
	require.Equal(t, "http_request", lines[1]["msg"])
	require.EqualValues(t, http.StatusTeapot, lines[1]["status"])
	require.Equal(t, "/livez", lines[1]["path"])
}
