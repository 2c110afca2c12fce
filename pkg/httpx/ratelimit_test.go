package httpx_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aussiebroadwan/accounts/pkg/httpx"
	"github.com/aussiebroadwan/accounts/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

// hit sends one request from addr, authenticated as userID when set.
func hit(h http.Handler, addr, userID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/graphql", nil)
	req.RemoteAddr = addr + ":41234"
	if userID != "" {
		claims := jwtx.NewUserClaims(userID, "", "", time.Minute, "accounts", time.Now())
		req = req.WithContext(httpx.ContextWithClaims(context.Background(), claims))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"remote addr", nil, "192.0.2.10"},
		{"first forwarded hop", map[string]string{"X-Forwarded-For": "203.0.113.1, 198.51.100.7"}, "203.0.113.1"},
		{"real ip", map[string]string{"X-Real-IP": " 203.0.113.9 "}, "203.0.113.9"},
		{"empty forwarded hop", map[string]string{"X-Forwarded-For": " ,198.51.100.7", "X-Real-IP": "203.0.113.9"}, "203.0.113.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "192.0.2.10:5555"
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			require.Equal(t, tt.want, httpx.ClientIP(req))
		})
	}
}

func TestRateLimitByIP(t *testing.T) {
	h := httpx.RateLimitByIP(httpx.RateLimit{Requests: 2, Window: time.Minute, Burst: 2})(okHandler)

	for i := range 2 {
		require.Equal(t, http.StatusOK, hit(h, "192.0.2.1", "").Code, "request %d", i+1)
	}

	rec := hit(h, "192.0.2.1", "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
	require.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	require.Equal(t, "1m0s", rec.Header().Get("X-RateLimit-Window"))
	require.Contains(t, rec.Body.String(), "rate_limit_exceeded")

	// Another address has its own bucket.
	require.Equal(t, http.StatusOK, hit(h, "192.0.2.2", "").Code)
}

func TestRateLimitByCaller(t *testing.T) {
	h := httpx.RateLimitByCaller(httpx.RateLimit{Requests: 1, Window: time.Minute, Burst: 1})(okHandler)

	require.Equal(t, http.StatusOK, hit(h, "192.0.2.1", "user-1").Code)
	require.Equal(t, http.StatusTooManyRequests, hit(h, "192.0.2.1", "user-1").Code)

	// A user's budget follows them across addresses.
	require.Equal(t, http.StatusTooManyRequests, hit(h, "192.0.2.99", "user-1").Code)

	// Other users and anonymous callers behind the same address are separate.
	require.Equal(t, http.StatusOK, hit(h, "192.0.2.1", "user-2").Code)
	require.Equal(t, http.StatusOK, hit(h, "192.0.2.1", "").Code)
	require.Equal(t, http.StatusTooManyRequests, hit(h, "192.0.2.1", "").Code)
}

func TestRateLimitWithoutKeyPassesThrough(t *testing.T) {
	noKey := func(*http.Request) string { return "" }
	h := httpx.RateLimitMiddleware(httpx.RateLimit{Requests: 1, Window: time.Minute, Burst: 1}, noKey)(okHandler)

	for range 3 {
		require.Equal(t, http.StatusOK, hit(h, "192.0.2.1", "").Code)
	}
}

func TestRateLimitTiered(t *testing.T) {
	strict := httpx.RateLimitByIP(httpx.RateLimit{Requests: 1, Window: time.Minute, Burst: 1})
	loose := httpx.RateLimitByIP(httpx.RateLimit{Requests: 100, Window: time.Minute, Burst: 100})

	classify := func(r *http.Request) string { return r.URL.Query().Get("tier") }
	h := httpx.RateLimitTiered(classify, loose, map[string]httpx.Middleware{"strict": strict})(okHandler)

	do := func(tier string) int {
		req := httptest.NewRequest(http.MethodPost, "/graphql?tier="+tier, nil)
		req.RemoteAddr = "192.0.2.1:12345"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusOK, do("strict"))
	require.Equal(t, http.StatusTooManyRequests, do("strict"))

	// The fallback tier has its own buckets.
	for range 5 {
		require.Equal(t, http.StatusOK, do(""))
	}
	require.Equal(t, http.StatusOK, do("unknown"))
}

func TestRateLimitFromEnv(t *testing.T) {
	def := httpx.RateLimit{Requests: 5, Window: time.Minute, Burst: 5}

	t.Run("defaults", func(t *testing.T) {
		require.Equal(t, def, httpx.RateLimitFromEnv("STRICT_TEST", def))
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("RATELIMIT_STRICT_TEST_REQUESTS", "1000")
		t.Setenv("RATELIMIT_STRICT_TEST_WINDOW_SEC", "30")
		t.Setenv("RATELIMIT_STRICT_TEST_BURST", "1000")

		got := httpx.RateLimitFromEnv("STRICT_TEST", def)
		require.Equal(t, httpx.RateLimit{Requests: 1000, Window: 30 * time.Second, Burst: 1000}, got)
	})

	t.Run("ignores bad values", func(t *testing.T) {
		t.Setenv("RATELIMIT_STRICT_TEST_REQUESTS", "lots")
		t.Setenv("RATELIMIT_STRICT_TEST_WINDOW_SEC", "-10")
		t.Setenv("RATELIMIT_STRICT_TEST_BURST", "0")

		require.Equal(t, def, httpx.RateLimitFromEnv("STRICT_TEST", def))
	})
}

func BenchmarkRateLimitManyAddresses(b *testing.B) {
	h := httpx.RateLimitByIP(httpx.RateLimit{Requests: 1_000_000, Window: time.Minute, Burst: 1000})(okHandler)

	for i := 0; b.Loop(); i++ {
		hit(h, fmt.Sprintf("10.0.%d.%d", i%255, (i/255)%255), "")
	}
}
