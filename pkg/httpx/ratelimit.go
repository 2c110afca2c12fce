package httpx

import (
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/accounts/pkg/slogx"
	"golang.org/x/time/rate"
)

// RateLimit is a token bucket refilled with Requests tokens every Window
// and holding at most Burst.
type RateLimit struct {
	Requests int
	Window   time.Duration
	Burst    int
}

func (l RateLimit) perSecond() rate.Limit {
	return rate.Limit(float64(l.Requests) / l.Window.Seconds())
}

// Limits used by the accounts router. Each one can be overridden at
// startup with RATELIMIT_<NAME>_REQUESTS, RATELIMIT_<NAME>_WINDOW_SEC and
// RATELIMIT_<NAME>_BURST.
var (
	// StrictLimit guards login and sign up, per client address.
	StrictLimit = RateLimitFromEnv("STRICT", RateLimit{Requests: 5, Window: time.Minute, Burst: 5})

	// ModerateLimit covers every other GraphQL operation, per caller.
	ModerateLimit = RateLimitFromEnv("MODERATE", RateLimit{Requests: 20, Window: time.Minute, Burst: 20})

	// LenientLimit covers the health probes.
	LenientLimit = RateLimitFromEnv("LENIENT", RateLimit{Requests: 100, Window: time.Minute, Burst: 100})
)

// RateLimitFromEnv returns def with any positive RATELIMIT_<name>_* values
// applied. Malformed or non-positive values are ignored.
func RateLimitFromEnv(name string, def RateLimit) RateLimit {
	l := def
	prefix := "RATELIMIT_" + name + "_"
	if n, ok := positiveEnv(prefix + "REQUESTS"); ok {
		l.Requests = n
	}
	if n, ok := positiveEnv(prefix + "WINDOW_SEC"); ok {
		l.Window = time.Duration(n) * time.Second
	}
	if n, ok := positiveEnv(prefix + "BURST"); ok {
		l.Burst = n
	}
	return l
}

func positiveEnv(key string) (int, bool) {
	n, err := strconv.Atoi(os.Getenv(key))
	return n, err == nil && n > 0
}

// ClientIP returns the address a request came from. The first
// X-Forwarded-For hop wins, then X-Real-IP, then RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// callerKey buckets authenticated requests by user and anonymous ones by
// address.
func callerKey(r *http.Request) string {
	if id := UserIDFromContext(r.Context()); id != "" {
		return "user:" + id
	}
	return "ip:" + ClientIP(r)
}

const sweepEvery = 5 * time.Minute

// buckets holds one limiter per key. Buckets that have refilled completely
// are dropped on the next sweep.
type buckets struct {
	limit RateLimit

	mu    sync.Mutex
	byKey map[string]*rate.Limiter
	swept time.Time
}

func newBuckets(limit RateLimit) *buckets {
	return &buckets{limit: limit, byKey: make(map[string]*rate.Limiter), swept: time.Now()}
}

// take consumes a token for key. When the bucket is empty it reports how
// long until the next token.
func (b *buckets) take(key string, now time.Time) (bool, time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if now.Sub(b.swept) >= sweepEvery {
		for k, l := range b.byKey {
			if l.TokensAt(now) >= float64(b.limit.Burst) {
				delete(b.byKey, k)
			}
		}
		b.swept = now
	}

	l, ok := b.byKey[key]
	if !ok {
		l = rate.NewLimiter(b.limit.perSecond(), b.limit.Burst)
		b.byKey[key] = l
	}

	if l.AllowN(now, 1) {
		return true, 0
	}
	res := l.ReserveN(now, 1)
	wait := res.DelayFrom(now)
	res.CancelAt(now)
	return false, wait
}

// RateLimitMiddleware answers 429 once the bucket for key(r) is empty.
// Requests key cannot place are let through.
func RateLimitMiddleware(limit RateLimit, key func(*http.Request) string) Middleware {
	b := newBuckets(limit)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			if k == "" {
				slogx.FromContext(r.Context()).Warn("rate limit: no key for request")
				next.ServeHTTP(w, r)
				return
			}

			ok, wait := b.take(k, time.Now())
			if ok {
				next.ServeHTTP(w, r)
				return
			}

			retryAfter := max(int(wait.Seconds()), 1)
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit.Requests))
			w.Header().Set("X-RateLimit-Window", limit.Window.String())

			slogx.FromContext(r.Context()).Warn("rate limit exceeded",
				"key", k,
				"path", r.URL.Path,
				"retry_after", retryAfter,
			)

			WriteJSON(w, http.StatusTooManyRequests, map[string]string{
				"error":             "rate_limit_exceeded",
				"error_description": "Too many requests. Please try again later.",
			})
		})
	}
}

// RateLimitByIP limits per client address.
func RateLimitByIP(limit RateLimit) Middleware {
	return RateLimitMiddleware(limit, ClientIP)
}

// RateLimitByCaller limits per authenticated user, or per address for
// anonymous callers.
func RateLimitByCaller(limit RateLimit) Middleware {
	return RateLimitMiddleware(limit, callerKey)
}

// RateLimitTiered routes each request to the limiter named by classify.
// Requests whose tier has no entry in tiers go through fallback. Every tier
// keeps its own buckets, so a client exhausting one tier can still use the
// others.
func RateLimitTiered(classify func(*http.Request) string, fallback Middleware, tiers map[string]Middleware) Middleware {
	return func(next http.Handler) http.Handler {
		def := fallback(next)
		wrapped := make(map[string]http.Handler, len(tiers))
		for name, mw := range tiers {
			wrapped[name] = mw(next)
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if h, ok := wrapped[classify(r)]; ok {
				h.ServeHTTP(w, r)
				return
			}
			def.ServeHTTP(w, r)
		})
	}
}
