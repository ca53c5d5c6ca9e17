package ratelimit

import (
	"log/slog"
	"net"
	"net/http"
	"time"
)

// DefaultBucketTTL is how long an idle client keeps its bucket.
const DefaultBucketTTL = time.Hour

// Middleware returns a chi-compatible middleware enforcing a per-client
// limit. Clients are keyed by remote IP, so it should be mounted behind
// middleware.RealIP when the service sits behind a proxy. Rejected requests
// get a 429 with a Retry-After hint.
func Middleware(capacity int, refillRate float64) func(http.Handler) http.Handler {
	limiter := NewLimiter(capacity, refillRate, DefaultBucketTTL)
	retryAfter := "1"
	if refillRate > 0 && refillRate < 1 {
		retryAfter = "60"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientKey(r)
			if !limiter.Allow(key) {
				slog.Warn("request rate limited", "client", key, "path", r.URL.Path)
				w.Header().Set("Retry-After", retryAfter)
				http.Error(w, "too many requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
