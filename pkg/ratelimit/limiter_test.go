package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_BurstThenRefuse(t *testing.T) {
	limiter := NewLimiter(3, 0.0, 0)

	for i := 0; i < 3; i++ {
		assert.True(t, limiter.Allow("client"), "request %d within burst", i+1)
	}
	assert.False(t, limiter.Allow("client"))
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	limiter := NewLimiter(1, 0.0, 0)

	assert.True(t, limiter.Allow("a"))
	assert.False(t, limiter.Allow("a"))
	assert.True(t, limiter.Allow("b"))
	assert.Equal(t, 2, limiter.ActiveKeys())
}

func TestLimiter_Refills(t *testing.T) {
	// 100 tokens per second makes the refill observable without a slow test.
	limiter := NewLimiter(1, 100.0, 0)

	require.True(t, limiter.Allow("client"))
	require.False(t, limiter.Allow("client"))

	time.Sleep(25 * time.Millisecond)
	assert.True(t, limiter.Allow("client"))
}

func TestMiddleware_RejectsWith429(t *testing.T) {
	handler := Middleware(1, 0.0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/devices/validate", nil)
	req.RemoteAddr = "203.0.113.10:51234"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// A different client still gets through.
	other := httptest.NewRequest(http.MethodPost, "/devices/validate", nil)
	other.RemoteAddr = "203.0.113.11:51234"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, other)
	assert.Equal(t, http.StatusOK, rec.Code)
}
