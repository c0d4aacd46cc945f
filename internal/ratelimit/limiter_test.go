package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, limit int, opts ...Option) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, limit, opts...), mr
}

func TestAllowWithinLimit(t *testing.T) {
	limiter, _ := newTestLimiter(t, 3)
	ctx := context.Background()

	for range 3 {
		assert.True(t, limiter.Allow(ctx, "1.2.3.4"))
	}
	assert.False(t, limiter.Allow(ctx, "1.2.3.4"), "fourth request in the window is denied")
	assert.True(t, limiter.Allow(ctx, "5.6.7.8"), "other clients are unaffected")
}

func TestWindowExpiry(t *testing.T) {
	limiter, mr := newTestLimiter(t, 1, WithWindow(time.Minute))
	ctx := context.Background()

	require.True(t, limiter.Allow(ctx, "1.2.3.4"))
	require.False(t, limiter.Allow(ctx, "1.2.3.4"))

	mr.FastForward(61 * time.Second)
	assert.True(t, limiter.Allow(ctx, "1.2.3.4"), "counter resets after the window")
}

func TestFailsOpenWhenRedisDown(t *testing.T) {
	limiter, mr := newTestLimiter(t, 1)
	mr.Close()

	assert.True(t, limiter.Allow(context.Background(), "1.2.3.4"))
}

func TestNilClientDisablesLimiting(t *testing.T) {
	limiter := New(nil, 1)
	for range 10 {
		assert.True(t, limiter.Allow(context.Background(), "1.2.3.4"))
	}
}

func TestMiddleware(t *testing.T) {
	limiter, _ := newTestLimiter(t, 2)
	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func() int {
		req := httptest.NewRequest(http.MethodGet, "/validate/passport/AB123456", nil)
		req.RemoteAddr = "1.2.3.4:5678"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}

	assert.Equal(t, http.StatusOK, do())
	assert.Equal(t, http.StatusOK, do())
	assert.Equal(t, http.StatusTooManyRequests, do())
}
