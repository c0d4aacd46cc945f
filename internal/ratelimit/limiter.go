// Package ratelimit throttles the public, unauthenticated endpoints with a
// fixed window counter in redis.
package ratelimit

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"nbtbook/internal/platform/metrics"
)

// DefaultWindow is the counting window for the public endpoints.
const DefaultWindow = time.Minute

// Limiter counts requests per key in redis. A nil redis client disables
// limiting entirely; redis outages fail open so the public endpoints stay up
// when the cache is down.
type Limiter struct {
	client  *redis.Client
	limit   int
	window  time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Limiter)

func WithWindow(window time.Duration) Option {
	return func(l *Limiter) {
		if window > 0 {
			l.window = window
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) { l.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Limiter) { l.metrics = m }
}

func New(client *redis.Client, limit int, opts ...Option) *Limiter {
	l := &Limiter{
		client: client,
		limit:  limit,
		window: DefaultWindow,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow increments the key's window counter and reports whether the request
// is within the limit.
func (l *Limiter) Allow(ctx context.Context, key string) bool {
	if l.client == nil || l.limit <= 0 {
		return true
	}
	redisKey := "ratelimit:" + key

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		l.logger.WarnContext(ctx, "rate limiter unavailable, failing open",
			"error", err.Error(),
		)
		return true
	}
	return incr.Val() <= int64(l.limit)
}

// Middleware throttles by client IP. Denied requests get a JSON 429.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(r.Context(), clientIP(r)) {
			if l.metrics != nil {
				l.metrics.RateLimitedTotal.Inc()
			}
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "60")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate_limited","error_description":"Too many requests, slow down"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
