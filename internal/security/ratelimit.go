package security

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

// FixedWindowLimiter is a per-key fixed-window rate limiter backed by
// Redis, shared across replicas. The statement endpoint is expensive
// (two balance queries plus a range scan), so it sits behind this.
type FixedWindowLimiter struct {
	Redis  *redis.Client
	Prefix string
	Limit  int
	Window time.Duration
}

// Allow reports whether key may proceed in the current window. Redis
// errors fail open: losing rate limiting is better than refusing reads.
func (l *FixedWindowLimiter) Allow(ctx context.Context, key string) bool {
	window := time.Now().Unix() / int64(l.Window.Seconds())
	redisKey := fmt.Sprintf("%s:%s:%d", l.Prefix, key, window)

	count, err := l.Redis.Incr(ctx, redisKey).Result()
	if err != nil {
		return true
	}
	if count == 1 {
		l.Redis.Expire(ctx, redisKey, l.Window)
	}
	return count <= int64(l.Limit)
}

// RateLimitMiddleware applies the limiter per client IP.
func RateLimitMiddleware(l *FixedWindowLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientIP(r)
			if key != "" && !l.Allow(r.Context(), key) {
				WriteJSONError(w, r, http.StatusTooManyRequests, "rate_limited")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return ""
	}
	return host
}
