package api

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/recipebook/recipebook-server/internal/ratelimit"
)

// RateLimiter is the keyed limiter guarding the auth endpoints.
type RateLimiter = ratelimit.KeyedRateLimiter

// NewRateLimiter creates a limiter allowing ratePerInterval requests per
// interval per client, with the given burst.
func NewRateLimiter(ratePerInterval int, interval time.Duration, burst int) *RateLimiter {
	return ratelimit.PerInterval(ratePerInterval, interval, burst)
}

// rateLimited is a huma middleware that limits requests by client IP.
// Returns 429 Too Many Requests when the limit is exceeded.
func (s *Server) rateLimited(ctx huma.Context, next func(huma.Context)) {
	key := clientIP(ctx)
	if !s.authRateLimiter.Allow(key) {
		s.logger.Warn("rate limit exceeded",
			"ip", key,
			"path", ctx.URL().Path,
		)
		_ = huma.WriteErr(s.api, ctx, http.StatusTooManyRequests, //nolint:errcheck // response already committed
			"Too many requests. Please try again later.")
		return
	}
	next(ctx)
}

// clientIP extracts the client IP from the request. chi's RealIP has
// already applied X-Forwarded-For and X-Real-IP to the remote address.
func clientIP(ctx huma.Context) string {
	if xff := ctx.Header("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	addr := ctx.RemoteAddr()
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
