package middleware

import (
	"context"
	"errors"
	"impactlab/internal/platform/logging"
	"impactlab/internal/platform/ratelimit"
	"net"
	"net/http"
)

// AttemptLimiter is satisfied by ratelimit.Limiter.
type AttemptLimiter interface {
	Allow(ctx context.Context, action, client string) error
}

// RateLimit throttles POSTs to an auth form per client IP. When the budget
// is spent, reject writes the response instead of next. If the limiter
// cannot be reached the request goes through.
func RateLimit(limiter AttemptLimiter, action string, logger logging.Logger, reject http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}
			err := limiter.Allow(r.Context(), action, clientIP(r))
			switch {
			case err == nil:
			case errors.Is(err, ratelimit.ErrRateLimited):
				logger.Warn(r.Context(), "auth attempts throttled", "action", action, "client", clientIP(r))
				reject(w, r)
				return
			default:
				logger.Error(r.Context(), "rate limiter unavailable, allowing request", "action", action, "error", err)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP strips the port from RemoteAddr. chi's RealIP has already
// replaced it with the forwarded address when there is one.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
