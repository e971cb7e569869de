package middleware

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"stagebook/pkg/auth"
	apperrors "stagebook/pkg/errors"
	"stagebook/pkg/logger"
	"stagebook/pkg/metrics"
	"stagebook/pkg/ratelimit"
)

type RateLimitPolicy struct {
	Scope       string
	MaxRequests int
	Window      time.Duration
}

// RateLimit throttles each authenticated principal (or client address when
// unauthenticated). Limiter errors fail open.
func RateLimit(limiter ratelimit.Limiter, policy RateLimitPolicy, log *logger.Logger, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller := callerIdentity(r)

			allowed, err := limiter.Allow(r.Context(), policy.Scope+":"+caller, policy.MaxRequests, policy.Window)
			if err != nil {
				log.Error("Rate limiter unavailable, allowing request",
					"request_id", RequestIDFromContext(r.Context()),
					"scope", policy.Scope,
					"error", err,
				)
				next.ServeHTTP(w, r)
				return
			}

			if !allowed {
				m.RateLimited(policy.Scope)
				log.Warn("Rate limit exceeded",
					"request_id", RequestIDFromContext(r.Context()),
					"caller", caller,
					"path", r.URL.Path,
				)
				w.Header().Set("Retry-After", strconv.Itoa(int(policy.Window.Seconds())))
				reject(w, log, apperrors.RateLimited(policy.Scope))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func callerIdentity(r *http.Request) string {
	if p, ok := auth.FromContext(r.Context()); ok {
		return p.ID
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
