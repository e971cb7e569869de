package ratelimit

import (
	"context"
	"time"
)

// Limiter admits at most maxRequests calls per identifier per fixed window.
// Windows are created lazily on first use; the limits are supplied per call
// so one limiter can serve sources with different policies.
type Limiter interface {
	Allow(ctx context.Context, identifier string, maxRequests int, window time.Duration) (bool, error)
}
