// Package gateway fronts rate-limited third-party lookups with a TTL cache.
// A lookup is served from cache when possible; otherwise it is admitted by
// the per-source rate limiter, fetched once and cached.
package gateway

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"stagebook/pkg/cache"
	apperrors "stagebook/pkg/errors"
	"stagebook/pkg/logger"
	"stagebook/pkg/metrics"
	"stagebook/pkg/ratelimit"
)

const (
	DefaultMaxRequests = 60
	DefaultWindow      = time.Minute
	DefaultTTL         = 5 * time.Minute

	// DefaultFlightTimeout bounds a shared upstream call, which no longer
	// follows any single caller's context.
	DefaultFlightTimeout = 10 * time.Second

	keySeparator = "|"
)

// Policy is the per-source admission and caching budget.
type Policy struct {
	MaxRequests int
	Window      time.Duration
	TTL         time.Duration
}

func DefaultPolicy() Policy {
	return Policy{MaxRequests: DefaultMaxRequests, Window: DefaultWindow, TTL: DefaultTTL}
}

// FetchFunc performs the upstream call. Returning an *apperrors.AppError
// with CodeNotFound passes through unchanged; any other error is reported
// as an upstream failure.
type FetchFunc[V any] func(ctx context.Context) (V, error)

type Gateway[V any] struct {
	cache    *cache.TTLCache[string, V]
	limiter  ratelimit.Limiter
	group    singleflight.Group
	policies map[string]Policy
	fallback Policy
	timeout  time.Duration
	log      *logger.Logger
	metrics  *metrics.Metrics
}

func New[V any](c *cache.TTLCache[string, V], limiter ratelimit.Limiter, log *logger.Logger, m *metrics.Metrics) *Gateway[V] {
	if c == nil {
		c = cache.NewTTLCache[string, V]()
	}
	return &Gateway[V]{
		cache:    c,
		limiter:  limiter,
		policies: make(map[string]Policy),
		fallback: DefaultPolicy(),
		timeout:  DefaultFlightTimeout,
		log:      log.Component("gateway"),
		metrics:  m,
	}
}

// WithPolicy sets the policy for one source. Call before serving lookups.
func (g *Gateway[V]) WithPolicy(sourceID string, p Policy) *Gateway[V] {
	g.policies[sourceID] = p
	return g
}

// WithFlightTimeout bounds each shared upstream call.
func (g *Gateway[V]) WithFlightTimeout(d time.Duration) *Gateway[V] {
	if d > 0 {
		g.timeout = d
	}
	return g
}

func (g *Gateway[V]) Policy(sourceID string) Policy {
	if p, ok := g.policies[sourceID]; ok {
		return p
	}
	return g.fallback
}

func CacheKey(sourceID, key string) string {
	return sourceID + keySeparator + key
}

func (g *Gateway[V]) Lookup(ctx context.Context, sourceID, key string, fetch FetchFunc[V]) (V, error) {
	cacheKey := CacheKey(sourceID, key)
	if v, ok := g.cache.Get(cacheKey); ok {
		g.metrics.Gateway(sourceID, metrics.GatewayHit)
		return v, nil
	}

	// The flight is shared by every caller of the key, so it runs detached
	// from any one of them; each caller only stops waiting on its own ctx.
	ch := g.group.DoChan(cacheKey, func() (any, error) {
		// another flight may have filled the cache while this one queued
		if v, ok := g.cache.Get(cacheKey); ok {
			g.metrics.Gateway(sourceID, metrics.GatewayHit)
			return v, nil
		}
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.timeout)
		defer cancel()
		return g.miss(flightCtx, sourceID, cacheKey, fetch)
	})

	var zero V
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(V), nil
	}
}

func (g *Gateway[V]) miss(ctx context.Context, sourceID, cacheKey string, fetch FetchFunc[V]) (V, error) {
	var zero V
	policy := g.Policy(sourceID)
	g.metrics.Gateway(sourceID, metrics.GatewayMiss)

	allowed, err := g.limiter.Allow(ctx, "gateway:"+sourceID, policy.MaxRequests, policy.Window)
	if err != nil {
		g.log.Error("Rate limiter unavailable, admitting lookup", "source", sourceID, "error", err)
		allowed = true
	}
	if !allowed {
		g.metrics.Gateway(sourceID, metrics.GatewayRateLimited)
		g.log.Warn("Upstream lookup rate limited", "source", sourceID, "key", cacheKey)
		return zero, apperrors.RateLimited(sourceID)
	}

	v, err := fetch(ctx)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeNotFound) {
			return zero, err
		}
		g.metrics.Gateway(sourceID, metrics.GatewayUpstreamErr)
		g.log.Error("Upstream lookup failed", "source", sourceID, "key", cacheKey, "error", err)
		return zero, apperrors.Upstream(sourceID, err)
	}

	g.cache.Set(cacheKey, v, policy.TTL)
	return v, nil
}

func (g *Gateway[V]) Cache() *cache.TTLCache[string, V] {
	return g.cache
}
