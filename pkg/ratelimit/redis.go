package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// The expiry is (re)applied whenever the key has none so a crash between
// INCR and PEXPIRE can never leave a counter that lives forever.
const fixedWindowScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 or redis.call("PTTL", KEYS[1]) < 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`

const redisKeyPrefix = "ratelimit:"

// RedisFixedWindow shares fixed windows across service instances. Redis
// expires the keys, so no sweep is needed.
type RedisFixedWindow struct {
	client *redis.Client
	script *redis.Script
}

func NewRedisFixedWindow(client *redis.Client) *RedisFixedWindow {
	if client == nil {
		return nil
	}
	return &RedisFixedWindow{
		client: client,
		script: redis.NewScript(fixedWindowScript),
	}
}

func (l *RedisFixedWindow) Allow(ctx context.Context, identifier string, maxRequests int, windowSize time.Duration) (bool, error) {
	if l == nil || l.client == nil {
		return false, errors.New("rate limiter not configured")
	}
	if identifier == "" {
		return false, errors.New("rate limiter identifier is empty")
	}
	if maxRequests <= 0 || windowSize <= 0 {
		return false, nil
	}

	count, err := l.script.Run(ctx, l.client, []string{redisKeyPrefix + identifier}, windowSize.Milliseconds()).Int64()
	if err != nil {
		return false, err
	}
	return count <= int64(maxRequests), nil
}
