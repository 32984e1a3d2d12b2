package middleware

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Increments the window counter, arms its expiry on first hit and returns
// {count, remaining ttl in ms}.
var fixedWindowIncr = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {n, redis.call("PTTL", KEYS[1])}
`)

var errNoRedisClient = errors.New("rate limit: redis client not configured")

// RedisFixedWindowLimiter keeps one counter per client key in Redis so every
// gateway replica draws from the same budget.
type RedisFixedWindowLimiter struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

func NewRedisFixedWindowLimiter(client redis.UniversalClient, prefix string) *RedisFixedWindowLimiter {
	if prefix == "" {
		prefix = "rl"
	}
	return &RedisFixedWindowLimiter{client: client, prefix: prefix, now: time.Now}
}

func (l *RedisFixedWindowLimiter) key(client string) string {
	if client == "" {
		client = "unknown"
	}
	return l.prefix + ":" + client
}

func (l *RedisFixedWindowLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (RateDecision, error) {
	if l.client == nil {
		return RateDecision{RetryAfter: window}, errNoRedisClient
	}
	if window < time.Millisecond {
		window = time.Second
	}

	reply, err := fixedWindowIncr.Run(ctx, l.client, []string{l.key(key)}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return RateDecision{RetryAfter: window}, fmt.Errorf("rate limit script: %w", err)
	}
	if len(reply) != 2 {
		return RateDecision{RetryAfter: window}, fmt.Errorf("rate limit script: expected 2 values, got %d", len(reply))
	}

	count, ttl := reply[0], time.Duration(reply[1])*time.Millisecond
	if ttl <= 0 {
		ttl = window
	}
	d := RateDecision{
		Allowed:   count <= int64(limit),
		Remaining: int(max(int64(limit)-count, 0)),
		ResetAt:   l.now().Add(ttl),
	}
	if !d.Allowed {
		d.RetryAfter = ttl
	}
	return d, nil
}
