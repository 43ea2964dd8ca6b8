package redis

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const rateLimitScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return current
`

const rateLimitTimeout = 500 * time.Millisecond

type evaler interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// RateLimiter is a fixed-window counter per key. It fails open when Redis
// is unreachable.
type RateLimiter struct {
	client evaler
	window time.Duration
	max    int
	prefix string
	log    zerolog.Logger
}

func NewRateLimiter(client *redis.Client, window time.Duration, max int, log zerolog.Logger) *RateLimiter {
	if window <= 0 {
		window = time.Minute
	}
	if max <= 0 {
		max = 1
	}
	l := &RateLimiter{
		window: window,
		max:    max,
		prefix: "auth:rl:",
		log:    log,
	}
	if client != nil {
		l.client = client
	}
	return l
}

func (l *RateLimiter) Allow(ctx context.Context, key string) bool {
	if l == nil || l.client == nil {
		return true
	}
	normalized := strings.ToLower(strings.TrimSpace(key))
	if normalized == "" {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, rateLimitTimeout)
	defer cancel()

	seconds := int(l.window.Seconds())
	if seconds <= 0 {
		seconds = 60
	}
	count, err := l.client.Eval(ctx, rateLimitScript, []string{l.prefix + normalized}, seconds).Int()
	if err != nil {
		l.log.Warn().Err(err).Str("key", normalized).Msg("rate limiter unavailable, allowing request")
		return true
	}
	return count <= l.max
}
