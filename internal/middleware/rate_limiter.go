package middleware

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/prohmpiriya/auth-sentry/pkg/config"
	pkgredis "github.com/prohmpiriya/auth-sentry/pkg/redis"
	"github.com/prohmpiriya/auth-sentry/pkg/response"
	"github.com/prohmpiriya/auth-sentry/pkg/telemetry"
)

// fixedWindowScript implements an atomic fixed-window counter. The first
// request in a window sets the TTL, later requests only increment.
const fixedWindowScript = `
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2])

local count = redis.call("INCR", key)
if count == 1 then
    redis.call("EXPIRE", key, window)
end

if count > limit then
    return {0, 0}
end
return {1, limit - count}
`

// RateLimiter limits requests per client IP for a single endpoint.
// It counts in Redis when available so limits hold across replicas,
// and falls back to a local counter otherwise.
type RateLimiter struct {
	name   string
	limit  int
	window time.Duration
	redis  *pkgredis.Client

	mu      sync.Mutex
	local   map[string]*windowEntry
	lastGC  time.Time
}

type windowEntry struct {
	count   int
	resetAt time.Time
}

// NewRateLimiter creates a limiter for one endpoint. redisClient may be nil.
func NewRateLimiter(name string, limit int, window time.Duration, redisClient *pkgredis.Client) *RateLimiter {
	return &RateLimiter{
		name:   name,
		limit:  limit,
		window: window,
		redis:  redisClient,
		local:  make(map[string]*windowEntry),
		lastGC: time.Now(),
	}
}

// Allow reports whether the request from key is within the limit and
// how many requests remain in the current window.
func (rl *RateLimiter) Allow(c *gin.Context, key string) (bool, int) {
	if rl.redis != nil {
		allowed, remaining, err := rl.allowRedis(c, key)
		if err == nil {
			return allowed, remaining
		}
		// Fail open on Redis errors, counting locally instead
	}
	return rl.allowLocal(key)
}

func (rl *RateLimiter) allowRedis(c *gin.Context, key string) (bool, int, error) {
	redisKey := fmt.Sprintf("ratelimit:%s:%s", rl.name, key)
	windowSecs := int(rl.window.Seconds())

	result := rl.redis.EvalWithFallback(c.Request.Context(), "ratelimit_"+rl.name, fixedWindowScript,
		[]string{redisKey}, rl.limit, windowSecs)
	if result.Err() != nil {
		return false, 0, result.Err()
	}

	values, err := result.Slice()
	if err != nil {
		return false, 0, err
	}
	if len(values) < 2 {
		return false, 0, fmt.Errorf("unexpected result length: %d", len(values))
	}

	allowed := toInt64(values[0]) == 1
	remaining := int(toInt64(values[1]))
	return allowed, remaining, nil
}

func (rl *RateLimiter) allowLocal(key string) (bool, int) {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	// Drop expired entries occasionally to keep the map bounded
	if now.Sub(rl.lastGC) > rl.window {
		for k, e := range rl.local {
			if now.After(e.resetAt) {
				delete(rl.local, k)
			}
		}
		rl.lastGC = now
	}

	entry, ok := rl.local[key]
	if !ok || now.After(entry.resetAt) {
		entry = &windowEntry{resetAt: now.Add(rl.window)}
		rl.local[key] = entry
	}

	entry.count++
	if entry.count > rl.limit {
		return false, 0
	}
	return true, rl.limit - entry.count
}

func toInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	case string:
		if i, err := strconv.ParseInt(n, 10, 64); err == nil {
			return i
		}
	}
	return 0
}

// Middleware returns the gin handler enforcing this limiter per client IP.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := telemetry.StartSpan(c.Request.Context(), "middleware.rate_limiter")
		defer span.End()
		c.Request = c.Request.WithContext(ctx)

		clientIP := c.ClientIP()
		span.SetAttributes(
			attribute.String("client_ip", clientIP),
			attribute.String("limiter", rl.name),
		)

		allowed, remaining := rl.Allow(c, clientIP)
		span.SetAttributes(attribute.Bool("allowed", allowed))

		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			span.SetStatus(codes.Error, "rate limit exceeded")
			retryAfter := int(rl.window.Seconds())
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			response.TooManyRequests(c, "Too many requests. Please try again later.")
			c.Abort()
			return
		}

		span.SetStatus(codes.Ok, "")
		c.Next()
	}
}

// EndpointLimiters bundles the per-endpoint limiters built from config.
type EndpointLimiters struct {
	Register gin.HandlerFunc
	Login    gin.HandlerFunc
	Resend   gin.HandlerFunc
}

// NewEndpointLimiters builds the register/login/resend limiters. When rate
// limiting is disabled every handler is a no-op passthrough.
func NewEndpointLimiters(cfg *config.RateLimitConfig, redisClient *pkgredis.Client) *EndpointLimiters {
	if !cfg.Enabled {
		noop := func(c *gin.Context) { c.Next() }
		return &EndpointLimiters{Register: noop, Login: noop, Resend: noop}
	}

	window := cfg.Window
	if window <= 0 {
		window = time.Minute
	}

	return &EndpointLimiters{
		Register: NewRateLimiter("register", cfg.RegisterPerMin, window, redisClient).Middleware(),
		Login:    NewRateLimiter("login", cfg.LoginPerMin, window, redisClient).Middleware(),
		Resend:   NewRateLimiter("resend", cfg.ResendPerMin, window, redisClient).Middleware(),
	}
}
