package middleware

import (
    "context"
    "errors"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "go.uber.org/zap"

    "github.com/iliyamo/peer-tutoring/internal/config"
)

// bucketScript refills the bucket stored at KEYS[1] in whole intervals and
// takes one token.  ARGV: now_ms, capacity, refill, interval_ms, ttl_s.
// Returns {allowed, remaining, retry_ms}.
var bucketScript = redis.NewScript(`
local cap, refill, every = tonumber(ARGV[2]), tonumber(ARGV[3]), tonumber(ARGV[4])
local now = tonumber(ARGV[1])
local st = redis.call('HMGET', KEYS[1], 'tokens', 'at')
local tokens, at = tonumber(st[1]) or cap, tonumber(st[2]) or now
if every > 0 and refill > 0 and now > at then
  local n = math.floor((now - at) / every)
  tokens = math.min(cap, tokens + n * refill)
  at = at + n * every
end
local ok, wait = 0, 0
if tokens > 0 then
  ok, tokens = 1, tokens - 1
else
  wait = math.max(0, every - (now - at))
end
redis.call('HSET', KEYS[1], 'tokens', tokens, 'at', at)
redis.call('EXPIRE', KEYS[1], tonumber(ARGV[5]))
return {ok, tokens, wait}
`)

var errBucketReply = errors.New("ratelimit: malformed script reply")

type bucket struct {
    cfg config.RateLimitConfig
    rdb *redis.Client
}

type verdict struct {
    allowed   bool
    remaining int64
    retry     time.Duration
}

func (b bucket) take(ctx context.Context, key string, now time.Time) (verdict, error) {
    out, err := bucketScript.Run(ctx, b.rdb, []string{key},
        now.UnixMilli(), b.cfg.Capacity, b.cfg.RefillTokens,
        b.cfg.RefillInterval.Milliseconds(), int64(b.cfg.TTL/time.Second)).Int64Slice()
    if err != nil {
        return verdict{}, err
    }
    if len(out) != 3 {
        return verdict{}, errBucketReply
    }
    return verdict{allowed: out[0] == 1, remaining: out[1], retry: time.Duration(out[2]) * time.Millisecond}, nil
}

// NewTokenBucket limits requests with a token bucket kept in Redis.  A
// disabled config or a nil client yields a pass-through; Redis failures
// let the request through.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, log *zap.Logger) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return passThrough
    }
    b := bucket{cfg: cfg, rdb: rdb}

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := buildRateKey(cfg, c)
            v, err := b.take(c.Request().Context(), key, time.Now())
            if err != nil {
                log.Warn("ratelimit unavailable", zap.String("key", key), zap.Error(err))
                return next(c)
            }

            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
            h.Set("X-RateLimit-Remaining", strconv.FormatInt(v.remaining, 10))
            if v.allowed {
                return next(c)
            }

            secs := retryAfterSeconds(v.retry)
            h.Set("Retry-After", strconv.Itoa(secs))
            log.Info("ratelimit block", zap.String("key", key), zap.Duration("retry", v.retry))
            return c.JSON(http.StatusTooManyRequests, echo.Map{
                "error":       "rate limit exceeded",
                "code":        "TOO_MANY_REQUESTS",
                "retry_after": secs,
            })
        }
    }
}

// retryAfterSeconds rounds up to whole seconds.
func retryAfterSeconds(d time.Duration) int {
    if d <= 0 {
        return 0
    }
    return int((d + time.Second - 1) / time.Second)
}

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

// buildRateKey composes prefix:part:value... according to KeyStrategy.
// The default strategy keys on ip, user and route.
func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
    ip := c.RealIP()
    if ip == "" {
        ip = "unknown"
    }
    uid := userID(c)
    route := c.Request().Method + " " + c.Path()

    parts := []string{cfg.Prefix}
    switch strings.ToLower(cfg.KeyStrategy) {
    case "ip":
        parts = append(parts, "ip", ip)
    case "user":
        parts = append(parts, "user", uid)
    case "ip_user":
        parts = append(parts, "ip", ip, "user", uid)
    case "user_route":
        parts = append(parts, "user", uid, "route", route)
    default:
        parts = append(parts, "ip", ip, "user", uid, "route", route)
    }
    return strings.Join(parts, ":")
}
