package middleware

import (
    "bytes"
    "context"
    "crypto/sha1"
    "encoding/hex"
    "encoding/json"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/peer-tutoring/internal/config"
)

const defaultCacheTTL = 30 * time.Second

// recorder tees the response into a buffer.  Once more than limit bytes
// have been written the copy is dropped and overflow is set.
type recorder struct {
    http.ResponseWriter
    status   int
    limit    int
    body     bytes.Buffer
    overflow bool
}

func (r *recorder) WriteHeader(code int) {
    r.status = code
    r.ResponseWriter.WriteHeader(code)
}

func (r *recorder) Write(b []byte) (int, error) {
    if !r.overflow {
        if r.limit > 0 && r.body.Len()+len(b) > r.limit {
            r.overflow = true
            r.body.Reset()
        } else {
            r.body.Write(b)
        }
    }
    return r.ResponseWriter.Write(b)
}

// cacheKeyFrom hashes method, route pattern and raw query under the
// configured prefix.  Responses do not vary by caller, so identity is not
// part of the key.
func cacheKeyFrom(cfg config.CacheConfig, c echo.Context) string {
    r := c.Request()
    sum := sha1.Sum([]byte(r.Method + "\n" + c.Path() + "\n" + r.URL.RawQuery))
    return cfg.Prefix + ":" + hex.EncodeToString(sum[:])
}

type cachedResponse struct {
    Status int         `json:"s"`
    Header http.Header `json:"h"`
    Body   []byte      `json:"b"`
}

func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
    return json.Marshal(cachedResponse{Status: status, Header: header, Body: body})
}

func decodePayload(bs []byte) (int, http.Header, []byte, bool) {
    var cr cachedResponse
    if err := json.Unmarshal(bs, &cr); err != nil || cr.Status == 0 {
        return 0, nil, nil, false
    }
    if cr.Header == nil {
        cr.Header = http.Header{}
    }
    return cr.Status, cr.Header, cr.Body, true
}

// replay writes a cached entry.  Content-Length is left to net/http.
func replay(c echo.Context, status int, hdr http.Header, body []byte) error {
    out := c.Response().Header()
    for k, vals := range hdr {
        if http.CanonicalHeaderKey(k) == echo.HeaderContentLength {
            continue
        }
        out[k] = append([]string(nil), vals...)
    }
    out.Set("X-Cache", "HIT")
    c.Response().WriteHeader(status)
    _, err := c.Response().Write(body)
    return err
}

// NewRedisCache caches 200 responses of the public discovery routes in
// Redis, headers included.  Hits are answered without reaching the handler
// and carry X-Cache: HIT.  Bodies over MaxBodyBytes are never stored.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return passThrough
    }
    ttl := cfg.TTL
    if ttl <= 0 {
        ttl = defaultCacheTTL
    }

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if !cfg.Methods[strings.ToUpper(c.Request().Method)] {
                return next(c)
            }
            key := cacheKeyFrom(cfg, c)

            if bs, err := rdb.Get(c.Request().Context(), key).Bytes(); err == nil {
                if status, hdr, body, ok := decodePayload(bs); ok {
                    return replay(c, status, hdr, body)
                }
            }

            rec := &recorder{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
            c.Response().Writer = rec
            c.Response().Header().Set("X-Cache", "MISS")
            if err := next(c); err != nil {
                return err
            }
            if rec.status != http.StatusOK || rec.overflow {
                return nil
            }

            hdr := c.Response().Header().Clone()
            hdr.Del("X-Cache")
            if payload, err := encodePayload(rec.status, hdr, rec.body.Bytes()); err == nil {
                _ = rdb.SetEx(context.Background(), key, payload, ttl).Err()
            }
            return nil
        }
    }
}
