package middleware

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/peer-tutoring/internal/model"
    "github.com/iliyamo/peer-tutoring/internal/policy"
    "github.com/iliyamo/peer-tutoring/internal/utils"
)

// JWTAuth validates a Bearer access token and stores the caller as a
// policy.Principal.  Requests without a valid token are answered with 401.
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            raw, ok := bearer(c)
            if !ok {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token", "code": "UNAUTHENTICATED"})
            }
            p, err := principalOf(secret, raw)
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token", "code": "UNAUTHENTICATED"})
            }
            c.Set(principalKey, p)
            return next(c)
        }
    }
}

// OptionalJWT is JWTAuth for public routes whose answer depends on who is
// asking.  A missing or bad token leaves the request anonymous.
func OptionalJWT(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if raw, ok := bearer(c); ok {
                if p, err := principalOf(secret, raw); err == nil {
                    c.Set(principalKey, p)
                }
            }
            return next(c)
        }
    }
}

func bearer(c echo.Context) (string, bool) {
    auth := c.Request().Header.Get("Authorization")
    if !strings.HasPrefix(auth, "Bearer ") {
        return "", false
    }
    raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
    return raw, raw != ""
}

func principalOf(secret, raw string) (policy.Principal, error) {
    claims, err := utils.ParseAccessToken(secret, raw)
    if err != nil {
        return policy.Principal{}, err
    }
    role := model.Role(claims.Role)
    if !role.Valid() {
        return policy.Principal{}, utils.ErrInvalidToken
    }
    return policy.Principal{ID: claims.UserID, Role: role}, nil
}
