package middleware

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/peer-tutoring/internal/model"
)

// RequireRole aborts with 403 unless the principal stored by JWTAuth has
// one of roles.  It only gates route groups; ownership is decided by the
// services.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
    allowed := make(map[model.Role]bool, len(roles))
    for _, r := range roles {
        allowed[r] = true
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if !allowed[PrincipalFrom(c).Role] {
                return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden", "code": "ROLE_FORBIDDEN"})
            }
            return next(c)
        }
    }
}
