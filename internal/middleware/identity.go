package middleware

// identity.go holds the helpers that move the authenticated principal in and
// out of the Echo context.

import (
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/peer-tutoring/internal/policy"
)

const principalKey = "principal"

// PrincipalFrom returns the caller stored by JWTAuth or OptionalJWT.  The
// zero Principal (anonymous) is returned when nothing was stored.
func PrincipalFrom(c echo.Context) policy.Principal {
    if p, ok := c.Get(principalKey).(policy.Principal); ok {
        return p
    }
    return policy.Principal{}
}

// userID renders the caller id for rate limit keys, "guest" when anonymous.
func userID(c echo.Context) string {
    p := PrincipalFrom(c)
    if !p.Authenticated() {
        return "guest"
    }
    return strconv.FormatUint(p.ID, 10)
}
