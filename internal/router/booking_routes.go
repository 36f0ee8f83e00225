package router

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/peer-tutoring/internal/middleware"
)

// RegisterBookings mounts the booking ledger.  Role checks are left to
// the service so that tutors and admins get ROLE_FORBIDDEN in the body.
// Writes share one rate limit bucket per student.
func RegisterBookings(e *echo.Echo, d Deps) {
    limit := middleware.NewTokenBucket(d.RateLimit.Scoped("booking"), d.Redis, d.Log)

    g := e.Group("/v1/bookings", middleware.JWTAuth(d.JWTSecret))
    g.GET("", d.Bookings.List)
    g.POST("", d.Bookings.Book, limit)
    g.PUT("/:id", d.Bookings.Reschedule, limit)
    g.DELETE("/:id", d.Bookings.Cancel)
}
