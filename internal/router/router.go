// Package router wires handlers, authentication and the Redis-backed
// middleware onto an Echo instance.
package router

import (
    "database/sql"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "go.uber.org/zap"

    "github.com/iliyamo/peer-tutoring/internal/config"
    "github.com/iliyamo/peer-tutoring/internal/handler"
    "github.com/iliyamo/peer-tutoring/internal/middleware"
    "github.com/iliyamo/peer-tutoring/internal/model"
)

// Deps is everything the routes need.  DB and Redis may be nil; without
// Redis the rate limiter and the cache turn into pass-throughs.
type Deps struct {
    DB        *sql.DB
    Redis     *redis.Client
    JWTSecret string
    RateLimit config.RateLimitConfig
    Cache     config.CacheConfig
    Log       *zap.Logger

    Auth     *handler.AuthHandler
    Catalog  *handler.CatalogHandler
    Sessions *handler.SessionHandler
    Bookings *handler.BookingHandler
}

// Register mounts every route.
func Register(e *echo.Echo, d Deps) {
    e.GET("/healthz", handler.Health(d.DB))
    RegisterAuth(e, d)
    RegisterCatalog(e, d)
    RegisterSessions(e, d)
    RegisterBookings(e, d)
}

// RegisterAuth mounts /v1/auth (public, login and register rate limited)
// and the profile endpoints under /v1.
func RegisterAuth(e *echo.Echo, d Deps) {
    limit := middleware.NewTokenBucket(d.RateLimit.Scoped("auth"), d.Redis, d.Log)

    g := e.Group("/v1/auth")
    g.POST("/register", d.Auth.Register, limit)
    g.POST("/login", d.Auth.Login, limit)
    g.POST("/refresh", d.Auth.Refresh)
    // logout works with a refresh token alone; a bearer token widens it
    // to every token of the user
    g.POST("/logout", d.Auth.Logout, middleware.OptionalJWT(d.JWTSecret))

    auth := e.Group("/v1", middleware.JWTAuth(d.JWTSecret))
    auth.GET("/me", d.Auth.Me)
    auth.GET("/profile", d.Auth.Profile)
    auth.GET("/tutors", d.Auth.ListTutors)
    auth.GET("/users", d.Auth.ListUsers, middleware.RequireRole(model.RoleAdmin))
}
