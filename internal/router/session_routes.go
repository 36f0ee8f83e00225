package router

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/peer-tutoring/internal/middleware"
    "github.com/iliyamo/peer-tutoring/internal/model"
)

// RegisterSessions mounts the session registry.  Reads are open to every
// role; the service narrows them by visibility.
func RegisterSessions(e *echo.Echo, d Deps) {
    g := e.Group("/v1", middleware.JWTAuth(d.JWTSecret))
    g.GET("/sessions", d.Sessions.ListMySessions)
    g.GET("/courses/:id/sessions", d.Sessions.ListCourseSessions)

    staff := middleware.RequireRole(model.RoleTutor, model.RoleAdmin)
    g.POST("/sessions", d.Sessions.CreateSession, staff)
    g.PUT("/sessions/:id", d.Sessions.UpdateSession, staff)
    g.PATCH("/sessions/:id", d.Sessions.UpdateSession, staff)
    g.DELETE("/sessions/:id", d.Sessions.DeleteSession, staff)
}
