package router

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/peer-tutoring/internal/middleware"
    "github.com/iliyamo/peer-tutoring/internal/model"
)

// RegisterCatalog mounts the public discovery routes (cached in Redis)
// and the authenticated course and enrollment routes.
func RegisterCatalog(e *echo.Echo, d Deps) {
    cache := middleware.NewRedisCache(d.Cache, d.Redis)
    pub := e.Group("/v1/discovery", cache)
    pub.GET("", d.Catalog.Discovery)
    pub.GET("/tutors/:id", d.Catalog.TutorDetail)

    g := e.Group("/v1", middleware.JWTAuth(d.JWTSecret))
    g.GET("/courses", d.Catalog.ListMyCourses)
    g.GET("/courses/available", d.Catalog.ListAvailable)
    g.GET("/courses/:id", d.Catalog.CourseDetail)

    staff := middleware.RequireRole(model.RoleTutor, model.RoleAdmin)
    g.POST("/courses", d.Catalog.CreateCourse, staff)
    g.PUT("/courses/:id", d.Catalog.UpdateCourse, staff)
    g.PATCH("/courses/:id", d.Catalog.UpdateCourse, staff)

    g.POST("/enrollments", d.Catalog.Enroll, middleware.RequireRole(model.RoleStudent))
}
