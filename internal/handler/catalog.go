package handler

import (
    "context"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/peer-tutoring/internal/middleware"
    "github.com/iliyamo/peer-tutoring/internal/model"
    "github.com/iliyamo/peer-tutoring/internal/service"
)

// CatalogHandler serves courses, enrollments and the public discovery
// endpoints.
type CatalogHandler struct {
    Catalog *service.CatalogService
    Log     *zap.Logger
}

func NewCatalogHandler(s *service.CatalogService, log *zap.Logger) *CatalogHandler {
    if s == nil {
        panic("nil catalog service passed to NewCatalogHandler")
    }
    return &CatalogHandler{Catalog: s, Log: log}
}

type createCourseReq struct {
    Code        string `json:"course_code"`
    Title       string `json:"title"`
    Description string `json:"description"`
    Status      string `json:"status"`
    TutorID     uint64 `json:"tutor_id"`
}

type updateCourseReq struct {
    Title       *string `json:"title"`
    Description *string `json:"description"`
    Status      *string `json:"status"`
}

type enrollReq struct {
    Code string `json:"course_code"`
}

// CreateCourse: POST /v1/courses.
func (h *CatalogHandler) CreateCourse(c echo.Context) error {
    var req createCourseReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    course, err := h.Catalog.CreateCourse(ctx, middleware.PrincipalFrom(c), service.CreateCourseInput{
        Code:        req.Code,
        Title:       req.Title,
        Description: req.Description,
        Status:      req.Status,
        TutorID:     req.TutorID,
    })
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusCreated, course)
}

// UpdateCourse: PUT/PATCH /v1/courses/:id.  Absent fields stay unchanged.
func (h *CatalogHandler) UpdateCourse(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return badRequest(c, "invalid course id")
    }
    var req updateCourseReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    patch := model.CoursePatch{Title: req.Title, Description: req.Description}
    if req.Status != nil {
        st, ok := model.ParseCourseStatus(*req.Status)
        if !ok {
            return badRequest(c, "unknown status")
        }
        patch.Status = &st
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    course, err := h.Catalog.UpdateCourse(ctx, middleware.PrincipalFrom(c), id, patch)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, course)
}

// Enroll: POST /v1/enrollments.
func (h *CatalogHandler) Enroll(c echo.Context) error {
    var req enrollReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    e, err := h.Catalog.Enroll(ctx, middleware.PrincipalFrom(c), req.Code)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusCreated, e)
}

// ListMyCourses: GET /v1/courses?user_id=.
func (h *CatalogHandler) ListMyCourses(c echo.Context) error {
    target, ok := queryID(c, "user_id")
    if !ok {
        return badRequest(c, "invalid user_id")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    courses, err := h.Catalog.ListMyCourses(ctx, middleware.PrincipalFrom(c), target)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": courses})
}

// ListAvailable: GET /v1/courses/available.
func (h *CatalogHandler) ListAvailable(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    courses, err := h.Catalog.ListAvailableCourses(ctx, middleware.PrincipalFrom(c))
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": courses})
}

// CourseDetail: GET /v1/courses/:id.
func (h *CatalogHandler) CourseDetail(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return badRequest(c, "invalid course id")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    d, err := h.Catalog.CourseDetail(ctx, middleware.PrincipalFrom(c), id)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, d)
}

// Discovery: GET /v1/discovery.  Public.
func (h *CatalogHandler) Discovery(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    courses, err := h.Catalog.ListDiscovery(ctx)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": courses})
}

// TutorDetail: GET /v1/discovery/tutors/:id.  Public.
func (h *CatalogHandler) TutorDetail(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return badRequest(c, "invalid tutor id")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    tp, err := h.Catalog.TutorDetail(ctx, id)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, tp)
}
