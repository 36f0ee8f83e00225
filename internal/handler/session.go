package handler

import (
    "context"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/peer-tutoring/internal/middleware"
    "github.com/iliyamo/peer-tutoring/internal/model"
    "github.com/iliyamo/peer-tutoring/internal/service"
)

// SessionHandler serves the session registry.
type SessionHandler struct {
    Sessions *service.SessionService
    Log      *zap.Logger
}

func NewSessionHandler(s *service.SessionService, log *zap.Logger) *SessionHandler {
    if s == nil {
        panic("nil session service passed to NewSessionHandler")
    }
    return &SessionHandler{Sessions: s, Log: log}
}

type createSessionReq struct {
    CourseID   uint64 `json:"course_id"`
    TutorID    uint64 `json:"tutor_id"`
    Title      string `json:"title"`
    StartTime  string `json:"start_time"`
    EndTime    string `json:"end_time"`
    Link       string `json:"link"`
    Type       string `json:"session_type"`
    AssignMode string `json:"assign_mode"`
}

type updateSessionReq struct {
    Title       *string `json:"title"`
    StartTime   *string `json:"start_time"`
    EndTime     *string `json:"end_time"`
    ClearWindow bool    `json:"clear_window"`
    Link        *string `json:"link"`
    Type        *string `json:"session_type"`
    AssignMode  *string `json:"assign_mode"`
}

// timeLayouts are the accepted window formats, most specific first.
// Values without a zone are read as UTC.
var timeLayouts = []string{
    time.RFC3339,
    "2006-01-02T15:04:05",
    "2006-01-02T15:04",
    "2006-01-02 15:04:05",
    "2006-01-02 15:04",
}

// parseWhen parses an optional timestamp; blank input yields nil.
func parseWhen(raw string) (*time.Time, bool) {
    raw = strings.TrimSpace(raw)
    if raw == "" {
        return nil, true
    }
    for _, layout := range timeLayouts {
        if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
            t = t.UTC()
            return &t, true
        }
    }
    return nil, false
}

// CreateSession: POST /v1/sessions.
func (h *SessionHandler) CreateSession(c echo.Context) error {
    var req createSessionReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    if req.CourseID == 0 {
        return badRequest(c, "course_id required")
    }
    start, ok1 := parseWhen(req.StartTime)
    end, ok2 := parseWhen(req.EndTime)
    if !ok1 || !ok2 {
        return badRequest(c, "start_time/end_time must be RFC3339")
    }
    in := service.CreateSessionInput{
        CourseID:  req.CourseID,
        TutorID:   req.TutorID,
        Title:     req.Title,
        StartTime: start,
        EndTime:   end,
        Link:      req.Link,
    }
    if req.Type != "" {
        t, ok := model.ParseSessionType(req.Type)
        if !ok {
            return badRequest(c, "unknown session_type")
        }
        in.Type = t
    }
    mode, ok := model.ParseAssignMode(req.AssignMode)
    if !ok {
        return badRequest(c, "unknown assign_mode")
    }
    in.AssignMode = mode

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    s, err := h.Sessions.CreateSession(ctx, middleware.PrincipalFrom(c), in)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusCreated, s)
}

// UpdateSession: PUT/PATCH /v1/sessions/:id.
func (h *SessionHandler) UpdateSession(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return badRequest(c, "invalid session id")
    }
    var req updateSessionReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    patch := model.SessionPatch{Title: req.Title, Link: req.Link, ClearWindow: req.ClearWindow}
    if req.StartTime != nil {
        t, ok := parseWhen(*req.StartTime)
        if !ok || t == nil {
            return badRequest(c, "invalid start_time")
        }
        patch.StartTime = t
    }
    if req.EndTime != nil {
        t, ok := parseWhen(*req.EndTime)
        if !ok || t == nil {
            return badRequest(c, "invalid end_time")
        }
        patch.EndTime = t
    }
    if req.Type != nil {
        t, ok := model.ParseSessionType(*req.Type)
        if !ok {
            return badRequest(c, "unknown session_type")
        }
        patch.Type = &t
    }
    if req.AssignMode != nil {
        m, ok := model.ParseAssignMode(*req.AssignMode)
        if !ok {
            return badRequest(c, "unknown assign_mode")
        }
        patch.AssignMode = &m
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    s, err := h.Sessions.UpdateSession(ctx, middleware.PrincipalFrom(c), id, patch)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, s)
}

// DeleteSession: DELETE /v1/sessions/:id.
func (h *SessionHandler) DeleteSession(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return badRequest(c, "invalid session id")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    if err := h.Sessions.DeleteSession(ctx, middleware.PrincipalFrom(c), id); err != nil {
        return writeError(c, h.Log, err)
    }
    return c.NoContent(http.StatusNoContent)
}

// ListCourseSessions: GET /v1/courses/:id/sessions?view=all|booked|available.
func (h *SessionHandler) ListCourseSessions(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return badRequest(c, "invalid course id")
    }
    filter, ok := model.ParseSessionFilter(c.QueryParam("view"))
    if !ok {
        return badRequest(c, "view must be all, booked or available")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    views, err := h.Sessions.ListSessions(ctx, middleware.PrincipalFrom(c), id, filter)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": views})
}

// ListMySessions: GET /v1/sessions.
func (h *SessionHandler) ListMySessions(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    views, err := h.Sessions.ListMySessions(ctx, middleware.PrincipalFrom(c))
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": views})
}
