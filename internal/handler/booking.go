package handler

import (
    "context"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/peer-tutoring/internal/middleware"
    "github.com/iliyamo/peer-tutoring/internal/service"
)

// BookingHandler groups the student booking endpoints.  The service
// decides ownership; the handler only parses and maps errors.
type BookingHandler struct {
    Bookings *service.BookingService
    Log      *zap.Logger
}

func NewBookingHandler(s *service.BookingService, log *zap.Logger) *BookingHandler {
    if s == nil {
        panic("nil booking service passed to NewBookingHandler")
    }
    return &BookingHandler{Bookings: s, Log: log}
}

type bookReq struct {
    SessionID uint64 `json:"session_id"`
}

// Book handles POST /v1/bookings.
func (h *BookingHandler) Book(c echo.Context) error {
    var req bookReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    if req.SessionID == 0 {
        return badRequest(c, "session_id required")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    b, err := h.Bookings.Book(ctx, middleware.PrincipalFrom(c), req.SessionID)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusCreated, b)
}

// Reschedule handles PUT /v1/bookings/:id with {"session_id": new}.
func (h *BookingHandler) Reschedule(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return badRequest(c, "invalid booking id")
    }
    var req bookReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    if req.SessionID == 0 {
        return badRequest(c, "session_id required")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    b, err := h.Bookings.Reschedule(ctx, middleware.PrincipalFrom(c), id, req.SessionID)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, b)
}

// Cancel handles DELETE /v1/bookings/:id.
func (h *BookingHandler) Cancel(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return badRequest(c, "invalid booking id")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    if err := h.Bookings.Cancel(ctx, middleware.PrincipalFrom(c), id); err != nil {
        return writeError(c, h.Log, err)
    }
    return c.NoContent(http.StatusNoContent)
}

// List handles GET /v1/bookings.
func (h *BookingHandler) List(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    items, err := h.Bookings.ListByStudent(ctx, middleware.PrincipalFrom(c))
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}
