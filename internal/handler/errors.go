package handler

import (
    "errors"
    "net/http"
    "strconv"
    "strings"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/peer-tutoring/internal/policy"
    "github.com/iliyamo/peer-tutoring/internal/repository"
    "github.com/iliyamo/peer-tutoring/internal/service"
)

// errorStatus lists the domain errors that map to a fixed status and code.
// Order matters only for errors that wrap each other.
var errorStatus = []struct {
    err    error
    status int
    code   string
}{
    {service.ErrInvalidInput, http.StatusBadRequest, "INVALID_INPUT"},
    {repository.ErrInvalidWindow, http.StatusBadRequest, "INVALID_WINDOW"},
    {repository.ErrTutorMismatch, http.StatusBadRequest, "TUTOR_MISMATCH"},
    {service.ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
    {service.ErrNotFoundOrForbidden, http.StatusForbidden, "NOT_FOUND_OR_FORBIDDEN"},
    {repository.ErrCourseNotFound, http.StatusNotFound, "COURSE_NOT_FOUND"},
    {repository.ErrUserNotFound, http.StatusNotFound, "USER_NOT_FOUND"},
    {repository.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
    {repository.ErrSessionTaken, http.StatusConflict, "SESSION_TAKEN"},
    {repository.ErrAlreadyEnrolled, http.StatusConflict, "ALREADY_ENROLLED"},
    {repository.ErrDuplicateCode, http.StatusConflict, "DUPLICATE_CODE"},
    {repository.ErrUsernameTaken, http.StatusConflict, "USERNAME_TAKEN"},
    {repository.ErrCourseClosed, http.StatusConflict, "COURSE_CLOSED"},
    {repository.ErrAutoAssigned, http.StatusConflict, "AUTO_ASSIGNED"},
    {repository.ErrNotEnrolled, http.StatusUnprocessableEntity, "NOT_ENROLLED"},
}

// writeError answers err with its mapped status and a {"error","code"}
// body.  Unmapped errors are logged and reported as an opaque 500.
func writeError(c echo.Context, log *zap.Logger, err error) error {
    var denied *policy.DeniedError
    if errors.As(err, &denied) {
        status := http.StatusForbidden
        if denied.Reason == policy.ReasonUnauthenticated {
            status = http.StatusUnauthorized
        }
        return c.JSON(status, echo.Map{"error": "forbidden", "code": denied.Reason})
    }
    for _, m := range errorStatus {
        if errors.Is(err, m.err) {
            return c.JSON(m.status, echo.Map{"error": err.Error(), "code": m.code})
        }
    }
    log.Error("request failed",
        zap.String("method", c.Request().Method),
        zap.String("path", c.Path()),
        zap.Error(err),
    )
    return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error", "code": "INTERNAL"})
}

func badRequest(c echo.Context, msg string) error {
    return c.JSON(http.StatusBadRequest, echo.Map{"error": msg, "code": "INVALID_INPUT"})
}

// parseID reads a positive numeric path parameter.
func parseID(c echo.Context, name string) (uint64, bool) {
    id, err := strconv.ParseUint(c.Param(name), 10, 64)
    return id, err == nil && id > 0
}

// queryID reads an optional positive numeric query parameter; absent
// yields zero.
func queryID(c echo.Context, name string) (uint64, bool) {
    raw := strings.TrimSpace(c.QueryParam(name))
    if raw == "" {
        return 0, true
    }
    id, err := strconv.ParseUint(raw, 10, 64)
    return id, err == nil && id > 0
}
