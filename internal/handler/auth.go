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

// AuthHandler serves registration, token exchange and profile lookups.
type AuthHandler struct {
    Auth *service.AuthService
    Log  *zap.Logger
}

func NewAuthHandler(a *service.AuthService, log *zap.Logger) *AuthHandler {
    if a == nil {
        panic("nil auth service passed to NewAuthHandler")
    }
    return &AuthHandler{Auth: a, Log: log}
}

// ----- DTOs -----

type registerReq struct {
    Username       string `json:"username"`
    Password       string `json:"password"`
    Role           string `json:"role"` // student | tutor
    FullName       string `json:"full_name"`
    AcademicStatus string `json:"academic_status"`
    Bio            string `json:"bio"`
}
type loginReq struct {
    Username string `json:"username"`
    Password string `json:"password"`
}
type refreshReq struct {
    RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
    Token   string    `json:"token"`
    Expires time.Time `json:"expires"`
}
type authResp struct {
    User    model.User `json:"user"`
    Access  tokenPart  `json:"access"`
    Refresh tokenPart  `json:"refresh"`
}

func pairResp(u model.User, p service.TokenPair) authResp {
    return authResp{
        User:    u,
        Access:  tokenPart{Token: p.Access.Token, Expires: p.Access.Exp},
        Refresh: tokenPart{Token: p.Refresh.Raw, Expires: p.Refresh.Exp}, // raw back to client
    }
}

// Register: POST /v1/auth/register.
func (h *AuthHandler) Register(c echo.Context) error {
    var req registerReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    u, err := h.Auth.Register(ctx, service.RegisterInput{
        Username:       req.Username,
        Password:       req.Password,
        Role:           req.Role,
        FullName:       req.FullName,
        AcademicStatus: req.AcademicStatus,
        Bio:            req.Bio,
    })
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusCreated, echo.Map{"user_id": u.ID, "user": u})
}

// Login: POST /v1/auth/login.
func (h *AuthHandler) Login(c echo.Context) error {
    var req loginReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    if req.Username == "" || req.Password == "" {
        return badRequest(c, "username/password required")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    u, pair, err := h.Auth.Login(ctx, req.Username, req.Password)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, pairResp(u, pair))
}

// Refresh: POST /v1/auth/refresh.  The presented token is revoked.
func (h *AuthHandler) Refresh(c echo.Context) error {
    var req refreshReq
    if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
        return badRequest(c, "refresh_token required")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    u, pair, err := h.Auth.Refresh(ctx, req.RefreshToken)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, pairResp(u, pair))
}

// Logout: POST /v1/auth/logout.  A refresh_token in the body revokes that
// token; otherwise a bearer token revokes every token of its user.
func (h *AuthHandler) Logout(c echo.Context) error {
    var req refreshReq
    _ = c.Bind(&req)

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    if err := h.Auth.Logout(ctx, req.RefreshToken, middleware.PrincipalFrom(c).ID); err != nil {
        return writeError(c, h.Log, err)
    }
    return c.NoContent(http.StatusNoContent)
}

// Me: GET /v1/me.
func (h *AuthHandler) Me(c echo.Context) error {
    return h.profile(c, 0)
}

// Profile: GET /v1/profile?target_id=.
func (h *AuthHandler) Profile(c echo.Context) error {
    target, ok := queryID(c, "target_id")
    if !ok {
        return badRequest(c, "invalid target_id")
    }
    return h.profile(c, target)
}

func (h *AuthHandler) profile(c echo.Context, target uint64) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    u, err := h.Auth.Profile(ctx, middleware.PrincipalFrom(c), target)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, u)
}

// ListTutors: GET /v1/tutors.
func (h *AuthHandler) ListTutors(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    tutors, err := h.Auth.ListTutors(ctx)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": tutors})
}

// ListUsers: GET /v1/users.  Admin only.
func (h *AuthHandler) ListUsers(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    users, err := h.Auth.ListUsers(ctx, middleware.PrincipalFrom(c))
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": users})
}
