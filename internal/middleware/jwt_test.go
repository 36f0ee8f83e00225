package middleware

import (
    "net/http"
    "net/http/httptest"
    "testing"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/peer-tutoring/internal/model"
    "github.com/iliyamo/peer-tutoring/internal/utils"
)

const secret = "test-secret"

func serve(t *testing.T, mw []echo.MiddlewareFunc, auth string) (*httptest.ResponseRecorder, string) {
    t.Helper()
    e := echo.New()
    var seen string
    e.GET("/x", func(c echo.Context) error {
        seen = userID(c)
        return c.NoContent(http.StatusNoContent)
    }, mw...)
    req := httptest.NewRequest(http.MethodGet, "/x", nil)
    if auth != "" {
        req.Header.Set("Authorization", auth)
    }
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    return rec, seen
}

func token(t *testing.T, id uint64, role string) string {
    t.Helper()
    tok, err := utils.NewAccessToken(secret, id, role, 5)
    if err != nil {
        t.Fatal(err)
    }
    return "Bearer " + tok.Token
}

func TestJWTAuth(t *testing.T) {
    tests := []struct {
        name   string
        auth   string
        status int
        user   string
    }{
        {"missing", "", http.StatusUnauthorized, ""},
        {"not bearer", "Basic abc", http.StatusUnauthorized, ""},
        {"garbage", "Bearer abc.def.ghi", http.StatusUnauthorized, ""},
        {"unknown role", token(t, 7, "owner"), http.StatusUnauthorized, ""},
        {"valid", token(t, 7, "tutor"), http.StatusNoContent, "7"},
    }
    for _, tt := range tests {
        t.Run(tt.name, func(t *testing.T) {
            rec, seen := serve(t, []echo.MiddlewareFunc{JWTAuth(secret)}, tt.auth)
            if rec.Code != tt.status || seen != tt.user {
                t.Fatalf("status=%d user=%q, want %d %q", rec.Code, seen, tt.status, tt.user)
            }
        })
    }
}

func TestOptionalJWT(t *testing.T) {
    rec, seen := serve(t, []echo.MiddlewareFunc{OptionalJWT(secret)}, "Bearer nope")
    if rec.Code != http.StatusNoContent || seen != "guest" {
        t.Fatalf("bad token: %d %q", rec.Code, seen)
    }
    _, seen = serve(t, []echo.MiddlewareFunc{OptionalJWT(secret)}, token(t, 3, "student"))
    if seen != "3" {
        t.Fatalf("good token: %q", seen)
    }
}

func TestRequireRole(t *testing.T) {
    mw := []echo.MiddlewareFunc{JWTAuth(secret), RequireRole(model.RoleTutor, model.RoleAdmin)}
    if rec, _ := serve(t, mw, token(t, 1, "student")); rec.Code != http.StatusForbidden {
        t.Fatalf("student: %d", rec.Code)
    }
    if rec, _ := serve(t, mw, token(t, 1, "admin")); rec.Code != http.StatusNoContent {
        t.Fatalf("admin: %d", rec.Code)
    }
}
