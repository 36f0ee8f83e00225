package utils

import (
    "testing"

    "github.com/golang-jwt/jwt/v5"
)

func TestAccessTokenRoundTrip(t *testing.T) {
    tok, err := NewAccessToken("secret", 42, "tutor", 5)
    if err != nil {
        t.Fatalf("NewAccessToken: %v", err)
    }
    claims, err := ParseAccessToken("secret", tok.Token)
    if err != nil {
        t.Fatalf("ParseAccessToken: %v", err)
    }
    if claims.UserID != 42 || claims.Role != "tutor" {
        t.Fatalf("claims = %+v", claims)
    }
}

func TestParseAccessTokenRejects(t *testing.T) {
    good, _ := NewAccessToken("secret", 42, "tutor", 5)
    expired, _ := NewAccessToken("secret", 42, "tutor", -5)
    none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "42", "exp": 9999999999}).
        SignedString(jwt.UnsafeAllowNoneSignatureType)

    for name, raw := range map[string]string{
        "wrong secret": good.Token,
        "expired":      expired.Token,
        "alg none":     none,
        "garbage":      "not.a.jwt",
    } {
        secret := "secret"
        if name == "wrong secret" {
            secret = "other"
        }
        if _, err := ParseAccessToken(secret, raw); err != ErrInvalidToken {
            t.Errorf("%s: err = %v, want ErrInvalidToken", name, err)
        }
    }
}

func TestRefreshTokenHash(t *testing.T) {
    rt, err := NewRefreshToken(1)
    if err != nil {
        t.Fatal(err)
    }
    if len(rt.Raw) != 96 {
        t.Fatalf("raw length = %d", len(rt.Raw))
    }
    if HashRefreshRaw(rt.Raw) == rt.Raw || len(HashRefreshRaw(rt.Raw)) != 64 {
        t.Fatal("hash must be a 64-char digest distinct from the raw token")
    }
}

func TestPassword(t *testing.T) {
    hash, err := HashPassword("hunter22", 4)
    if err != nil {
        t.Fatal(err)
    }
    if !VerifyPassword(hash, "hunter22") || VerifyPassword(hash, "hunter23") {
        t.Fatal("bcrypt verification mismatch")
    }
}
