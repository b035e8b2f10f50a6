package auth

import (
	"testing"
	"time"

	"github.com/angelmondragon/cartsync/pkg/config"
	"github.com/golang-jwt/jwt/v5"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "secret",
		Issuer:            "cartsync",
		ExpirationMinutes: 30,
	}
}

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := testJWTConfig()
	now := time.Now().UTC()

	token, err := MintAccessToken(cfg, now, "user-42")
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.UserID != "user-42" || claims.Subject != "user-42" {
		t.Fatalf("unexpected user claims %q / %q", claims.UserID, claims.Subject)
	}
	if claims.Issuer != cfg.Issuer {
		t.Fatalf("unexpected issuer %s", claims.Issuer)
	}
	if claims.ID == "" {
		t.Fatal("expected jti to be set")
	}
	if claims.ExpiresAt == nil || claims.ExpiresAt.Time.Sub(now) > 31*time.Minute {
		t.Fatalf("unexpected expiry %v", claims.ExpiresAt)
	}
}

func TestMintAccessTokenValidation(t *testing.T) {
	now := time.Now()
	cases := map[string]config.JWTConfig{
		"missing secret": {Issuer: "i", ExpirationMinutes: 1},
		"missing issuer": {Secret: "s", ExpirationMinutes: 1},
		"bad expiry":     {Secret: "s", Issuer: "i"},
	}
	for name, cfg := range cases {
		if _, err := MintAccessToken(cfg, now, "u"); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	if _, err := MintAccessToken(testJWTConfig(), now, " "); err == nil {
		t.Fatal("expected error for empty user")
	}
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintAccessToken(cfg, time.Now().Add(-2*time.Hour), "u1")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := ParseAccessToken(cfg, token); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestParseAccessTokenRejectsWrongIssuerAndSecret(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintAccessToken(cfg, time.Now(), "u1")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	other := cfg
	other.Issuer = "someone-else"
	if _, err := ParseAccessToken(other, token); err == nil {
		t.Fatal("expected issuer mismatch")
	}
	other = cfg
	other.Secret = "different"
	if _, err := ParseAccessToken(other, token); err == nil {
		t.Fatal("expected signature mismatch")
	}
}

func TestParseAccessTokenFallsBackToSubject(t *testing.T) {
	cfg := testJWTConfig()
	now := time.Now()
	claims := AccessTokenClaims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    cfg.Issuer,
		Subject:   "subject-user",
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	parsed, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.UserID != "subject-user" {
		t.Fatalf("expected subject fallback, got %q", parsed.UserID)
	}
}
