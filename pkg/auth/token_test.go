package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ideasdevops/lead-ia/pkg/config"
)

func testConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:                 "secret",
		Issuer:                 "lead-ia",
		ExpirationMinutes:      30,
		RefreshTokenTTLMinutes: 60,
	}
}

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := testConfig()
	now := time.Now().UTC()

	token, err := MintAccessToken(cfg, now, TokenPayload{UserID: 42, Email: "a@x.com", JTI: "jti-1"})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.UserID != 42 || claims.Subject != "42" {
		t.Fatalf("unexpected user id %d / subject %q", claims.UserID, claims.Subject)
	}
	if claims.Email != "a@x.com" || claims.ID != "jti-1" {
		t.Fatalf("unexpected email/jti %q/%q", claims.Email, claims.ID)
	}
	if claims.Issuer != cfg.Issuer {
		t.Fatalf("expected issuer %s, got %s", cfg.Issuer, claims.Issuer)
	}

	exp := now.Add(30 * time.Minute)
	diff := claims.ExpiresAt.Sub(exp)
	if diff < 0 {
		diff = -diff
	}
	if diff >= time.Second {
		t.Fatalf("expected exp roughly %v, got %v", exp, claims.ExpiresAt.Time)
	}
}

func TestTokenTypesAreNotInterchangeable(t *testing.T) {
	cfg := testConfig()
	now := time.Now()

	refresh, err := MintRefreshToken(cfg, now, TokenPayload{UserID: 7})
	if err != nil {
		t.Fatalf("mint refresh token: %v", err)
	}
	if _, err := ParseAccessToken(cfg, refresh); !errors.Is(err, ErrWrongTokenType) {
		t.Fatalf("expected wrong token type, got %v", err)
	}
	claims, err := ParseRefreshToken(cfg, refresh)
	if err != nil {
		t.Fatalf("parse refresh token: %v", err)
	}
	if claims.ID == "" {
		t.Fatalf("expected generated jti")
	}
}

func TestParseAccessTokenInvalidSignature(t *testing.T) {
	cfg := testConfig()
	token, err := MintAccessToken(cfg, time.Now(), TokenPayload{UserID: 1})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	other := cfg
	other.Secret = "different"
	if _, err := ParseAccessToken(other, token); err == nil {
		t.Fatal("expected signature mismatch to fail")
	}

	tampered := token[:strings.LastIndex(token, ".")+1] + "AAAA"
	if _, err := ParseAccessToken(cfg, tampered); err == nil {
		t.Fatal("expected tampered token to fail")
	}
}

func TestParseAccessTokenExpired(t *testing.T) {
	cfg := testConfig()
	token, err := MintAccessToken(cfg, time.Now().Add(-2*time.Hour), TokenPayload{UserID: 1})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := ParseAccessToken(cfg, token); err == nil {
		t.Fatal("expected expired token to fail")
	}
}

func TestMintRequiresUserAndSecret(t *testing.T) {
	cfg := testConfig()
	if _, err := MintAccessToken(cfg, time.Now(), TokenPayload{}); err == nil {
		t.Fatal("expected missing user id to fail")
	}
	cfg.Secret = ""
	if _, err := MintAccessToken(cfg, time.Now(), TokenPayload{UserID: 1}); err == nil {
		t.Fatal("expected missing secret to fail")
	}
}
