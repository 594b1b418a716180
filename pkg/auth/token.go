package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/ideasdevops/lead-ia/pkg/config"
)

var jwtSigningMethod = jwt.SigningMethodHS256

// ErrWrongTokenType is returned when a refresh token is presented as an access token or vice versa.
var ErrWrongTokenType = errors.New("unexpected token type")

// MintAccessToken issues a signed access JWT using the configured TTL.
func MintAccessToken(cfg config.JWTConfig, now time.Time, payload TokenPayload) (string, error) {
	return mint(cfg, now, payload, TokenTypeAccess, cfg.AccessTokenTTL())
}

// MintRefreshToken issues a signed refresh JWT using the refresh TTL.
func MintRefreshToken(cfg config.JWTConfig, now time.Time, payload TokenPayload) (string, error) {
	return mint(cfg, now, payload, TokenTypeRefresh, cfg.RefreshTokenTTL())
}

func mint(cfg config.JWTConfig, now time.Time, payload TokenPayload, typ TokenType, ttl time.Duration) (string, error) {
	if cfg.Secret == "" {
		return "", fmt.Errorf("jwt secret is required")
	}
	if cfg.Issuer == "" {
		return "", fmt.Errorf("jwt issuer is required")
	}
	if ttl <= 0 {
		return "", fmt.Errorf("%s token ttl must be positive", typ)
	}
	if payload.UserID == 0 {
		return "", fmt.Errorf("user id is required")
	}

	jti := strings.TrimSpace(payload.JTI)
	if jti == "" {
		jti = uuid.NewString()
	}

	claims := Claims{
		UserID:    payload.UserID,
		Email:     payload.Email,
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   strconv.FormatUint(uint64(payload.UserID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        jti,
		},
	}

	signed, err := jwt.NewWithClaims(jwtSigningMethod, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

// ParseAccessToken validates an access JWT and returns typed claims.
func ParseAccessToken(cfg config.JWTConfig, tokenString string) (*Claims, error) {
	return parse(cfg, tokenString, TokenTypeAccess)
}

// ParseRefreshToken validates a refresh JWT and returns typed claims.
func ParseRefreshToken(cfg config.JWTConfig, tokenString string) (*Claims, error) {
	return parse(cfg, tokenString, TokenTypeRefresh)
}

func parse(cfg config.JWTConfig, tokenString string, want TokenType) (*Claims, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwtSigningMethod {
				return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
			}
			return []byte(cfg.Secret), nil
		},
		jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != want {
		return nil, ErrWrongTokenType
	}
	if claims.UserID == 0 {
		return nil, fmt.Errorf("token missing user id")
	}
	return claims, nil
}
