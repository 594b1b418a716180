package auth

import "github.com/golang-jwt/jwt/v5"

// TokenType distinguishes short-lived access tokens from refresh tokens.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// TokenPayload captures the data available when minting a JWT.
type TokenPayload struct {
	UserID uint
	Email  string
	JTI    string
}

// Claims represents the typed JWT issued to clients.
type Claims struct {
	UserID    uint      `json:"user_id"`
	Email     string    `json:"email,omitempty"`
	TokenType TokenType `json:"typ"`
	jwt.RegisteredClaims
}
