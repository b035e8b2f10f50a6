package auth

import "github.com/golang-jwt/jwt/v5"

// AccessTokenClaims identifies the shopper whose cart a request operates on.
type AccessTokenClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}
