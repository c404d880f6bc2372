package types

import (
	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims are the claims of an access token issued by the identity
// provider. The user is identified by sub, or by user_id for older tokens.
type TokenClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id,omitempty"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role,omitempty"`
}

// Identity returns the user identifier carried by the token.
func (c *TokenClaims) Identity() string {
	if c.Subject != "" {
		return c.Subject
	}
	return c.UserID
}
