package auth

import (
	"time"

	"github.com/recipebook/recipebook-server/internal/domain"
)

// AccessClaims are the claims carried by an access token. v4.local tokens
// are encrypted, so none of this is readable by clients.
type AccessClaims struct {
	UserID string      `json:"user_id"`
	Email  string      `json:"email"`
	Role   domain.Role `json:"role"`

	Issuer     string    `json:"iss"`
	Subject    string    `json:"sub"`
	Audience   string    `json:"aud"`
	Expiration time.Time `json:"exp"`
	NotBefore  time.Time `json:"nbf"`
	IssuedAt   time.Time `json:"iat"`
	TokenID    string    `json:"jti"`
}

// IsAdmin reports whether the token was issued to an admin. The role in a
// token can be stale; authorization re-reads the user record.
func (c *AccessClaims) IsAdmin() bool {
	return c.Role == domain.RoleAdmin
}
