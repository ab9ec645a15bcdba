// internal/pkg/jwt/claims.go
package jwt

import (
	"swiftel-client/internal/domain/auth"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the payload the Swiftel backend puts in its session tokens
type Claims struct {
	UserID   int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Identity converts the claims into the domain identity.
// An unrecognised role becomes auth.RoleNone.
func (c *Claims) Identity() auth.Identity {
	return auth.Identity{
		ID:       c.UserID,
		Username: c.Username,
		Role:     auth.ParseRole(c.Role),
	}
}

// complete reports whether the required fields are present
func (c *Claims) complete() bool {
	return c.UserID > 0 && c.Username != ""
}
