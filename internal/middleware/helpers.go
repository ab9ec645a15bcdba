// internal/middleware/helpers.go
package middleware

import (
	"swiftel-client/internal/domain/auth"

	"github.com/gin-gonic/gin"
)

// GetIdentity returns the identity the guard admitted.
func GetIdentity(c *gin.Context) (auth.Identity, bool) {
	v, exists := c.Get(identityKey)
	if !exists {
		return auth.Identity{}, false
	}
	id, ok := v.(auth.Identity)
	return id, ok
}

// MustGetIdentity gets the identity from context or panics
func MustGetIdentity(c *gin.Context) auth.Identity {
	id, ok := GetIdentity(c)
	if !ok {
		panic("identity not found in context")
	}
	return id
}

// HasRole checks the admitted identity's role
func HasRole(c *gin.Context, role auth.Role) bool {
	id, ok := GetIdentity(c)
	return ok && id.HasRole(role)
}

// IsApprover is true for admins and board members.
func IsApprover(c *gin.Context) bool {
	id, ok := GetIdentity(c)
	return ok && id.IsApprover()
}

// GetRequestID returns the id assigned by the logging middleware.
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
