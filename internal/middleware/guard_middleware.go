// internal/middleware/guard_middleware.go
package middleware

import (
	"swiftel-client/internal/pkg/response"
	"swiftel-client/internal/pkg/session"
	"swiftel-client/internal/router"

	"github.com/gin-gonic/gin"
)

const identityKey = "identity"

// StateSource is the read side of the session manager.
type StateSource interface {
	State() session.State
}

type GuardMiddleware struct {
	sessions StateSource
}

func NewGuardMiddleware(sessions StateSource) *GuardMiddleware {
	return &GuardMiddleware{sessions: sessions}
}

// Guard evaluates rule on every request. While the session loads it answers
// with a placeholder; otherwise it redirects or lets the view render with
// the identity stored in the context.
func (m *GuardMiddleware) Guard(rule router.Rule) gin.HandlerFunc {
	return func(c *gin.Context) {
		state := m.sessions.State()
		decision := router.Evaluate(state, rule)

		switch decision.Outcome {
		case router.Wait:
			response.Loading(c)
			return
		case router.Redirect:
			response.Redirect(c, decision.Target)
			return
		}

		c.Set(identityKey, *state.Identity)
		c.Next()
	}
}

// Route is Guard for a path of the navigation table.
func (m *GuardMiddleware) Route(path string) gin.HandlerFunc {
	return m.Guard(router.MustRule(path))
}
