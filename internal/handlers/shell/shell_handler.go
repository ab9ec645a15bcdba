// internal/handlers/shell/shell_handler.go
package shell

import (
	"net/http"

	"swiftel-client/internal/pkg/response"
	"swiftel-client/internal/pkg/session"
	"swiftel-client/internal/router"

	"github.com/gin-gonic/gin"
)

// ShellHandler serves the views that live outside the guarded table.
type ShellHandler struct {
	sessions *session.Manager
}

func NewShellHandler(sessions *session.Manager) *ShellHandler {
	return &ShellHandler{sessions: sessions}
}

// Root sends "/" to the dashboard; the guard takes it from there.
func (h *ShellHandler) Root(c *gin.Context) {
	response.Redirect(c, router.DashboardPath)
}

// NotFound renders the catch-all view
func (h *ShellHandler) NotFound(c *gin.Context) {
	response.NotFound(c, "Page not found")
}

// Session reports the current session for the UI chrome.
func (h *ShellHandler) Session(c *gin.Context) {
	st := h.sessions.State()
	response.Success(c, http.StatusOK, "session", gin.H{
		"ready":         st.IsReady(),
		"authenticated": st.Authenticated(),
		"identity":      st.Identity,
	})
}

// Health answers liveness probes; it turns 200 once boot completed.
func (h *ShellHandler) Health(c *gin.Context) {
	select {
	case <-h.sessions.Ready():
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	default:
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "loading"})
	}
}
