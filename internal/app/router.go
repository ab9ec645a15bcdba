// internal/app/router.go
package app

import (
	authHandler "swiftel-client/internal/handlers/auth"
	notifyHandler "swiftel-client/internal/handlers/notification"
	requestHandler "swiftel-client/internal/handlers/request"
	shellHandler "swiftel-client/internal/handlers/shell"
	userHandler "swiftel-client/internal/handlers/user"
	wsHandler "swiftel-client/internal/handlers/websocket"
	"swiftel-client/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handlers struct {
	AuthHandler    *authHandler.AuthHandler
	NotifHandler   *notifyHandler.NotificationHandler
	RequestHandler *requestHandler.RequestHandler
	UserHandler    *userHandler.UserHandler
	ShellHandler   *shellHandler.ShellHandler
	WSHandler      *wsHandler.WebSocketHandler
	Guard          *middleware.GuardMiddleware
}

func SetupRouter(r *gin.Engine, h *Handlers) {
	g := h.Guard

	// ==================== Shell ====================
	r.GET("/", h.ShellHandler.Root)
	r.GET("/health", h.ShellHandler.Health)
	r.GET("/session", h.ShellHandler.Session)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/ws", h.WSHandler.HandleConnection)
	r.NoRoute(h.ShellHandler.NotFound)

	// ==================== Public ====================
	r.GET("/login", h.AuthHandler.LoginView)
	r.POST("/login", h.AuthHandler.Login)
	r.GET("/register", h.AuthHandler.RegisterView)
	r.POST("/register", h.AuthHandler.Register)
	r.POST("/logout", h.AuthHandler.Logout)

	// ==================== Any signed in user ====================
	r.GET("/dashboard", g.Route("/dashboard"), h.RequestHandler.Dashboard)

	account := r.Group("/account", g.Route("/account"))
	{
		account.GET("", h.UserHandler.Account)
		account.PATCH("", h.UserHandler.UpdateAccount)
	}

	notifications := r.Group("/notifications", g.Route("/notifications"))
	{
		notifications.GET("", h.NotifHandler.GetNotifications)
		notifications.PUT("/mark-all-read", h.NotifHandler.MarkAllAsRead)
		notifications.PUT("/:id/read", h.NotifHandler.MarkAsRead)
	}

	r.GET("/requests/:id", g.Route("/requests/:id"), h.RequestHandler.Details)

	// ==================== Employees ====================
	r.GET("/make-request", g.Route("/make-request"), h.RequestHandler.MakeRequestView)
	r.POST("/make-request", g.Route("/make-request"), h.RequestHandler.Create)
	r.GET("/my-requests", g.Route("/my-requests"), h.RequestHandler.List)

	// ==================== Approvers ====================
	r.GET("/requests", g.Route("/requests"), h.RequestHandler.List)
	r.POST("/requests/:id/decide", g.Route("/requests"), h.RequestHandler.Decide)

	users := r.Group("/users", g.Route("/users"))
	{
		users.GET("", h.UserHandler.List)
		users.PATCH("/:id", h.UserHandler.Update)
		users.DELETE("/:id", h.UserHandler.Delete)
	}
}
