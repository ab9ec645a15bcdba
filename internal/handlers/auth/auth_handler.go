// internal/handlers/auth/auth_handler.go
package auth

import (
	"errors"
	"net/http"

	"swiftel-client/internal/api"
	"swiftel-client/internal/domain/auth"
	"swiftel-client/internal/pkg/response"
	"swiftel-client/internal/router"
	authService "swiftel-client/internal/service/auth"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthHandler struct {
	authService *authService.AuthService
	logger      *zap.Logger
}

func NewAuthHandler(authService *authService.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// LoginView renders the public login form
func (h *AuthHandler) LoginView(c *gin.Context) {
	response.Success(c, http.StatusOK, "login", gin.H{
		"fields": []string{"email", "password", "remember_me"},
	})
}

// RegisterView renders the public registration form
func (h *AuthHandler) RegisterView(c *gin.Context) {
	response.Success(c, http.StatusOK, "register", gin.H{
		"fields": []string{"username", "email", "password"},
	})
}

// Login authenticates against the backend and starts the session
func (h *AuthHandler) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	id, err := h.authService.Login(c.Request.Context(), req)
	if err != nil {
		var apiErr *api.APIError
		if errors.As(err, &apiErr) {
			h.logger.Info("login refused", zap.String("email", req.Email), zap.Int("status", apiErr.Status))
			response.FromError(c, err)
			return
		}
		h.logger.Error("login failed", zap.String("email", req.Email), zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "login failed", nil)
		return
	}

	response.Success(c, http.StatusOK, "logged in", gin.H{
		"identity": id,
		"redirect": router.DashboardPath,
	})
}

// Register creates an account; the user logs in afterwards
func (h *AuthHandler) Register(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBind(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	res, err := h.authService.Register(c.Request.Context(), req)
	if err != nil {
		h.logger.Info("registration refused", zap.String("email", req.Email), zap.Error(err))
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, "registration successful", gin.H{
		"user":     res.User,
		"redirect": router.LoginPath,
	})
}

// Logout ends the session everywhere
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.authService.Logout(c.Request.Context()); err != nil {
		h.logger.Warn("logout left stored token behind", zap.Error(err))
	}
	response.Success(c, http.StatusOK, "logged out", gin.H{"redirect": router.LoginPath})
}
