// internal/handlers/user/user_handler.go
package user

import (
	"net/http"
	"strconv"

	"swiftel-client/internal/domain/auth"
	"swiftel-client/internal/middleware"
	"swiftel-client/internal/pkg/response"
	service "swiftel-client/internal/service/user"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	userService *service.UserService
}

func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// Account renders the caller's profile
func (h *UserHandler) Account(c *gin.Context) {
	me, err := h.userService.Me(c.Request.Context())
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "account", me)
}

type updateAccountRequest struct {
	auth.UpdateProfileRequest
	ConfirmPassword *string `json:"confirmPassword,omitempty" form:"confirm_password"`
}

// UpdateAccount patches the caller's profile
func (h *UserHandler) UpdateAccount(c *gin.Context) {
	var req updateAccountRequest
	if err := c.ShouldBind(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}
	if req.Password != nil && (req.ConfirmPassword == nil || *req.ConfirmPassword != *req.Password) {
		response.ValidationError(c, "Passwords do not match", nil)
		return
	}

	me, err := h.userService.UpdateMe(c.Request.Context(), req.UpdateProfileRequest)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "Account updated successfully!", me)
}

// List renders the user directory
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.userService.List(c.Request.Context())
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "users", gin.H{
		"users":    users,
		"count":    len(users),
		"can_edit": middleware.HasRole(c, auth.RoleAdmin),
	})
}

// Update edits another account
func (h *UserHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req auth.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	u, err := h.userService.Update(c.Request.Context(), id, req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "User updated successfully!", u)
}

// Delete removes an account
func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if id == middleware.MustGetIdentity(c).ID {
		response.ValidationError(c, "You cannot delete your own account", nil)
		return
	}

	if err := h.userService.Delete(c.Request.Context(), id); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "User deleted successfully", nil)
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "invalid user ID", err)
		return 0, false
	}
	return id, true
}
