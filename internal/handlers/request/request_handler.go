// internal/handlers/request/request_handler.go
package request

import (
	"net/http"
	"strconv"

	"swiftel-client/internal/domain/auth"
	"swiftel-client/internal/domain/request"
	"swiftel-client/internal/middleware"
	"swiftel-client/internal/pkg/response"
	service "swiftel-client/internal/service/request"

	"github.com/gin-gonic/gin"
)

const recentRequests = 5

type RequestHandler struct {
	requestService *service.RequestService
}

func NewRequestHandler(requestService *service.RequestService) *RequestHandler {
	return &RequestHandler{requestService: requestService}
}

// Dashboard renders the stats cards and the most recent requests
func (h *RequestHandler) Dashboard(c *gin.Context) {
	id := middleware.MustGetIdentity(c)

	stats, recent, err := h.requestService.Dashboard(c.Request.Context(), id, recentRequests)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "dashboard", gin.H{
		"user":   id,
		"stats":  stats,
		"recent": recent,
	})
}

// List renders /requests and /my-requests with the status and search filters
func (h *RequestHandler) List(c *gin.Context) {
	id := middleware.MustGetIdentity(c)
	filter := service.ParseFilter(c.Query("status"), c.Query("q"), id)

	reqs, err := h.requestService.List(c.Request.Context(), id, filter)
	if err != nil {
		response.FromError(c, err)
		return
	}

	status := string(filter.Status)
	if status == "" {
		status = "all"
	}
	response.Success(c, http.StatusOK, "requests", gin.H{
		"requests": reqs,
		"count":    len(reqs),
		"status":   status,
		"search":   filter.Search,
	})
}

// Details renders a single request with its decisions
func (h *RequestHandler) Details(c *gin.Context) {
	reqID, ok := parseID(c)
	if !ok {
		return
	}

	r, err := h.requestService.Get(c.Request.Context(), reqID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "request", r)
}

// MakeRequestView renders the submission form
func (h *RequestHandler) MakeRequestView(c *gin.Context) {
	response.Success(c, http.StatusOK, "make-request", gin.H{
		"types": []request.Type{request.TypeMonetary, request.TypeNonMonetary},
	})
}

// Create submits a new request for the signed in employee
func (h *RequestHandler) Create(c *gin.Context) {
	var req request.CreateRequest
	if err := c.ShouldBind(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}
	if err := req.Validate(); err != nil {
		response.ValidationError(c, err.Error(), nil)
		return
	}

	r, err := h.requestService.Create(c.Request.Context(), req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, "request submitted", r)
}

// Decide records the caller's verdict. Only admins may act on behalf of
// another board member.
func (h *RequestHandler) Decide(c *gin.Context) {
	reqID, ok := parseID(c)
	if !ok {
		return
	}

	var req request.DecideRequest
	if err := c.ShouldBind(&req); err != nil {
		response.ValidationError(c, "invalid decision", err)
		return
	}
	if req.BoardMemberID != nil && !middleware.HasRole(c, auth.RoleAdmin) {
		req.BoardMemberID = nil
	}

	if err := h.requestService.Decide(c.Request.Context(), reqID, req); err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "decision recorded", gin.H{
		"request_id": reqID,
		"decision":   req.Decision,
	})
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "invalid request ID", err)
		return 0, false
	}
	return id, true
}
