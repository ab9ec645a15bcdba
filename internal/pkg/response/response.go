// internal/pkg/response/response.go
package response

import (
	"errors"
	"net/http"

	"swiftel-client/internal/api"
	"swiftel-client/internal/domain/request"
	xerrors "swiftel-client/internal/pkg/errors"

	"github.com/gin-gonic/gin"
)

// Response defines the standard view payload format.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Placeholder is rendered while the session is still loading.
type Placeholder struct {
	Status string `json:"status"`
}

// Success sends a successful response with a message and optional data.
func Success(c *gin.Context, status int, message string, data interface{}) {
	if status == 0 {
		status = http.StatusOK
	}

	c.JSON(status, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Error sends a standardized error response.
func Error(c *gin.Context, code int, message string, err error, data ...interface{}) {
	// abort before writing so later handlers never run
	c.Abort()

	resp := Response{
		Success: false,
		Message: message,
	}

	if err != nil {
		resp.Error = err.Error()
	}

	if len(data) > 0 {
		resp.Data = data[0]
	}

	c.JSON(code, resp)
}

// FromError maps a backend or local error to a response. Backend messages
// are shown as is; anything unexpected becomes a generic 500.
func FromError(c *gin.Context, err error) {
	var apiErr *api.APIError
	switch {
	case errors.As(err, &apiErr):
		status := apiErr.Status
		if status >= http.StatusInternalServerError {
			status = http.StatusBadGateway
		}
		Error(c, status, apiErr.Message(), nil)
	case errors.Is(err, request.ErrAmountRequired), errors.Is(err, xerrors.ErrInvalidInput):
		ValidationError(c, err.Error(), nil)
	case errors.Is(err, xerrors.ErrNotFound):
		NotFound(c, err.Error())
	default:
		Error(c, http.StatusInternalServerError, "internal server error", nil)
	}
}

// Loading answers 202 with a placeholder and asks the caller to retry.
func Loading(c *gin.Context) {
	c.Abort()
	c.Header("Retry-After", "1")
	c.JSON(http.StatusAccepted, Placeholder{Status: "loading"})
}

// Redirect sends a 302 to target.
func Redirect(c *gin.Context, target string) {
	c.Abort()
	c.Redirect(http.StatusFound, target)
}

// ValidationError sends a 400 Bad Request response for invalid input.
func ValidationError(c *gin.Context, message string, err error) {
	Error(c, http.StatusBadRequest, message, err)
}

// Unauthorized sends a 401 Unauthorized response.
func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, message, nil)
}

// NotFound sends a 404 Not Found response.
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, message, nil)
}
