package httputil

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medmap/scheduling-api/pkg/errors"
)

// Response wraps all API responses
type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Code    string      `json:"code,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

// RespondWithSuccess sends a success response
func RespondWithSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, NewSuccessResponse(data))
}

// RespondWithError maps err onto a status code and an error body. Conflicts
// carry their reason in "code" so clients can tell a taken slot from bad input.
func RespondWithError(c *gin.Context, err error) {
	appErr, ok := errors.As(err)
	if !ok {
		appErr = errors.Internal(err)
	}

	status := appErr.HTTPStatus()
	message := appErr.Message
	if status == http.StatusInternalServerError {
		message = "Internal server error"
		_ = c.Error(err)
	}

	resp := NewErrorResponse(message)
	resp.Code = appErr.Reason
	c.AbortWithStatusJSON(status, resp)
}

// Abort sends an error body with an explicit status.
func Abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, NewErrorResponse(message))
}
