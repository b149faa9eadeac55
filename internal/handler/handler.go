package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/medmap/scheduling-api/internal/middleware"
	"github.com/medmap/scheduling-api/pkg/errors"
	"github.com/medmap/scheduling-api/pkg/httputil"
)

// ParseID reads a positive integer path parameter, answering 400 when it is not one.
func ParseID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		httputil.RespondWithError(c, errors.Validation("invalid "+name, err))
		return 0, false
	}
	return id, true
}

// BindJSON decodes the body into req, answering 400 with field messages on failure.
func BindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httputil.RespondWithError(c, errors.Validation(middleware.ValidationMessage(err), err))
		return false
	}
	return true
}

// BindQuery decodes the query string into req, answering 400 on failure.
func BindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		httputil.RespondWithError(c, errors.Validation(middleware.ValidationMessage(err), err))
		return false
	}
	return true
}
