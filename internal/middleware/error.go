package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/medmap/scheduling-api/pkg/httputil"
	"github.com/medmap/scheduling-api/pkg/logger"
)

// ErrorHandler logs errors attached with c.Error and renders the last one
// when the handler did not write a response itself.
func ErrorHandler(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		for _, e := range c.Errors {
			log.Error(e.Err, "Request error",
				"request_id", c.GetString(ContextRequestID),
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
				"client_ip", c.ClientIP())
		}

		if !c.Writer.Written() {
			httputil.RespondWithError(c, c.Errors.Last().Err)
		}
	}
}
