package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/medmap/scheduling-api/pkg/httputil"
)

// Timeout puts a deadline of d on the request context. Repositories run
// their queries with that context, so the deadline cancels them too. A
// handler that had not answered by then gets a 504.
func Timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Writer.Written() {
			httputil.Abort(c, http.StatusGatewayTimeout, "request timed out")
		}
	}
}
