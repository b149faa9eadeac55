package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// SecurityHeaders sets the response headers for a JSON-only API. HSTS is
// sent when hstsMaxAge is positive.
func SecurityHeaders(hstsMaxAge time.Duration) gin.HandlerFunc {
	headers := [][2]string{
		{"X-Content-Type-Options", "nosniff"},
		{"X-Frame-Options", "DENY"},
		{"Referrer-Policy", "no-referrer"},
		{"Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'"},
		{"Cache-Control", "no-store"},
	}
	if hstsMaxAge > 0 {
		headers = append(headers, [2]string{
			"Strict-Transport-Security",
			"max-age=" + strconv.Itoa(int(hstsMaxAge.Seconds())) + "; includeSubDomains",
		})
	}

	return func(c *gin.Context) {
		for _, h := range headers {
			c.Header(h[0], h[1])
		}
		c.Next()
	}
}
