package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/medmap/scheduling-api/internal/model"
	"github.com/medmap/scheduling-api/pkg/auth"
	"github.com/medmap/scheduling-api/pkg/httputil"
)

const ContextIdentity = "identity"

type AuthMiddleware struct {
	jwt auth.JWTService
}

func NewAuthMiddleware(jwt auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt}
}

// Authenticate verifies the bearer token and stores the caller's identity in the context.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			httputil.Abort(c, http.StatusUnauthorized, "missing authorization header")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			httputil.Abort(c, http.StatusUnauthorized, "invalid authorization format")
			return
		}

		claims, err := m.jwt.ValidateToken(parts[1])
		if err != nil {
			httputil.Abort(c, http.StatusUnauthorized, "invalid token")
			return
		}

		c.Set(ContextIdentity, claims.Identity())
		c.Next()
	}
}

// RequireDoctorOrAdmin rejects callers that are neither.
func (m *AuthMiddleware) RequireDoctorOrAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := CurrentIdentity(c)
		if id == nil || !(id.IsDoctor || id.IsAdmin) {
			httputil.Abort(c, http.StatusForbidden, "permission denied")
			return
		}
		c.Next()
	}
}

// CurrentIdentity returns the authenticated caller, or nil on public routes.
func CurrentIdentity(c *gin.Context) *model.Identity {
	v, ok := c.Get(ContextIdentity)
	if !ok {
		return nil
	}
	id, _ := v.(*model.Identity)
	return id
}
