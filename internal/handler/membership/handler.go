package membership

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medmap/scheduling-api/internal/middleware"
	"github.com/medmap/scheduling-api/internal/service/membership"
	"github.com/medmap/scheduling-api/pkg/httputil"
)

type Handler struct {
	service *membership.Service
}

func NewHandler(service *membership.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/memberships/me", h.GetMine)
}

func (h *Handler) GetMine(c *gin.Context) {
	m, err := h.service.Get(c.Request.Context(), middleware.CurrentIdentity(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, m)
}
