package availability

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medmap/scheduling-api/internal/model"
	"github.com/medmap/scheduling-api/internal/service/schedule"
	"github.com/medmap/scheduling-api/pkg/httputil"
)

// Handler serves the public calendar reads. No authentication is required.
type Handler struct {
	resolver *schedule.Resolver
}

func NewHandler(resolver *schedule.Resolver) *Handler {
	return &Handler{resolver: resolver}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	availability := r.Group("/availability")
	{
		availability.GET("/taken", h.TakenSlots)
		availability.GET("/free", h.FreeSlots)
		availability.GET("/slots", h.Slots)
	}
}

func (h *Handler) TakenSlots(c *gin.Context) {
	h.times(c, h.resolver.TakenSlots)
}

func (h *Handler) FreeSlots(c *gin.Context) {
	h.times(c, h.resolver.FreeSlots)
}

func (h *Handler) Slots(c *gin.Context) {
	doctorID, date, err := schedule.ParseQuery(c.Query("doctor"), c.Query("date"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	slots, err := h.resolver.Slots(c.Request.Context(), doctorID, date)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, slots)
}

func (h *Handler) times(c *gin.Context, fetch func(context.Context, int64, model.Date) ([]model.TimeOfDay, error)) {
	doctorID, date, err := schedule.ParseQuery(c.Query("doctor"), c.Query("date"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	times, err := fetch(c.Request.Context(), doctorID, date)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if times == nil {
		times = []model.TimeOfDay{}
	}
	httputil.RespondWithSuccess(c, http.StatusOK, times)
}
