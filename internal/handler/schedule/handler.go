package schedule

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/medmap/scheduling-api/internal/handler"
	"github.com/medmap/scheduling-api/internal/middleware"
	"github.com/medmap/scheduling-api/internal/model"
	"github.com/medmap/scheduling-api/internal/service/schedule"
	"github.com/medmap/scheduling-api/pkg/errors"
	"github.com/medmap/scheduling-api/pkg/httputil"
)

type Handler struct {
	service *schedule.Service
}

func NewHandler(service *schedule.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	schedules := r.Group("/schedules")
	{
		schedules.GET("", h.ListWindows)
		schedules.POST("", h.CreateWindow)
		schedules.DELETE("", h.BulkDelete)
		schedules.PUT("/doctors/:doctorId", h.ReplaceWindows)
		schedules.PUT("/:id", h.UpdateWindow)
		schedules.DELETE("/:id", h.DeleteWindow)
	}
}

func (h *Handler) CreateWindow(c *gin.Context) {
	var req model.CreateWindowRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	w, err := windowFrom(req.DoctorID, *req.DayOfWeek, req.StartTime, req.EndTime, req.IsAvailable)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	created, err := h.service.CreateWindow(c.Request.Context(), middleware.CurrentIdentity(c), w)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusCreated, created)
}

func (h *Handler) ListWindows(c *gin.Context) {
	doctorID, ok := doctorQuery(c)
	if !ok {
		return
	}

	windows, err := h.service.ListWindows(c.Request.Context(), doctorID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, windows)
}

func (h *Handler) UpdateWindow(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}
	var req model.UpdateWindowRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	patch := model.WindowPatch{IsAvailable: req.IsAvailable}
	if req.DayOfWeek != nil {
		day := time.Weekday(*req.DayOfWeek)
		patch.DayOfWeek = &day
	}
	if req.StartTime != nil {
		t, _ := model.ParseTimeOfDay(*req.StartTime)
		patch.StartTime = &t
	}
	if req.EndTime != nil {
		t, _ := model.ParseTimeOfDay(*req.EndTime)
		patch.EndTime = &t
	}

	updated, err := h.service.UpdateWindow(c.Request.Context(), middleware.CurrentIdentity(c), id, patch)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, updated)
}

func (h *Handler) DeleteWindow(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteWindow(c.Request.Context(), middleware.CurrentIdentity(c), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *Handler) BulkDelete(c *gin.Context) {
	doctorID, ok := doctorQuery(c)
	if !ok {
		return
	}

	n, err := h.service.BulkDeleteByDoctor(c.Request.Context(), middleware.CurrentIdentity(c), doctorID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, gin.H{"deleted": n})
}

func (h *Handler) ReplaceWindows(c *gin.Context) {
	doctorID, ok := handler.ParseID(c, "doctorId")
	if !ok {
		return
	}
	var req model.ReplaceWindowsRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	windows := make([]*model.WeeklyAvailabilityWindow, 0, len(req.Windows))
	for _, item := range req.Windows {
		w, err := windowFrom(doctorID, *item.DayOfWeek, item.StartTime, item.EndTime, item.IsAvailable)
		if err != nil {
			httputil.RespondWithError(c, err)
			return
		}
		windows = append(windows, w)
	}

	replaced, err := h.service.ReplaceWindows(c.Request.Context(), middleware.CurrentIdentity(c), doctorID, windows)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, replaced)
}

func doctorQuery(c *gin.Context) (int64, bool) {
	raw := c.Query("doctor")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		httputil.RespondWithError(c, errors.Validation("doctor query parameter is required", err))
		return 0, false
	}
	return id, true
}

// windowFrom builds a window from already validated request fields.
func windowFrom(doctorID int64, day int, start, end string, available *bool) (*model.WeeklyAvailabilityWindow, error) {
	startTime, err := model.ParseTimeOfDay(start)
	if err != nil {
		return nil, errors.Validation(err.Error(), err)
	}
	endTime, err := model.ParseTimeOfDay(end)
	if err != nil {
		return nil, errors.Validation(err.Error(), err)
	}
	w := &model.WeeklyAvailabilityWindow{
		DoctorID:    doctorID,
		DayOfWeek:   time.Weekday(day),
		StartTime:   startTime,
		EndTime:     endTime,
		IsAvailable: true,
	}
	if available != nil {
		w.IsAvailable = *available
	}
	return w, nil
}
