package booking

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medmap/scheduling-api/internal/handler"
	"github.com/medmap/scheduling-api/internal/middleware"
	"github.com/medmap/scheduling-api/internal/model"
	"github.com/medmap/scheduling-api/internal/service/booking"
	"github.com/medmap/scheduling-api/pkg/httputil"
)

type Handler struct {
	service *booking.Service
	auth    *middleware.AuthMiddleware
}

func NewHandler(service *booking.Service, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{service: service, auth: auth}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	bookings := r.Group("/bookings")
	{
		bookings.POST("", h.CreateBooking)
		bookings.GET("", h.ListBookings)
		bookings.GET("/:id", h.GetBooking)
		bookings.PATCH("/:id", h.UpdateBooking)
		bookings.POST("/:id/cancel", h.CancelBooking)
		bookings.POST("/:id/confirm", h.auth.RequireDoctorOrAdmin(), h.ConfirmBooking)
		bookings.POST("/:id/complete", h.auth.RequireDoctorOrAdmin(), h.CompleteBooking)
	}
}

func (h *Handler) CreateBooking(c *gin.Context) {
	var req model.CreateBookingRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	// Both values passed the binding validators.
	date, _ := model.ParseDate(req.AppointmentDate)
	at, _ := model.ParseTimeOfDay(req.AppointmentTime)

	b, err := h.service.CreateBooking(c.Request.Context(), middleware.CurrentIdentity(c), booking.CreateInput{
		DoctorID: req.DoctorID,
		Date:     date,
		Time:     at,
		Notes:    req.Notes,
	})
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusCreated, b)
}

func (h *Handler) ListBookings(c *gin.Context) {
	var q model.ListBookingsQuery
	if !handler.BindQuery(c, &q) {
		return
	}

	filters := model.BookingFilters{
		DoctorID:   q.DoctorID,
		Status:     model.BookingStatus(q.Status),
		Pagination: model.Pagination{Page: q.Page, PageSize: q.PageSize},
	}
	if q.AppointmentDate != "" {
		d, _ := model.ParseDate(q.AppointmentDate)
		filters.AppointmentDate = &d
	}

	bookings, err := h.service.ListBookings(c.Request.Context(), middleware.CurrentIdentity(c), filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, bookings)
}

func (h *Handler) GetBooking(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}

	b, err := h.service.GetBooking(c.Request.Context(), middleware.CurrentIdentity(c), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, b)
}

func (h *Handler) UpdateBooking(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}
	var req model.UpdateBookingRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	patch := model.BookingPatch{Notes: req.Notes}
	if req.AppointmentDate != nil {
		d, _ := model.ParseDate(*req.AppointmentDate)
		patch.AppointmentDate = &d
	}
	if req.AppointmentTime != nil {
		t, _ := model.ParseTimeOfDay(*req.AppointmentTime)
		patch.AppointmentTime = &t
	}

	b, err := h.service.UpdateBooking(c.Request.Context(), middleware.CurrentIdentity(c), id, patch)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, b)
}

func (h *Handler) CancelBooking(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}

	b, err := h.service.CancelBooking(c.Request.Context(), middleware.CurrentIdentity(c), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, b)
}

func (h *Handler) ConfirmBooking(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}

	b, err := h.service.ConfirmByStaff(c.Request.Context(), middleware.CurrentIdentity(c), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, b)
}

func (h *Handler) CompleteBooking(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}

	b, err := h.service.CompleteBooking(c.Request.Context(), middleware.CurrentIdentity(c), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, b)
}
