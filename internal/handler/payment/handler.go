package payment

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medmap/scheduling-api/internal/handler"
	"github.com/medmap/scheduling-api/internal/middleware"
	"github.com/medmap/scheduling-api/internal/model"
	"github.com/medmap/scheduling-api/internal/service/payment"
	"github.com/medmap/scheduling-api/pkg/httputil"
	"github.com/medmap/scheduling-api/pkg/logger"
)

type Handler struct {
	service *payment.Service
	logger  *logger.Logger
}

func NewHandler(service *payment.Service, logger *logger.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterPublicRoutes mounts the gateway webhook, which authenticates by signature only.
func (h *Handler) RegisterPublicRoutes(r *gin.RouterGroup) {
	r.POST("/payments/notify", h.Notify)
	r.POST("/payments/notify/", h.Notify)
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	payments := r.Group("/payments")
	{
		payments.POST("/bookings/:id/checkout", h.BookingCheckout)
		payments.POST("/memberships/checkout", h.MembershipCheckout)
		payments.GET("/transactions", h.ListTransactions)
	}
}

// Notify always answers 200 OK so the gateway does not redeliver. Problems
// are logged and counted by the service.
func (h *Handler) Notify(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		h.logger.Warn("unreadable payment notification",
			"error", err.Error(),
			"request_id", middleware.RequestIDFromContext(c.Request.Context()))
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
		return
	}

	fields := make(map[string]string, len(c.Request.PostForm))
	for k, v := range c.Request.PostForm {
		if len(v) > 0 {
			fields[k] = v[0]
		}
	}

	if _, err := h.service.HandleCallback(c.Request.Context(), fields); err != nil {
		h.logger.Error(err, "payment notification failed",
			"reference", fields["pf_payment_id"],
			"request_id", middleware.RequestIDFromContext(c.Request.Context()))
	}
	c.JSON(http.StatusOK, gin.H{"status": "OK"})
}

func (h *Handler) BookingCheckout(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}

	form, err := h.service.BookingCheckout(c.Request.Context(), middleware.CurrentIdentity(c), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, form)
}

func (h *Handler) MembershipCheckout(c *gin.Context) {
	var req model.MembershipCheckoutRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	form, err := h.service.MembershipCheckout(c.Request.Context(), middleware.CurrentIdentity(c), req.Plan)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, form)
}

func (h *Handler) ListTransactions(c *gin.Context) {
	var page model.Pagination
	if !handler.BindQuery(c, &page) {
		return
	}

	txs, err := h.service.ListTransactions(c.Request.Context(), middleware.CurrentIdentity(c), page)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, txs)
}
