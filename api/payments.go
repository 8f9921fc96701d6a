package api

import (
	"net/http"

	"github.com/Domenick1991/airreservation/internal/service/payments"
	"github.com/gin-gonic/gin"
)

type PaymentHandler struct {
	service payments.PaymentUseCase
}

type failPaymentRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func NewPaymentHandler(service payments.PaymentUseCase) *PaymentHandler {
	return &PaymentHandler{service: service}
}

// Register mounts /payments routes and the per-booking payment views on bookings.
func (h *PaymentHandler) Register(router *gin.RouterGroup, bookings *gin.RouterGroup) {
	router.POST("/", h.record)
	router.GET("/:transaction", h.get)
	router.POST("/:transaction/complete", h.complete)
	router.POST("/:transaction/fail", h.fail)
	router.POST("/:transaction/cancel", h.cancel)
	router.POST("/:transaction/refund", h.refund)
	router.POST("/:transaction/dispute", h.dispute)

	bookings.GET("/:reference/payments", h.listByBooking)
	bookings.GET("/:reference/balance", h.summary)
}

func (h *PaymentHandler) record(c *gin.Context) {
	var req payments.RecordPaymentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	p, err := h.service.RecordPayment(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *PaymentHandler) get(c *gin.Context) {
	p, err := h.service.GetPayment(c.Request.Context(), c.Param("transaction"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *PaymentHandler) complete(c *gin.Context) {
	settlement, err := h.service.CompletePayment(c.Request.Context(), c.Param("transaction"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, settlement)
}

func (h *PaymentHandler) fail(c *gin.Context) {
	var req failPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	p, err := h.service.FailPayment(c.Request.Context(), c.Param("transaction"), req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *PaymentHandler) cancel(c *gin.Context) {
	p, err := h.service.CancelPayment(c.Request.Context(), c.Param("transaction"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *PaymentHandler) refund(c *gin.Context) {
	p, err := h.service.RefundPayment(c.Request.Context(), c.Param("transaction"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *PaymentHandler) dispute(c *gin.Context) {
	p, err := h.service.DisputePayment(c.Request.Context(), c.Param("transaction"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *PaymentHandler) listByBooking(c *gin.Context) {
	list, err := h.service.ListPayments(c.Request.Context(), c.Param("reference"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *PaymentHandler) summary(c *gin.Context) {
	summary, err := h.service.Summary(c.Request.Context(), c.Param("reference"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
