package api

import (
	"net/http"

	"github.com/Domenick1991/airreservation/internal/service/booking"
	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	service booking.BookingUseCase
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

// Register mounts the booking routes, plus GET /flights/:id/bookings on flights.
func (h *BookingHandler) Register(router *gin.RouterGroup, flights *gin.RouterGroup) {
	router.POST("/", h.create)
	router.GET("/:reference", h.get)
	router.DELETE("/:reference", h.cancel)
	router.GET("/:reference/refund", h.quoteRefund)
	router.POST("/:reference/confirm", h.confirm)
	router.POST("/:reference/complete", h.complete)
	router.POST("/:reference/no-show", h.noShow)

	flights.GET("/:id/bookings", h.listByFlight)
}

func (h *BookingHandler) create(c *gin.Context) {
	var req booking.CreateBookingInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	b, err := h.service.CreateBooking(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

func (h *BookingHandler) get(c *gin.Context) {
	b, err := h.service.GetBooking(c.Request.Context(), c.Param("reference"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *BookingHandler) cancel(c *gin.Context) {
	result, err := h.service.CancelBooking(c.Request.Context(), c.Param("reference"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *BookingHandler) quoteRefund(c *gin.Context) {
	quote, err := h.service.QuoteRefund(c.Request.Context(), c.Param("reference"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

func (h *BookingHandler) confirm(c *gin.Context) {
	b, err := h.service.ConfirmBooking(c.Request.Context(), c.Param("reference"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *BookingHandler) complete(c *gin.Context) {
	b, err := h.service.CompleteBooking(c.Request.Context(), c.Param("reference"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *BookingHandler) noShow(c *gin.Context) {
	b, err := h.service.MarkNoShow(c.Request.Context(), c.Param("reference"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *BookingHandler) listByFlight(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	bookings, err := h.service.ListFlightBookings(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, bookings)
}
