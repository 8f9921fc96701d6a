package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Domenick1991/airreservation/internal/domain"
	"github.com/Domenick1991/airreservation/internal/service/flights"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type FlightHandler struct {
	service flights.FlightUseCase
}

type delayRequest struct {
	Minutes int `json:"minutes" binding:"required,gt=0"`
}

type priceResponse struct {
	FlightID  int64            `json:"flight_id"`
	SeatClass domain.SeatClass `json:"seat_class"`
	Price     string           `json:"price"`
}

func NewFlightHandler(service flights.FlightUseCase) *FlightHandler {
	return &FlightHandler{service: service}
}

func (h *FlightHandler) Register(router *gin.RouterGroup) {
	router.GET("/", h.list)
	router.POST("/", h.create)
	router.GET("/:id", h.get)
	router.PATCH("/:id", h.update)
	router.GET("/:id/price", h.price)
	router.GET("/:id/occupancy", h.occupancy)
	router.POST("/:id/cancel", h.cancel)
	router.POST("/:id/delay", h.delay)
	router.POST("/:id/seats/reserve", h.reserveSeat)
	router.POST("/:id/seats/release", h.releaseSeat)
}

// searchParams switch GET /flights from a plain listing to a search.
var searchParams = []string{"from", "to", "airport", "aircraft_id", "date", "departs_after", "departs_before",
	"min_price", "max_price", "include_unavailable"}

// list serves GET /flights, optionally narrowed by ?number=, ?status=, ?filter=
// or the search parameters.
func (h *FlightHandler) list(c *gin.Context) {
	ctx := c.Request.Context()
	for _, key := range searchParams {
		if _, ok := c.GetQuery(key); ok {
			h.search(c)
			return
		}
	}
	if number := c.Query("number"); number != "" {
		flight, err := h.service.GetByNumber(ctx, number)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, []domain.Flight{*flight})
		return
	}
	if status := c.Query("status"); status != "" {
		result, err := h.service.ListByStatus(ctx, domain.FlightStatus(status))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
		return
	}

	var (
		result []domain.Flight
		err    error
	)
	switch c.Query("filter") {
	case "":
		result, err = h.service.List(ctx)
	case "available":
		result, err = h.service.ListAvailable(ctx)
	case "departing_soon":
		result, err = h.service.ListDepartingSoon(ctx)
	case "fully_booked":
		result, err = h.service.ListFullyBooked(ctx)
	case "overbooked":
		result, err = h.service.ListOverbooked(ctx)
	case "overdue":
		result, err = h.service.ListOverdue(ctx)
	default:
		badRequest(c, "unknown filter "+c.Query("filter"))
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *FlightHandler) search(c *gin.Context) {
	input, err := searchInput(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	result, err := h.service.Search(c.Request.Context(), input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func searchInput(c *gin.Context) (flights.SearchFlightsInput, error) {
	input := flights.SearchFlightsInput{
		From:    c.Query("from"),
		To:      c.Query("to"),
		Airport: c.Query("airport"),
	}
	if v := c.Query("aircraft_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return input, fmt.Errorf("invalid aircraft_id %q", v)
		}
		input.AircraftID = &id
	}
	if v := c.Query("date"); v != "" {
		day, err := time.Parse(time.DateOnly, v)
		if err != nil {
			return input, fmt.Errorf("date must look like 2006-01-02, got %q", v)
		}
		input.Date = &day
	}
	for key, dst := range map[string]**time.Time{
		"departs_after":  &input.DepartsAfter,
		"departs_before": &input.DepartsBefore,
	} {
		if v := c.Query(key); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				return input, fmt.Errorf("%s must be RFC 3339, got %q", key, v)
			}
			*dst = &t
		}
	}
	for key, dst := range map[string]*decimal.NullDecimal{
		"min_price": &input.MinPrice,
		"max_price": &input.MaxPrice,
	} {
		if v := c.Query(key); v != "" {
			d, err := decimal.NewFromString(v)
			if err != nil {
				return input, fmt.Errorf("invalid %s %q", key, v)
			}
			*dst = decimal.NewNullDecimal(d)
		}
	}
	if v := c.Query("include_unavailable"); v != "" {
		include, err := strconv.ParseBool(v)
		if err != nil {
			return input, fmt.Errorf("invalid include_unavailable %q", v)
		}
		input.IncludeUnavailable = include
	}
	return input, nil
}

func (h *FlightHandler) create(c *gin.Context) {
	var req flights.CreateFlightInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	flight, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, flight)
}

func (h *FlightHandler) get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	flight, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, flight)
}

func (h *FlightHandler) update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req flights.UpdateFlightInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	flight, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, flight)
}

func (h *FlightHandler) price(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	class := domain.SeatClass(c.DefaultQuery("class", string(domain.SeatClassEconomy)))
	price, err := h.service.Price(c.Request.Context(), id, class)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, priceResponse{FlightID: id, SeatClass: class, Price: price.StringFixed(2)})
}

func (h *FlightHandler) occupancy(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	occupancy, err := h.service.Occupancy(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, occupancy)
}

func (h *FlightHandler) cancel(c *gin.Context) {
	h.mutate(c, h.service.Cancel)
}

func (h *FlightHandler) delay(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req delayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	flight, err := h.service.Delay(c.Request.Context(), id, time.Duration(req.Minutes)*time.Minute)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, flight)
}

func (h *FlightHandler) reserveSeat(c *gin.Context) {
	h.mutate(c, h.service.ReserveSeat)
}

func (h *FlightHandler) releaseSeat(c *gin.Context) {
	h.mutate(c, h.service.ReleaseSeat)
}

func (h *FlightHandler) mutate(c *gin.Context, op func(ctx context.Context, id int64) (*domain.Flight, error)) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	flight, err := op(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, flight)
}
