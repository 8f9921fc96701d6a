package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Domenick1991/airreservation/internal/domain"
	"github.com/Domenick1991/airreservation/internal/service/flights"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockFlightUseCase overrides the flight operations the handlers under test call.
type MockFlightUseCase struct {
	mock.Mock
	flights.FlightUseCase
}

func (m *MockFlightUseCase) List(ctx context.Context) ([]domain.Flight, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Flight), args.Error(1)
}

func (m *MockFlightUseCase) ListAvailable(ctx context.Context) ([]domain.Flight, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Flight), args.Error(1)
}

func (m *MockFlightUseCase) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Flight), args.Error(1)
}

func (m *MockFlightUseCase) GetByNumber(ctx context.Context, number string) (*domain.Flight, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Flight), args.Error(1)
}

func (m *MockFlightUseCase) Create(ctx context.Context, input flights.CreateFlightInput) (*domain.Flight, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Flight), args.Error(1)
}

func (m *MockFlightUseCase) Delay(ctx context.Context, id int64, by time.Duration) (*domain.Flight, error) {
	args := m.Called(ctx, id, by)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Flight), args.Error(1)
}

func (m *MockFlightUseCase) Cancel(ctx context.Context, id int64) (*domain.Flight, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Flight), args.Error(1)
}

func (m *MockFlightUseCase) Price(ctx context.Context, id int64, class domain.SeatClass) (decimal.Decimal, error) {
	args := m.Called(ctx, id, class)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockFlightUseCase) ListOverdue(ctx context.Context) ([]domain.Flight, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Flight), args.Error(1)
}

func (m *MockFlightUseCase) Search(ctx context.Context, input flights.SearchFlightsInput) ([]domain.Flight, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Flight), args.Error(1)
}

func (m *MockFlightUseCase) Update(ctx context.Context, id int64, input flights.UpdateFlightInput) (*domain.Flight, error) {
	args := m.Called(ctx, id, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Flight), args.Error(1)
}

func newTestContext(method, target, body string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, target, strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return c, w
}

func sampleFlight() domain.Flight {
	departure := time.Date(2026, 11, 1, 12, 0, 0, 0, time.UTC)
	return domain.Flight{
		ID:               1,
		FlightNumber:     "TK1821",
		DepartureAirport: "IST",
		ArrivalAirport:   "LHR",
		DepartureTime:    departure,
		ArrivalTime:      departure.Add(4 * time.Hour),
		Status:           domain.FlightStatusScheduled,
		TotalSeats:       180,
		AvailableSeats:   42,
		BasePrice:        decimal.NewFromInt(100),
	}
}

func TestFlightHandler_list(t *testing.T) {
	mockService := &MockFlightUseCase{}
	handler := NewFlightHandler(mockService)
	c, w := newTestContext("GET", "/flights", "")

	mockService.On("List", c.Request.Context()).Return([]domain.Flight{sampleFlight()}, nil)

	handler.list(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var got []domain.Flight
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "TK1821", got[0].FlightNumber)
	mockService.AssertExpectations(t)
}

func TestFlightHandler_list_Filters(t *testing.T) {
	mockService := &MockFlightUseCase{}
	handler := NewFlightHandler(mockService)

	c, w := newTestContext("GET", "/flights?filter=available", "")
	mockService.On("ListAvailable", c.Request.Context()).Return([]domain.Flight{}, nil)
	handler.list(c)
	assert.Equal(t, http.StatusOK, w.Code)

	c, w = newTestContext("GET", "/flights?number=TK1821", "")
	f := sampleFlight()
	mockService.On("GetByNumber", c.Request.Context(), "TK1821").Return(&f, nil)
	handler.list(c)
	assert.Equal(t, http.StatusOK, w.Code)

	c, w = newTestContext("GET", "/flights?filter=cheapest", "")
	handler.list(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	mockService.AssertExpectations(t)
}

func TestFlightHandler_get(t *testing.T) {
	mockService := &MockFlightUseCase{}
	handler := NewFlightHandler(mockService)
	c, w := newTestContext("GET", "/flights/1", "")
	c.Params = gin.Params{{Key: "id", Value: "1"}}

	f := sampleFlight()
	mockService.On("GetByID", c.Request.Context(), int64(1)).Return(&f, nil)

	handler.get(c)

	assert.Equal(t, http.StatusOK, w.Code)
	mockService.AssertExpectations(t)
}

func TestFlightHandler_get_Errors(t *testing.T) {
	mockService := &MockFlightUseCase{}
	handler := NewFlightHandler(mockService)

	c, w := newTestContext("GET", "/flights/abc", "")
	c.Params = gin.Params{{Key: "id", Value: "abc"}}
	handler.get(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, w = newTestContext("GET", "/flights/9", "")
	c.Params = gin.Params{{Key: "id", Value: "9"}}
	mockService.On("GetByID", c.Request.Context(), int64(9)).Return(nil, domain.ErrFlightNotFound)
	handler.get(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "flight not found")
}

func TestFlightHandler_create(t *testing.T) {
	mockService := &MockFlightUseCase{}
	handler := NewFlightHandler(mockService)
	body := `{"flight_number":"TK1821","departure_airport":"IST","arrival_airport":"LHR",
		"departure_time":"2026-11-01T12:00:00Z","arrival_time":"2026-11-01T16:00:00Z",
		"total_seats":180,"base_price":"100.00"}`
	c, w := newTestContext("POST", "/flights", body)

	f := sampleFlight()
	mockService.On("Create", c.Request.Context(), mock.MatchedBy(func(in flights.CreateFlightInput) bool {
		return in.FlightNumber == "TK1821" && in.TotalSeats == 180 && in.BasePrice.Equal(decimal.NewFromInt(100))
	})).Return(&f, nil)

	handler.create(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	mockService.AssertExpectations(t)
}

func TestFlightHandler_create_InvalidData(t *testing.T) {
	mockService := &MockFlightUseCase{}
	handler := NewFlightHandler(mockService)
	c, w := newTestContext("POST", "/flights", `{"flight_number":"TK1"}`)

	mockService.On("Create", c.Request.Context(), mock.Anything).
		Return(nil, domain.InvalidDataError("departure_airport is required"))

	handler.create(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, w = newTestContext("POST", "/flights", `{not json`)
	handler.create(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFlightHandler_delay(t *testing.T) {
	mockService := &MockFlightUseCase{}
	handler := NewFlightHandler(mockService)
	c, w := newTestContext("POST", "/flights/1/delay", `{"minutes":45}`)
	c.Params = gin.Params{{Key: "id", Value: "1"}}

	f := sampleFlight()
	f.Status = domain.FlightStatusDelayed
	mockService.On("Delay", c.Request.Context(), int64(1), 45*time.Minute).Return(&f, nil)

	handler.delay(c)

	assert.Equal(t, http.StatusOK, w.Code)
	mockService.AssertExpectations(t)

	c, w = newTestContext("POST", "/flights/1/delay", `{"minutes":0}`)
	c.Params = gin.Params{{Key: "id", Value: "1"}}
	handler.delay(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFlightHandler_cancel_Conflict(t *testing.T) {
	mockService := &MockFlightUseCase{}
	handler := NewFlightHandler(mockService)
	c, w := newTestContext("POST", "/flights/1/cancel", "")
	c.Params = gin.Params{{Key: "id", Value: "1"}}

	mockService.On("Cancel", c.Request.Context(), int64(1)).Return(nil, domain.ErrFlightNotModifiable)

	handler.cancel(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	mockService.AssertExpectations(t)
}

func TestFlightHandler_price(t *testing.T) {
	mockService := &MockFlightUseCase{}
	handler := NewFlightHandler(mockService)
	c, w := newTestContext("GET", "/flights/1/price?class=BUSINESS", "")
	c.Params = gin.Params{{Key: "id", Value: "1"}}

	mockService.On("Price", c.Request.Context(), int64(1), domain.SeatClassBusiness).
		Return(decimal.NewFromInt(250), nil)

	handler.price(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"flight_id":1,"seat_class":"BUSINESS","price":"250.00"}`, w.Body.String())
}

func TestStatusFor(t *testing.T) {
	testCases := []struct {
		err      error
		expected int
	}{
		{domain.InvalidDataError("bad"), http.StatusBadRequest},
		{domain.ErrBookingNotFound, http.StatusNotFound},
		{domain.ErrFlightNotAvailable, http.StatusConflict},
		{domain.ErrAircraftNotFound, http.StatusConflict},
		{context.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.expected, statusFor(tc.err), tc.err.Error())
	}
}

func TestFlightHandler_list_Search(t *testing.T) {
	mockService := &MockFlightUseCase{}
	handler := NewFlightHandler(mockService)
	c, w := newTestContext("GET", "/flights?from=IST&to=LHR&date=2026-11-01&max_price=250.50", "")

	mockService.On("Search", c.Request.Context(), mock.MatchedBy(func(in flights.SearchFlightsInput) bool {
		return in.From == "IST" && in.To == "LHR" &&
			in.Date != nil && in.Date.Equal(time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)) &&
			in.MaxPrice.Valid && in.MaxPrice.Decimal.Equal(decimal.RequireFromString("250.50")) &&
			!in.MinPrice.Valid && !in.IncludeUnavailable
	})).Return([]domain.Flight{sampleFlight()}, nil)

	handler.list(c)

	assert.Equal(t, http.StatusOK, w.Code)
	mockService.AssertExpectations(t)
}

func TestFlightHandler_list_SearchBadParams(t *testing.T) {
	for _, target := range []string{
		"/flights?date=01.11.2026",
		"/flights?aircraft_id=abc",
		"/flights?departs_after=tomorrow",
		"/flights?min_price=cheap",
		"/flights?include_unavailable=maybe",
	} {
		t.Run(target, func(t *testing.T) {
			mockService := &MockFlightUseCase{}
			handler := NewFlightHandler(mockService)
			c, w := newTestContext("GET", target, "")

			handler.list(c)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			mockService.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
		})
	}
}

func TestFlightHandler_list_Overdue(t *testing.T) {
	mockService := &MockFlightUseCase{}
	handler := NewFlightHandler(mockService)
	c, w := newTestContext("GET", "/flights?filter=overdue", "")

	mockService.On("ListOverdue", c.Request.Context()).Return([]domain.Flight{sampleFlight()}, nil)

	handler.list(c)

	assert.Equal(t, http.StatusOK, w.Code)
	mockService.AssertExpectations(t)
}

func TestFlightHandler_update(t *testing.T) {
	mockService := &MockFlightUseCase{}
	handler := NewFlightHandler(mockService)
	c, w := newTestContext("PATCH", "/flights/1", `{"status":"BOARDING","gate":"B12","base_price":"110"}`)
	c.Params = gin.Params{{Key: "id", Value: "1"}}

	f := sampleFlight()
	f.Status = domain.FlightStatusBoarding
	mockService.On("Update", c.Request.Context(), int64(1), mock.MatchedBy(func(in flights.UpdateFlightInput) bool {
		return in.Status != nil && *in.Status == domain.FlightStatusBoarding &&
			in.Gate != nil && *in.Gate == "B12" &&
			in.BasePrice != nil && in.BasePrice.Equal(decimal.NewFromInt(110)) &&
			in.DepartureTime == nil && in.Terminal == nil
	})).Return(&f, nil)

	handler.update(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"BOARDING"`)
	mockService.AssertExpectations(t)
}

func TestFlightHandler_update_Errors(t *testing.T) {
	mockService := &MockFlightUseCase{}
	handler := NewFlightHandler(mockService)

	c, w := newTestContext("PATCH", "/flights/1", `{"status":`)
	c.Params = gin.Params{{Key: "id", Value: "1"}}
	handler.update(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, w = newTestContext("PATCH", "/flights/2", `{"gate":"C3"}`)
	c.Params = gin.Params{{Key: "id", Value: "2"}}
	mockService.On("Update", c.Request.Context(), int64(2), mock.Anything).Return(nil, domain.ErrFlightNotFound)
	handler.update(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
