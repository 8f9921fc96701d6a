package repository

import (
	"testing"
	"time"

	"github.com/Domenick1991/airreservation/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFlightSearch_Where(t *testing.T) {
	day := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
	q := FlightSearch{
		DepartureAirport: "IST",
		Airport:          "LHR",
		DepartsFrom:      day,
		DepartsBefore:    day.Add(24 * time.Hour),
		MaxPrice:         decimal.NewNullDecimal(decimal.NewFromInt(300)),
		BookableOnly:     true,
	}

	where, args := q.where()

	assert.Equal(t, " WHERE departure_airport=$1 AND (departure_airport=$2 OR arrival_airport=$2)"+
		" AND departure_time >= $3 AND departure_time < $4 AND base_price <= $5 AND status=$6 AND available_seats > 0", where)
	assert.Equal(t, []any{"IST", "LHR", day, day.Add(24 * time.Hour), decimal.NewFromInt(300), domain.FlightStatusScheduled}, args)

	where, args = FlightSearch{}.where()
	assert.Empty(t, where)
	assert.Empty(t, args)
}

func TestFlightSearch_Matches(t *testing.T) {
	aircraft := int64(7)
	f := domain.Flight{
		DepartureAirport: "IST",
		ArrivalAirport:   "LHR",
		AircraftID:       &aircraft,
		DepartureTime:    time.Date(2026, 11, 1, 12, 0, 0, 0, time.UTC),
		Status:           domain.FlightStatusDelayed,
		AvailableSeats:   3,
		BasePrice:        decimal.NewFromInt(120),
	}
	other := int64(8)

	assert.True(t, FlightSearch{}.Matches(f))
	assert.True(t, FlightSearch{Airport: "LHR", AircraftID: &aircraft}.Matches(f))
	assert.False(t, FlightSearch{AircraftID: &other}.Matches(f))
	assert.False(t, FlightSearch{DepartsBefore: f.DepartureTime}.Matches(f))
	assert.True(t, FlightSearch{DepartsFrom: f.DepartureTime}.Matches(f))
	assert.False(t, FlightSearch{MinPrice: decimal.NewNullDecimal(decimal.NewFromInt(150))}.Matches(f))
	assert.False(t, FlightSearch{BookableOnly: true}.Matches(f))
}
