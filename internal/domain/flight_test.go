package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var departure = time.Date(2026, 11, 1, 12, 0, 0, 0, time.UTC)

func newFlight(total, available int) *Flight {
	return &Flight{
		ID:               1,
		FlightNumber:     "TK1821",
		DepartureAirport: "IST",
		ArrivalAirport:   "LHR",
		DepartureTime:    departure,
		ArrivalTime:      departure.Add(4 * time.Hour),
		Status:           FlightStatusScheduled,
		TotalSeats:       total,
		AvailableSeats:   available,
		BasePrice:        decimal.NewFromInt(100),
	}
}

func TestFlight_ReserveSeat_AtZeroIsNoop(t *testing.T) {
	f := newFlight(1, 0)

	reserved := f.ReserveSeat()

	assert.False(t, reserved)
	assert.Equal(t, 0, f.AvailableSeats)
}

func TestFlight_ReleaseSeat_AtCapacityIsNoop(t *testing.T) {
	f := newFlight(3, 3)

	released := f.ReleaseSeat()

	assert.False(t, released)
	assert.Equal(t, 3, f.AvailableSeats)
}

func TestFlight_ReserveReleaseSequence(t *testing.T) {
	f := newFlight(2, 2)
	ops := []string{"reserve", "reserve", "reserve", "release", "release", "release", "reserve"}

	effectiveReserves, effectiveReleases := 0, 0
	for _, op := range ops {
		switch op {
		case "reserve":
			if f.ReserveSeat() {
				effectiveReserves++
			}
		case "release":
			if f.ReleaseSeat() {
				effectiveReleases++
			}
		}
		assert.GreaterOrEqual(t, f.AvailableSeats, 0)
		assert.LessOrEqual(t, f.AvailableSeats, f.TotalSeats)
	}

	assert.Equal(t, 3, effectiveReserves)
	assert.Equal(t, 2, effectiveReleases)
	assert.Equal(t, f.TotalSeats-effectiveReserves+effectiveReleases, f.AvailableSeats)
	assert.Equal(t, 1, f.AvailableSeats)
}

func TestFlight_Overbooking_IsReportedNotClamped(t *testing.T) {
	f := newFlight(10, -2)

	assert.True(t, f.IsOverbooked())
	assert.True(t, f.IsFullyBooked())
	assert.False(t, f.IsAvailable())
	assert.False(t, f.ReserveSeat())
	assert.Equal(t, -2, f.AvailableSeats)
	assert.InDelta(t, 120.0, f.OccupancyRate(), 0.0001)

	full := newFlight(10, 0)
	assert.True(t, full.IsFullyBooked())
	assert.False(t, full.IsOverbooked())
}

func TestFlight_OccupancyRate(t *testing.T) {
	assert.InDelta(t, 25.0, newFlight(4, 3).OccupancyRate(), 0.0001)
	assert.Equal(t, 0.0, newFlight(0, 0).OccupancyRate())
}

func TestFlight_IsAvailable(t *testing.T) {
	f := newFlight(5, 1)
	assert.True(t, f.IsAvailable())

	f.Status = FlightStatusDelayed
	assert.False(t, f.IsAvailable())
}

func TestFlight_TimePredicates(t *testing.T) {
	f := newFlight(5, 5)

	testCases := []struct {
		name      string
		now       time.Time
		departed  bool
		arrived   bool
		departing bool
	}{
		{name: "a day ahead", now: departure.Add(-24 * time.Hour)},
		{name: "just over two hours", now: departure.Add(-2*time.Hour - time.Second)},
		{name: "two hours fifty nine", now: departure.Add(-2*time.Hour - 59*time.Minute)},
		{name: "exactly two hours", now: departure.Add(-2 * time.Hour), departing: true},
		{name: "one hour", now: departure.Add(-time.Hour), departing: true},
		{name: "at departure", now: departure, departing: true},
		{name: "just departed", now: departure.Add(time.Second), departed: true},
		{name: "landed", now: departure.Add(5 * time.Hour), departed: true, arrived: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.departed, f.HasDeparted(tc.now))
			assert.Equal(t, tc.arrived, f.HasArrived(tc.now))
			assert.Equal(t, tc.departing, f.IsDepartingSoon(tc.now))
		})
	}
}

func TestFlight_PriceForClass(t *testing.T) {
	f := newFlight(5, 5)

	economy, err := f.PriceForClass(SeatClassEconomy)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(100).Equal(economy), economy.String())

	business, err := f.PriceForClass(SeatClassBusiness)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(250).Equal(business), business.String())

	first, err := f.PriceForClass(SeatClassFirst)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(400).Equal(first), first.String())

	f.BusinessClassPrice = decimal.NewNullDecimal(decimal.NewFromInt(199))
	business, err = f.PriceForClass(SeatClassBusiness)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(199).Equal(business), business.String())

	_, err = f.PriceForClass(SeatClass("PREMIUM_ECONOMY"))
	assert.ErrorIs(t, err, ErrInvalidData)
}

func TestFlight_Delay(t *testing.T) {
	f := newFlight(5, 5)
	now := departure.Add(-6 * time.Hour)

	err := f.Delay(90*time.Minute, now)

	require.NoError(t, err)
	assert.Equal(t, FlightStatusDelayed, f.Status)
	assert.Equal(t, departure.Add(90*time.Minute), f.DepartureTime)
	assert.Equal(t, departure.Add(4*time.Hour+90*time.Minute), f.ArrivalTime)

	// a delayed flight is no longer SCHEDULED, so it cannot be delayed again
	err = f.Delay(time.Hour, now)
	assert.ErrorIs(t, err, ErrFlightNotModifiable)
	assert.ErrorIs(t, err, ErrNotAvailable)
}

func TestFlight_Delay_AfterDeparture(t *testing.T) {
	f := newFlight(5, 5)

	err := f.Delay(time.Hour, departure.Add(time.Minute))

	assert.True(t, errors.Is(err, ErrFlightNotModifiable))
	assert.Equal(t, FlightStatusScheduled, f.Status)
	assert.Equal(t, departure, f.DepartureTime)
}

func TestFlight_Cancel(t *testing.T) {
	f := newFlight(5, 5)

	require.NoError(t, f.Cancel(departure.Add(-time.Hour)))
	assert.Equal(t, FlightStatusCancelled, f.Status)
	assert.ErrorIs(t, f.Cancel(departure.Add(-time.Hour)), ErrFlightNotModifiable)
}

func TestFlight_Route(t *testing.T) {
	assert.Equal(t, "IST → LHR", newFlight(1, 1).Route())
	assert.Equal(t, "Unknown Route", (&Flight{}).Route())
	assert.Equal(t, 4*time.Hour, newFlight(1, 1).Duration())
}

func TestAircraft_CheckAvailable(t *testing.T) {
	now := departure
	past := now.Add(-time.Hour)
	future := now.Add(24 * time.Hour)

	active := &Aircraft{Registration: "TC-JNA", Status: AircraftStatusActive, NextMaintenance: &future}
	assert.NoError(t, active.CheckAvailable(now))

	grounded := &Aircraft{Registration: "TC-JNB", Status: AircraftStatusGrounded}
	assert.ErrorIs(t, grounded.CheckAvailable(now), ErrAircraftNotAvailable)

	overdue := &Aircraft{Registration: "TC-JNC", Status: AircraftStatusActive, NextMaintenance: &past}
	assert.ErrorIs(t, overdue.CheckAvailable(now), ErrAircraftNotAvailable)
}
