package domain

import (
	"fmt"
	"time"

	"github.com/Domenick1991/airreservation/internal/money"
	"github.com/shopspring/decimal"
)

type FlightStatus string

const (
	FlightStatusScheduled FlightStatus = "SCHEDULED"
	FlightStatusBoarding  FlightStatus = "BOARDING"
	FlightStatusDeparted  FlightStatus = "DEPARTED"
	FlightStatusArrived   FlightStatus = "ARRIVED"
	FlightStatusCancelled FlightStatus = "CANCELLED"
	FlightStatusDelayed   FlightStatus = "DELAYED"
	FlightStatusDiverted  FlightStatus = "DIVERTED"
)

func (s FlightStatus) Valid() bool {
	switch s {
	case FlightStatusScheduled, FlightStatusBoarding, FlightStatusDeparted, FlightStatusArrived,
		FlightStatusCancelled, FlightStatusDelayed, FlightStatusDiverted:
		return true
	}
	return false
}

type SeatClass string

const (
	SeatClassEconomy  SeatClass = "ECONOMY"
	SeatClassBusiness SeatClass = "BUSINESS"
	SeatClassFirst    SeatClass = "FIRST"
)

func (c SeatClass) Valid() bool {
	switch c {
	case SeatClassEconomy, SeatClassBusiness, SeatClassFirst:
		return true
	}
	return false
}

// DepartingSoonWindow is how close to departure a flight counts as departing soon.
const DepartingSoonWindow = 2 * time.Hour

type Flight struct {
	ID                 int64               `json:"id"`
	FlightNumber       string              `json:"flight_number"`
	DepartureAirport   string              `json:"departure_airport"`
	ArrivalAirport     string              `json:"arrival_airport"`
	AircraftID         *int64              `json:"aircraft_id,omitempty"`
	DepartureTime      time.Time           `json:"departure_time"`
	ArrivalTime        time.Time           `json:"arrival_time"`
	Status             FlightStatus        `json:"status"`
	TotalSeats         int                 `json:"total_seats"`
	AvailableSeats     int                 `json:"available_seats"`
	BasePrice          decimal.Decimal     `json:"base_price"`
	BusinessClassPrice decimal.NullDecimal `json:"business_class_price"`
	FirstClassPrice    decimal.NullDecimal `json:"first_class_price"`
	Gate               string              `json:"gate,omitempty"`
	Terminal           string              `json:"terminal,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

// ReserveSeat takes one seat if any is left. At zero or below it does nothing;
// refusing the booking is the caller's job.
func (f *Flight) ReserveSeat() bool {
	if f.AvailableSeats > 0 {
		f.AvailableSeats--
		return true
	}
	return false
}

// ReleaseSeat gives one seat back unless the flight is already at capacity,
// so a repeated release cannot grow inventory.
func (f *Flight) ReleaseSeat() bool {
	if f.AvailableSeats < f.TotalSeats {
		f.AvailableSeats++
		return true
	}
	return false
}

func (f *Flight) OccupancyRate() float64 {
	return money.Percent(f.TotalSeats-f.AvailableSeats, f.TotalSeats)
}

func (f *Flight) IsAvailable() bool {
	return f.Status == FlightStatusScheduled && f.AvailableSeats > 0
}

func (f *Flight) IsFullyBooked() bool {
	return f.AvailableSeats <= 0
}

// IsOverbooked is a reportable state, distinct from fully booked.
func (f *Flight) IsOverbooked() bool {
	return f.AvailableSeats < 0
}

func (f *Flight) HasDeparted(now time.Time) bool {
	return now.After(f.DepartureTime)
}

func (f *Flight) HasArrived(now time.Time) bool {
	return now.After(f.ArrivalTime)
}

// IsDepartingSoon is true while departure is between zero and two hours away, both ends included.
func (f *Flight) IsDepartingSoon(now time.Time) bool {
	until := f.DepartureTime.Sub(now)
	return until >= 0 && until <= DepartingSoonWindow
}

func (f *Flight) CanBeCancelled(now time.Time) bool {
	return !f.HasDeparted(now) && f.Status == FlightStatusScheduled
}

func (f *Flight) CanBeDelayed(now time.Time) bool {
	return !f.HasDeparted(now) && f.Status == FlightStatusScheduled
}

func (f *Flight) PriceForClass(class SeatClass) (decimal.Decimal, error) {
	switch class {
	case SeatClassEconomy:
		return f.BasePrice, nil
	case SeatClassBusiness:
		if f.BusinessClassPrice.Valid {
			return f.BusinessClassPrice.Decimal, nil
		}
		return f.BasePrice.Mul(money.BusinessMultiplier), nil
	case SeatClassFirst:
		if f.FirstClassPrice.Valid {
			return f.FirstClassPrice.Decimal, nil
		}
		return f.BasePrice.Mul(money.FirstMultiplier), nil
	}
	return decimal.Zero, InvalidDataError("unknown seat class %q", class)
}

// Delay shifts the whole schedule by d and marks the flight DELAYED.
func (f *Flight) Delay(d time.Duration, now time.Time) error {
	if !f.CanBeDelayed(now) {
		return fmt.Errorf("delay flight %s: %w", f.FlightNumber, ErrFlightNotModifiable)
	}
	f.DepartureTime = f.DepartureTime.Add(d)
	f.ArrivalTime = f.ArrivalTime.Add(d)
	f.Status = FlightStatusDelayed
	return nil
}

func (f *Flight) Cancel(now time.Time) error {
	if !f.CanBeCancelled(now) {
		return fmt.Errorf("cancel flight %s: %w", f.FlightNumber, ErrFlightNotModifiable)
	}
	f.Status = FlightStatusCancelled
	return nil
}

func (f *Flight) Duration() time.Duration {
	return f.ArrivalTime.Sub(f.DepartureTime)
}

func (f *Flight) Route() string {
	if f.DepartureAirport == "" || f.ArrivalAirport == "" {
		return "Unknown Route"
	}
	return f.DepartureAirport + " → " + f.ArrivalAirport
}
