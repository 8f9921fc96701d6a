package repository

import (
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/airreservation/internal/domain"
	"github.com/shopspring/decimal"
)

// FlightSearch narrows a flight listing. Zero fields do not filter.
type FlightSearch struct {
	DepartureAirport string
	ArrivalAirport   string
	// Airport matches either end of the route.
	Airport    string
	AircraftID *int64
	// DepartsFrom is inclusive, DepartsBefore exclusive.
	DepartsFrom   time.Time
	DepartsBefore time.Time
	MinPrice      decimal.NullDecimal
	MaxPrice      decimal.NullDecimal
	// BookableOnly keeps SCHEDULED flights with seats left.
	BookableOnly bool
}

func (q FlightSearch) Matches(f domain.Flight) bool {
	switch {
	case q.DepartureAirport != "" && f.DepartureAirport != q.DepartureAirport:
		return false
	case q.ArrivalAirport != "" && f.ArrivalAirport != q.ArrivalAirport:
		return false
	case q.Airport != "" && f.DepartureAirport != q.Airport && f.ArrivalAirport != q.Airport:
		return false
	case q.AircraftID != nil && (f.AircraftID == nil || *f.AircraftID != *q.AircraftID):
		return false
	case !q.DepartsFrom.IsZero() && f.DepartureTime.Before(q.DepartsFrom):
		return false
	case !q.DepartsBefore.IsZero() && !f.DepartureTime.Before(q.DepartsBefore):
		return false
	case q.MinPrice.Valid && f.BasePrice.LessThan(q.MinPrice.Decimal):
		return false
	case q.MaxPrice.Valid && f.BasePrice.GreaterThan(q.MaxPrice.Decimal):
		return false
	case q.BookableOnly && !f.IsAvailable():
		return false
	}
	return true
}

// where renders the criteria as a SQL WHERE clause with numbered placeholders.
func (q FlightSearch) where() (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if q.DepartureAirport != "" {
		add("departure_airport=$%d", q.DepartureAirport)
	}
	if q.ArrivalAirport != "" {
		add("arrival_airport=$%d", q.ArrivalAirport)
	}
	if q.Airport != "" {
		args = append(args, q.Airport)
		conds = append(conds, fmt.Sprintf("(departure_airport=$%[1]d OR arrival_airport=$%[1]d)", len(args)))
	}
	if q.AircraftID != nil {
		add("aircraft_id=$%d", *q.AircraftID)
	}
	if !q.DepartsFrom.IsZero() {
		add("departure_time >= $%d", q.DepartsFrom)
	}
	if !q.DepartsBefore.IsZero() {
		add("departure_time < $%d", q.DepartsBefore)
	}
	if q.MinPrice.Valid {
		add("base_price >= $%d", q.MinPrice.Decimal)
	}
	if q.MaxPrice.Valid {
		add("base_price <= $%d", q.MaxPrice.Decimal)
	}
	if q.BookableOnly {
		add("status=$%d", domain.FlightStatusScheduled)
		conds = append(conds, "available_seats > 0")
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
