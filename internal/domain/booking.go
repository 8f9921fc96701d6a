package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/airreservation/internal/money"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
	BookingStatusCompleted BookingStatus = "COMPLETED"
	BookingStatusNoShow    BookingStatus = "NO_SHOW"
)

// Closed reports whether seat and payment changes are locked out.
func (s BookingStatus) Closed() bool {
	switch s {
	case BookingStatusCancelled, BookingStatusCompleted:
		return true
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusNoShow:
		return false
	}
	return false
}

// FullRefundNotice is how far ahead of departure a cancellation gets its money back in full.
const FullRefundNotice = 24 * time.Hour

type Booking struct {
	ID              int64           `json:"id"`
	Reference       string          `json:"reference"`
	FlightID        int64           `json:"flight_id"`
	UserID          int64           `json:"user_id"`
	Email           string          `json:"email"`
	FirstName       string          `json:"first_name"`
	LastName        string          `json:"last_name"`
	SeatClass       SeatClass       `json:"seat_class"`
	Passengers      int             `json:"passengers"`
	TotalPrice      decimal.Decimal `json:"total_price"`
	Status          BookingStatus   `json:"status"`
	SpecialRequests string          `json:"special_requests,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// NewBookingReference returns a fresh human-readable reference such as BK3F9A0C12D4.
func NewBookingReference() string {
	return "BK" + shortID(10)
}

func shortID(n int) string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:n])
}

func (b *Booking) CanBeCancelled(f *Flight, now time.Time) bool {
	if b.Status.Closed() || f == nil {
		return false
	}
	return !f.HasDeparted(now)
}

func (b *Booking) CanBeModified(f *Flight, now time.Time) bool {
	if b.Status.Closed() || f == nil {
		return false
	}
	return !f.IsDepartingSoon(now)
}

// RefundAmount applies the cancellation policy: nothing inside two hours of
// departure, everything with more than a day's notice, half in between.
func (b *Booking) RefundAmount(f *Flight, now time.Time) decimal.Decimal {
	if !b.CanBeCancelled(f, now) {
		return decimal.Zero
	}
	switch {
	case f.IsDepartingSoon(now):
		return decimal.Zero
	case f.DepartureTime.Add(-FullRefundNotice).After(now):
		return b.TotalPrice
	default:
		return b.TotalPrice.Mul(money.HalfRefund)
	}
}

// Cancel closes the booking and hands its seat back to the flight. Only one
// seat is released per booking, whatever the passenger count.
func (b *Booking) Cancel(f *Flight, now time.Time) error {
	if !b.CanBeCancelled(f, now) {
		return fmt.Errorf("cancel booking %s: %w", b.Reference, ErrBookingNotCancellable)
	}
	b.Status = BookingStatusCancelled
	b.UpdatedAt = now
	f.ReleaseSeat()
	return nil
}

func (b *Booking) Confirm(now time.Time) error {
	if b.Status != BookingStatusPending {
		return fmt.Errorf("confirm booking %s from %s: %w", b.Reference, b.Status, ErrInvalidTransition)
	}
	b.Status = BookingStatusConfirmed
	b.UpdatedAt = now
	return nil
}

// Complete closes a confirmed booking once its flight has landed and it is paid off.
func (b *Booking) Complete(f *Flight, payments []Payment, now time.Time) error {
	if b.Status != BookingStatusConfirmed {
		return fmt.Errorf("complete booking %s from %s: %w", b.Reference, b.Status, ErrInvalidTransition)
	}
	if !f.HasArrived(now) {
		return fmt.Errorf("complete booking %s: flight %s has not arrived: %w", b.Reference, f.FlightNumber, ErrNotAvailable)
	}
	if !IsFullyPaid(b.TotalPrice, payments) {
		return fmt.Errorf("complete booking %s: %w", b.Reference, ErrOutstandingBalance)
	}
	b.Status = BookingStatusCompleted
	b.UpdatedAt = now
	return nil
}

func (b *Booking) MarkNoShow(f *Flight, now time.Time) error {
	if b.Status != BookingStatusConfirmed {
		return fmt.Errorf("mark no-show %s from %s: %w", b.Reference, b.Status, ErrInvalidTransition)
	}
	if !f.HasDeparted(now) {
		return fmt.Errorf("mark no-show %s: flight %s has not departed: %w", b.Reference, f.FlightNumber, ErrNotAvailable)
	}
	b.Status = BookingStatusNoShow
	b.UpdatedAt = now
	return nil
}

func (b *Booking) IsGroupBooking() bool {
	return b.Passengers > 1
}

func (b *Booking) IsPremiumClass() bool {
	switch b.SeatClass {
	case SeatClassBusiness, SeatClassFirst:
		return true
	case SeatClassEconomy:
		return false
	}
	return false
}

// IsLastMinuteBooking is true when the booking was made less than a day before departure.
func (b *Booking) IsLastMinuteBooking(f *Flight) bool {
	if f == nil || b.CreatedAt.IsZero() {
		return false
	}
	return f.DepartureTime.Sub(b.CreatedAt) < FullRefundNotice
}

func (b *Booking) FullName() string {
	return strings.TrimSpace(b.FirstName + " " + b.LastName)
}
