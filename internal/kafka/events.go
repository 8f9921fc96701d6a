package kafka

import (
	"time"

	"github.com/shopspring/decimal"
)

type EventType string

const (
	EventBookingCreated   EventType = "booking_created"
	EventBookingConfirmed EventType = "booking_confirmed"
	EventBookingCancelled EventType = "booking_cancelled"
	EventBookingCompleted EventType = "booking_completed"
	EventBookingNoShow    EventType = "booking_no_show"
	EventPaymentCompleted EventType = "payment_completed"
	EventPaymentFailed    EventType = "payment_failed"
	EventPaymentRefunded  EventType = "payment_refunded"
	EventFlightDelayed    EventType = "flight_delayed"
	EventFlightCancelled  EventType = "flight_cancelled"
	EventFlightUpdated    EventType = "flight_updated"
)

type BookingEvent struct {
	Type         EventType        `json:"type"`
	Reference    string           `json:"reference"`
	FlightID     int64            `json:"flight_id"`
	FlightNumber string           `json:"flight_number,omitempty"`
	Email        string           `json:"email"`
	Passenger    string           `json:"passenger,omitempty"`
	Status       string           `json:"status"`
	TotalPrice   decimal.Decimal  `json:"total_price"`
	Refund       *decimal.Decimal `json:"refund,omitempty"`
	OccurredAt   time.Time        `json:"occurred_at"`
}

type PaymentEvent struct {
	Type             EventType       `json:"type"`
	TransactionID    string          `json:"transaction_id"`
	BookingReference string          `json:"booking_reference"`
	Email            string          `json:"email"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	Method           string          `json:"method"`
	Status           string          `json:"status"`
	FailureReason    string          `json:"failure_reason,omitempty"`
	OccurredAt       time.Time       `json:"occurred_at"`
}

type FlightEvent struct {
	Type          EventType `json:"type"`
	FlightID      int64     `json:"flight_id"`
	FlightNumber  string    `json:"flight_number"`
	Status        string    `json:"status"`
	DepartureTime time.Time `json:"departure_time"`
	ArrivalTime   time.Time `json:"arrival_time"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Notification is what lands on the notifications topic; one per recipient.
type Notification struct {
	Type      EventType `json:"type"`
	Email     string    `json:"email"`
	Reference string    `json:"reference"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
}
