package domain

import (
	"fmt"
	"time"

	"github.com/Domenick1991/airreservation/internal/money"
	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentMethodCreditCard   PaymentMethod = "CREDIT_CARD"
	PaymentMethodDebitCard    PaymentMethod = "DEBIT_CARD"
	PaymentMethodPayPal       PaymentMethod = "PAYPAL"
	PaymentMethodApplePay     PaymentMethod = "APPLE_PAY"
	PaymentMethodGooglePay    PaymentMethod = "GOOGLE_PAY"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodCash         PaymentMethod = "CASH"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCreditCard, PaymentMethodDebitCard, PaymentMethodPayPal, PaymentMethodApplePay,
		PaymentMethodGooglePay, PaymentMethodBankTransfer, PaymentMethodCash:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
	PaymentStatusDisputed  PaymentStatus = "DISPUTED"
)

const DefaultCurrency = "USD"

type Payment struct {
	ID            int64           `json:"id"`
	TransactionID string          `json:"transaction_id"`
	BookingID     int64           `json:"booking_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Method        PaymentMethod   `json:"method"`
	Status        PaymentStatus   `json:"status"`
	FailureReason string          `json:"failure_reason,omitempty"`
	PaidAt        *time.Time      `json:"paid_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func NewTransactionID() string {
	return "TXN" + shortID(12)
}

// MarkCompleted settles a pending payment and stamps the payment time.
func (p *Payment) MarkCompleted(now time.Time) error {
	if err := p.transition(PaymentStatusCompleted); err != nil {
		return err
	}
	p.PaidAt = &now
	p.UpdatedAt = now
	return nil
}

func (p *Payment) MarkFailed(reason string, now time.Time) error {
	if err := p.transition(PaymentStatusFailed); err != nil {
		return err
	}
	p.FailureReason = reason
	p.UpdatedAt = now
	return nil
}

func (p *Payment) MarkCancelled(now time.Time) error {
	if err := p.transition(PaymentStatusCancelled); err != nil {
		return err
	}
	p.UpdatedAt = now
	return nil
}

// MarkRefunded can happen once per payment; REFUNDED is terminal.
func (p *Payment) MarkRefunded(now time.Time) error {
	if err := p.transition(PaymentStatusRefunded); err != nil {
		return err
	}
	p.UpdatedAt = now
	return nil
}

func (p *Payment) MarkDisputed(now time.Time) error {
	if err := p.transition(PaymentStatusDisputed); err != nil {
		return err
	}
	p.UpdatedAt = now
	return nil
}

func (p *Payment) transition(to PaymentStatus) error {
	if !p.Status.canMoveTo(to) {
		return fmt.Errorf("payment %s %s -> %s: %w", p.TransactionID, p.Status, to, ErrInvalidTransition)
	}
	p.Status = to
	return nil
}

func (s PaymentStatus) canMoveTo(to PaymentStatus) bool {
	switch s {
	case PaymentStatusPending:
		return to == PaymentStatusCompleted || to == PaymentStatusFailed || to == PaymentStatusCancelled
	case PaymentStatusCompleted:
		return to == PaymentStatusRefunded || to == PaymentStatusDisputed
	case PaymentStatusFailed, PaymentStatusCancelled, PaymentStatusRefunded, PaymentStatusDisputed:
		return false
	}
	return false
}

func (p *Payment) IsCardPayment() bool {
	return p.Method == PaymentMethodCreditCard || p.Method == PaymentMethodDebitCard
}

func (p *Payment) IsDigitalPayment() bool {
	switch p.Method {
	case PaymentMethodPayPal, PaymentMethodApplePay, PaymentMethodGooglePay:
		return true
	case PaymentMethodCreditCard, PaymentMethodDebitCard, PaymentMethodBankTransfer, PaymentMethodCash:
		return false
	}
	return false
}

func (p *Payment) IsLargePayment() bool {
	return p.Amount.GreaterThan(money.LargePayment)
}

func (p *Payment) RequiresApproval() bool {
	return p.IsLargePayment() || p.IsCardPayment()
}

// TotalPaid sums COMPLETED payments only. A REFUNDED payment is neither
// counted nor subtracted.
func TotalPaid(payments []Payment) decimal.Decimal {
	completed := make([]decimal.Decimal, 0, len(payments))
	for _, p := range payments {
		if p.Status == PaymentStatusCompleted {
			completed = append(completed, p.Amount)
		}
	}
	return money.Sum(completed...)
}

func IsFullyPaid(totalPrice decimal.Decimal, payments []Payment) bool {
	return TotalPaid(payments).GreaterThanOrEqual(totalPrice)
}

// RemainingBalance goes negative on overpayment.
func RemainingBalance(totalPrice decimal.Decimal, payments []Payment) decimal.Decimal {
	return totalPrice.Sub(TotalPaid(payments))
}

type PaymentSummary struct {
	BookingReference string          `json:"booking_reference"`
	TotalPrice       decimal.Decimal `json:"total_price"`
	TotalPaid        decimal.Decimal `json:"total_paid"`
	Remaining        decimal.Decimal `json:"remaining_balance"`
	FullyPaid        bool            `json:"fully_paid"`
}

func Summarize(b *Booking, payments []Payment) PaymentSummary {
	return PaymentSummary{
		BookingReference: b.Reference,
		TotalPrice:       b.TotalPrice,
		TotalPaid:        TotalPaid(payments),
		Remaining:        RemainingBalance(b.TotalPrice, payments),
		FullyPaid:        IsFullyPaid(b.TotalPrice, payments),
	}
}
