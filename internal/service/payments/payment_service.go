package payments

import (
	"context"
	"fmt"
	"strings"

	"github.com/Domenick1991/airreservation/internal/clock"
	"github.com/Domenick1991/airreservation/internal/domain"
	"github.com/Domenick1991/airreservation/internal/kafka"
	"github.com/Domenick1991/airreservation/internal/lock"
	"github.com/Domenick1991/airreservation/internal/money"
	"github.com/Domenick1991/airreservation/internal/repository"
	"github.com/Domenick1991/airreservation/internal/service/events"
	"github.com/Domenick1991/airreservation/internal/validation"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type PaymentUseCase interface {
	RecordPayment(ctx context.Context, input RecordPaymentInput) (*domain.Payment, error)
	GetPayment(ctx context.Context, transactionID string) (*domain.Payment, error)
	ListPayments(ctx context.Context, reference string) ([]domain.Payment, error)
	Summary(ctx context.Context, reference string) (*domain.PaymentSummary, error)
	CompletePayment(ctx context.Context, transactionID string) (*Settlement, error)
	FailPayment(ctx context.Context, transactionID, reason string) (*domain.Payment, error)
	CancelPayment(ctx context.Context, transactionID string) (*domain.Payment, error)
	RefundPayment(ctx context.Context, transactionID string) (*domain.Payment, error)
	DisputePayment(ctx context.Context, transactionID string) (*domain.Payment, error)
}

type PaymentService struct {
	payments  repository.PaymentRepository
	bookings  repository.BookingRepository
	locker    lock.Locker
	publisher *events.Publisher
	clock     clock.Clock
	logger    *zap.Logger
}

type RecordPaymentInput struct {
	BookingReference string               `json:"booking_reference" validate:"required"`
	Amount           decimal.Decimal      `json:"amount"`
	Currency         string               `json:"currency,omitempty" validate:"omitempty,len=3,alpha"`
	Method           domain.PaymentMethod `json:"method" validate:"required,oneof=CREDIT_CARD DEBIT_CARD PAYPAL APPLE_PAY GOOGLE_PAY BANK_TRANSFER CASH"`
}

// Settlement is a completed payment and the booking it was applied to.
// Confirmed is set when this payment paid the booking off and moved it out of PENDING.
type Settlement struct {
	Payment   *domain.Payment `json:"payment"`
	Booking   *domain.Booking `json:"booking"`
	Confirmed bool            `json:"confirmed"`
}

type PaymentServiceOption func(*PaymentService)

func WithLocker(l lock.Locker) PaymentServiceOption {
	return func(s *PaymentService) {
		s.locker = l
	}
}

func WithPublisher(p *events.Publisher) PaymentServiceOption {
	return func(s *PaymentService) {
		s.publisher = p
	}
}

func WithClock(c clock.Clock) PaymentServiceOption {
	return func(s *PaymentService) {
		s.clock = c
	}
}

func WithLogger(logger *zap.Logger) PaymentServiceOption {
	return func(s *PaymentService) {
		s.logger = logger
	}
}

func NewPaymentService(payments repository.PaymentRepository, bookings repository.BookingRepository, opts ...PaymentServiceOption) *PaymentService {
	service := &PaymentService{
		payments: payments,
		bookings: bookings,
		clock:    clock.Real(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// RecordPayment registers a PENDING payment against an open booking.
func (s *PaymentService) RecordPayment(ctx context.Context, input RecordPaymentInput) (*domain.Payment, error) {
	if err := validation.Struct(input); err != nil {
		return nil, err
	}
	if !money.Positive(input.Amount) {
		return nil, domain.InvalidDataError("amount must be positive")
	}
	currency := strings.ToUpper(input.Currency)
	if currency == "" {
		currency = domain.DefaultCurrency
	}

	release, err := lock.Acquire(ctx, s.locker, lock.BookingKey(input.BookingReference))
	if err != nil {
		return nil, err
	}
	defer release()

	now := s.clock.Now()
	payment, err := s.payments.CreateForBooking(ctx, input.BookingReference, func(b *domain.Booking) (*domain.Payment, error) {
		if b.Status.Closed() {
			return nil, fmt.Errorf("pay booking %s (%s): %w", b.Reference, b.Status, domain.ErrBookingClosed)
		}
		return &domain.Payment{
			TransactionID: domain.NewTransactionID(),
			BookingID:     b.ID,
			Amount:        input.Amount,
			Currency:      currency,
			Method:        input.Method,
			Status:        domain.PaymentStatusPending,
			CreatedAt:     now,
			UpdatedAt:     now,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("payment recorded",
		zap.String("transaction_id", payment.TransactionID),
		zap.String("booking_reference", input.BookingReference),
		zap.Stringer("amount", payment.Amount),
		zap.Bool("requires_approval", payment.RequiresApproval()))
	return payment, nil
}

func (s *PaymentService) GetPayment(ctx context.Context, transactionID string) (*domain.Payment, error) {
	return s.payments.GetByTransactionID(ctx, transactionID)
}

func (s *PaymentService) ListPayments(ctx context.Context, reference string) ([]domain.Payment, error) {
	b, err := s.bookings.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	return s.payments.ListByBooking(ctx, b.ID)
}

func (s *PaymentService) Summary(ctx context.Context, reference string) (*domain.PaymentSummary, error) {
	b, err := s.bookings.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	payments, err := s.payments.ListByBooking(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	summary := domain.Summarize(b, payments)
	return &summary, nil
}

// CompletePayment settles a pending payment. When the completed payments now
// cover the total, a PENDING booking is confirmed in the same transaction.
func (s *PaymentService) CompletePayment(ctx context.Context, transactionID string) (*Settlement, error) {
	confirmed := false
	state, err := s.update(ctx, transactionID, true, func(st *repository.PaymentState) error {
		now := s.clock.Now()
		if err := st.Payment.MarkCompleted(now); err != nil {
			return err
		}
		if st.Booking.Status == domain.BookingStatusPending && domain.IsFullyPaid(st.Booking.TotalPrice, st.All()) {
			if err := st.Booking.Confirm(now); err != nil {
				return err
			}
			confirmed = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, kafka.EventPaymentCompleted, state)
	if confirmed {
		s.logger.Info("booking paid in full", zap.String("reference", state.Booking.Reference))
		s.publisher.Booking(ctx, kafka.BookingEvent{
			Type:       kafka.EventBookingConfirmed,
			Reference:  state.Booking.Reference,
			FlightID:   state.Booking.FlightID,
			Email:      state.Booking.Email,
			Passenger:  state.Booking.FullName(),
			Status:     string(state.Booking.Status),
			TotalPrice: state.Booking.TotalPrice,
			OccurredAt: s.clock.Now(),
		})
		s.notify(ctx, kafka.EventBookingConfirmed, state,
			fmt.Sprintf("Booking %s is paid and confirmed", state.Booking.Reference))
	}
	return &Settlement{Payment: state.Payment, Booking: state.Booking, Confirmed: confirmed}, nil
}

func (s *PaymentService) FailPayment(ctx context.Context, transactionID, reason string) (*domain.Payment, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, domain.InvalidDataError("failure reason is required")
	}
	state, err := s.update(ctx, transactionID, true, func(st *repository.PaymentState) error {
		return st.Payment.MarkFailed(reason, s.clock.Now())
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, kafka.EventPaymentFailed, state)
	s.notify(ctx, kafka.EventPaymentFailed, state,
		fmt.Sprintf("Payment %s for booking %s failed: %s", transactionID, state.Booking.Reference, reason))
	return state.Payment, nil
}

func (s *PaymentService) CancelPayment(ctx context.Context, transactionID string) (*domain.Payment, error) {
	state, err := s.update(ctx, transactionID, true, func(st *repository.PaymentState) error {
		return st.Payment.MarkCancelled(s.clock.Now())
	})
	if err != nil {
		return nil, err
	}
	return state.Payment, nil
}

// RefundPayment is allowed on closed bookings; refunds usually follow a cancellation.
func (s *PaymentService) RefundPayment(ctx context.Context, transactionID string) (*domain.Payment, error) {
	state, err := s.update(ctx, transactionID, false, func(st *repository.PaymentState) error {
		return st.Payment.MarkRefunded(s.clock.Now())
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, kafka.EventPaymentRefunded, state)
	s.notify(ctx, kafka.EventPaymentRefunded, state,
		fmt.Sprintf("%s %s refunded for booking %s", state.Payment.Amount.StringFixed(2), state.Payment.Currency, state.Booking.Reference))
	return state.Payment, nil
}

// DisputePayment records a chargeback raised by the payer, which can arrive
// after the booking is closed.
func (s *PaymentService) DisputePayment(ctx context.Context, transactionID string) (*domain.Payment, error) {
	state, err := s.update(ctx, transactionID, false, func(st *repository.PaymentState) error {
		return st.Payment.MarkDisputed(s.clock.Now())
	})
	if err != nil {
		return nil, err
	}
	s.logger.Warn("payment disputed", zap.String("transaction_id", transactionID))
	return state.Payment, nil
}

// update holds the payment key for the duration of fn. With openOnly set,
// payments on closed bookings are refused.
func (s *PaymentService) update(ctx context.Context, transactionID string, openOnly bool, fn func(st *repository.PaymentState) error) (*repository.PaymentState, error) {
	release, err := lock.Acquire(ctx, s.locker, lock.PaymentKey(transactionID))
	if err != nil {
		return nil, err
	}
	defer release()

	return s.payments.Update(ctx, transactionID, func(st *repository.PaymentState) error {
		if openOnly && st.Booking.Status.Closed() {
			return fmt.Errorf("change payment %s on booking %s (%s): %w",
				transactionID, st.Booking.Reference, st.Booking.Status, domain.ErrBookingClosed)
		}
		return fn(st)
	})
}

func (s *PaymentService) publish(ctx context.Context, typ kafka.EventType, st *repository.PaymentState) {
	s.publisher.Payment(ctx, kafka.PaymentEvent{
		Type:             typ,
		TransactionID:    st.Payment.TransactionID,
		BookingReference: st.Booking.Reference,
		Email:            st.Booking.Email,
		Amount:           st.Payment.Amount,
		Currency:         st.Payment.Currency,
		Method:           string(st.Payment.Method),
		Status:           string(st.Payment.Status),
		FailureReason:    st.Payment.FailureReason,
		OccurredAt:       s.clock.Now(),
	})
}

func (s *PaymentService) notify(ctx context.Context, typ kafka.EventType, st *repository.PaymentState, subject string) {
	s.publisher.Notify(ctx, kafka.Notification{
		Type:      typ,
		Email:     st.Booking.Email,
		Reference: st.Booking.Reference,
		Subject:   subject,
		Body:      fmt.Sprintf("Dear %s, %s.", st.Booking.FullName(), subject),
	})
}

var _ PaymentUseCase = (*PaymentService)(nil)
