package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/airreservation/internal/clock"
	"github.com/Domenick1991/airreservation/internal/domain"
	"github.com/Domenick1991/airreservation/internal/kafka"
	"github.com/Domenick1991/airreservation/internal/lock"
	"github.com/Domenick1991/airreservation/internal/repository"
	"github.com/Domenick1991/airreservation/internal/service/events"
	"github.com/Domenick1991/airreservation/internal/validation"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type BookingUseCase interface {
	CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error)
	GetBooking(ctx context.Context, reference string) (*domain.Booking, error)
	ListFlightBookings(ctx context.Context, flightID int64) ([]domain.Booking, error)
	ConfirmBooking(ctx context.Context, reference string) (*domain.Booking, error)
	CancelBooking(ctx context.Context, reference string) (*Cancellation, error)
	QuoteRefund(ctx context.Context, reference string) (*RefundQuote, error)
	CompleteBooking(ctx context.Context, reference string) (*domain.Booking, error)
	MarkNoShow(ctx context.Context, reference string) (*domain.Booking, error)
	CompleteArrivedBookings(ctx context.Context) ([]domain.Booking, error)
}

// Invalidator drops cached flight listings after seat counts change.
type Invalidator interface {
	InvalidateFlights(ctx context.Context) error
}

type BookingService struct {
	bookings  repository.BookingRepository
	flights   repository.FlightRepository
	cache     Invalidator
	locker    lock.Locker
	publisher *events.Publisher
	clock     clock.Clock
	logger    *zap.Logger

	arrivedLookback time.Duration
}

type CreateBookingInput struct {
	FlightID        int64            `json:"flight_id" validate:"required,gt=0"`
	UserID          int64            `json:"user_id" validate:"gte=0"`
	Email           string           `json:"email" validate:"required,email"`
	FirstName       string           `json:"first_name" validate:"required,max=100"`
	LastName        string           `json:"last_name" validate:"required,max=100"`
	SeatClass       domain.SeatClass `json:"seat_class" validate:"required,oneof=ECONOMY BUSINESS FIRST"`
	Passengers      int              `json:"passengers" validate:"required,gt=0,lte=9"`
	SpecialRequests string           `json:"special_requests,omitempty" validate:"max=500"`
}

type Cancellation struct {
	Booking *domain.Booking `json:"booking"`
	Refund  decimal.Decimal `json:"refund"`
}

// RefundQuote is what a cancellation would return right now, plus the derived
// facts support staff look at before cancelling.
type RefundQuote struct {
	Reference    string          `json:"reference"`
	TotalPrice   decimal.Decimal `json:"total_price"`
	Refund       decimal.Decimal `json:"refund"`
	Cancellable  bool            `json:"cancellable"`
	Modifiable   bool            `json:"modifiable"`
	GroupBooking bool            `json:"group_booking"`
	PremiumClass bool            `json:"premium_class"`
	LastMinute   bool            `json:"last_minute"`
}

type BookingServiceOption func(*BookingService)

func WithCache(cache Invalidator) BookingServiceOption {
	return func(s *BookingService) {
		s.cache = cache
	}
}

func WithLocker(l lock.Locker) BookingServiceOption {
	return func(s *BookingService) {
		s.locker = l
	}
}

func WithPublisher(p *events.Publisher) BookingServiceOption {
	return func(s *BookingService) {
		s.publisher = p
	}
}

func WithClock(c clock.Clock) BookingServiceOption {
	return func(s *BookingService) {
		s.clock = c
	}
}

func WithLogger(logger *zap.Logger) BookingServiceOption {
	return func(s *BookingService) {
		s.logger = logger
	}
}

// WithArrivedLookback bounds how far back CompleteArrivedBookings looks for landed flights.
func WithArrivedLookback(d time.Duration) BookingServiceOption {
	return func(s *BookingService) {
		s.arrivedLookback = d
	}
}

func NewBookingService(
	bookings repository.BookingRepository,
	flights repository.FlightRepository,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		bookings:        bookings,
		flights:         flights,
		clock:           clock.Real(),
		logger:          zap.NewNop(),
		arrivedLookback: 48 * time.Hour,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// CreateBooking takes one seat on the flight, whatever the passenger count,
// and prices the booking at the class fare times passengers.
func (s *BookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error) {
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	release, err := lock.Acquire(ctx, s.locker, lock.FlightKey(input.FlightID))
	if err != nil {
		return nil, err
	}
	defer release()

	now := s.clock.Now()
	booking, flight, err := s.bookings.Create(ctx, input.FlightID, func(f *domain.Flight) (*domain.Booking, error) {
		if !f.IsAvailable() || f.HasDeparted(now) {
			return nil, fmt.Errorf("book flight %s: %w", f.FlightNumber, domain.ErrFlightNotAvailable)
		}
		fare, err := f.PriceForClass(input.SeatClass)
		if err != nil {
			return nil, err
		}
		if !f.ReserveSeat() {
			return nil, fmt.Errorf("book flight %s: %w", f.FlightNumber, domain.ErrFlightNotAvailable)
		}
		f.UpdatedAt = now
		return &domain.Booking{
			Reference:       domain.NewBookingReference(),
			FlightID:        f.ID,
			UserID:          input.UserID,
			Email:           input.Email,
			FirstName:       input.FirstName,
			LastName:        input.LastName,
			SeatClass:       input.SeatClass,
			Passengers:      input.Passengers,
			TotalPrice:      fare.Mul(decimal.NewFromInt(int64(input.Passengers))),
			Status:          domain.BookingStatusPending,
			SpecialRequests: input.SpecialRequests,
			CreatedAt:       now,
			UpdatedAt:       now,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("booking created",
		zap.String("reference", booking.Reference),
		zap.String("flight_number", flight.FlightNumber),
		zap.Int("available_seats", flight.AvailableSeats))
	s.invalidate(ctx)
	s.publish(ctx, kafka.EventBookingCreated, booking, flight, nil)
	s.notify(ctx, kafka.EventBookingCreated, booking, "Booking "+booking.Reference+" received")
	return booking, nil
}

func (s *BookingService) GetBooking(ctx context.Context, reference string) (*domain.Booking, error) {
	return s.bookings.GetByReference(ctx, reference)
}

func (s *BookingService) ListFlightBookings(ctx context.Context, flightID int64) ([]domain.Booking, error) {
	if _, err := s.flights.GetByID(ctx, flightID); err != nil {
		return nil, err
	}
	return s.bookings.ListByFlight(ctx, flightID)
}

func (s *BookingService) ConfirmBooking(ctx context.Context, reference string) (*domain.Booking, error) {
	state, err := s.update(ctx, reference, func(st *repository.BookingState) error {
		return st.Booking.Confirm(s.clock.Now())
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, kafka.EventBookingConfirmed, state.Booking, state.Flight, nil)
	s.notify(ctx, kafka.EventBookingConfirmed, state.Booking, "Booking "+reference+" is confirmed")
	return state.Booking, nil
}

// CancelBooking closes the booking and gives its seat back in one transaction.
// The refund is computed against the same locked state.
func (s *BookingService) CancelBooking(ctx context.Context, reference string) (*Cancellation, error) {
	var refund decimal.Decimal
	state, err := s.update(ctx, reference, func(st *repository.BookingState) error {
		now := s.clock.Now()
		refund = st.Booking.RefundAmount(st.Flight, now)
		if err := st.Booking.Cancel(st.Flight, now); err != nil {
			return err
		}
		st.Flight.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("booking cancelled",
		zap.String("reference", reference),
		zap.Stringer("refund", refund),
		zap.Int("available_seats", state.Flight.AvailableSeats))
	s.invalidate(ctx)
	s.publish(ctx, kafka.EventBookingCancelled, state.Booking, state.Flight, &refund)
	s.notify(ctx, kafka.EventBookingCancelled, state.Booking,
		fmt.Sprintf("Booking %s is cancelled, refund %s", reference, refund.StringFixed(2)))
	return &Cancellation{Booking: state.Booking, Refund: refund}, nil
}

func (s *BookingService) QuoteRefund(ctx context.Context, reference string) (*RefundQuote, error) {
	b, err := s.bookings.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	f, err := s.flights.GetByID(ctx, b.FlightID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	return &RefundQuote{
		Reference:    b.Reference,
		TotalPrice:   b.TotalPrice,
		Refund:       b.RefundAmount(f, now),
		Cancellable:  b.CanBeCancelled(f, now),
		Modifiable:   b.CanBeModified(f, now),
		GroupBooking: b.IsGroupBooking(),
		PremiumClass: b.IsPremiumClass(),
		LastMinute:   b.IsLastMinuteBooking(f),
	}, nil
}

func (s *BookingService) CompleteBooking(ctx context.Context, reference string) (*domain.Booking, error) {
	state, err := s.update(ctx, reference, func(st *repository.BookingState) error {
		return st.Booking.Complete(st.Flight, st.Payments, s.clock.Now())
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, kafka.EventBookingCompleted, state.Booking, state.Flight, nil)
	s.notify(ctx, kafka.EventBookingCompleted, state.Booking, "Thank you for flying with us")
	return state.Booking, nil
}

func (s *BookingService) MarkNoShow(ctx context.Context, reference string) (*domain.Booking, error) {
	state, err := s.update(ctx, reference, func(st *repository.BookingState) error {
		return st.Booking.MarkNoShow(st.Flight, s.clock.Now())
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, kafka.EventBookingNoShow, state.Booking, state.Flight, nil)
	return state.Booking, nil
}

// CompleteArrivedBookings completes every confirmed, fully paid booking on a
// flight that landed within the lookback window. Bookings that still owe money
// are left CONFIRMED.
func (s *BookingService) CompleteArrivedBookings(ctx context.Context) ([]domain.Booking, error) {
	now := s.clock.Now()
	flights, err := s.flights.ListArrivedBetween(ctx, now.Add(-s.arrivedLookback), now)
	if err != nil {
		return nil, err
	}

	completed := make([]domain.Booking, 0)
	for _, f := range flights {
		bookings, err := s.bookings.ListByFlight(ctx, f.ID)
		if err != nil {
			return completed, err
		}
		for _, b := range bookings {
			if b.Status != domain.BookingStatusConfirmed {
				continue
			}
			done, err := s.CompleteBooking(ctx, b.Reference)
			switch {
			case err == nil:
				completed = append(completed, *done)
			case errors.Is(err, domain.ErrOutstandingBalance):
				s.logger.Info("booking not completed, balance outstanding", zap.String("reference", b.Reference))
			default:
				s.logger.Warn("complete booking", zap.String("reference", b.Reference), zap.Error(err))
			}
		}
	}
	return completed, nil
}

// update locks the booking and then its flight, the same order the
// repository takes row locks in.
func (s *BookingService) update(ctx context.Context, reference string, fn func(st *repository.BookingState) error) (*repository.BookingState, error) {
	current, err := s.bookings.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}

	release, err := lock.Acquire(ctx, s.locker, lock.BookingKey(reference), lock.FlightKey(current.FlightID))
	if err != nil {
		return nil, err
	}
	defer release()

	return s.bookings.Update(ctx, reference, fn)
}

func (s *BookingService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateFlights(ctx); err != nil {
		s.logger.Warn("flight cache invalidation failed", zap.Error(err))
	}
}

func (s *BookingService) publish(ctx context.Context, typ kafka.EventType, b *domain.Booking, f *domain.Flight, refund *decimal.Decimal) {
	s.publisher.Booking(ctx, kafka.BookingEvent{
		Type:         typ,
		Reference:    b.Reference,
		FlightID:     b.FlightID,
		FlightNumber: f.FlightNumber,
		Email:        b.Email,
		Passenger:    b.FullName(),
		Status:       string(b.Status),
		TotalPrice:   b.TotalPrice,
		Refund:       refund,
		OccurredAt:   s.clock.Now(),
	})
}

func (s *BookingService) notify(ctx context.Context, typ kafka.EventType, b *domain.Booking, subject string) {
	s.publisher.Notify(ctx, kafka.Notification{
		Type:      typ,
		Email:     b.Email,
		Reference: b.Reference,
		Subject:   subject,
		Body:      fmt.Sprintf("Dear %s, %s.", b.FullName(), subject),
	})
}

var _ BookingUseCase = (*BookingService)(nil)
