package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Domenick1991/airreservation/internal/domain"
	"github.com/Domenick1991/airreservation/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var departure = time.Date(2026, 11, 1, 12, 0, 0, 0, time.UTC)

func seedFlight(t *testing.T, s *Store, number string, seats int) *domain.Flight {
	t.Helper()
	f := &domain.Flight{
		FlightNumber:     number,
		DepartureAirport: "IST",
		ArrivalAirport:   "LHR",
		DepartureTime:    departure,
		ArrivalTime:      departure.Add(4 * time.Hour),
		Status:           domain.FlightStatusScheduled,
		TotalSeats:       seats,
		AvailableSeats:   seats,
		BasePrice:        decimal.NewFromInt(100),
	}
	require.NoError(t, s.Flights().Create(context.Background(), f))
	return f
}

func reserve(f *domain.Flight) (*domain.Booking, error) {
	if !f.IsAvailable() || !f.ReserveSeat() {
		return nil, domain.ErrFlightNotAvailable
	}
	return &domain.Booking{
		Reference:  domain.NewBookingReference(),
		SeatClass:  domain.SeatClassEconomy,
		Passengers: 1,
		TotalPrice: f.BasePrice,
		Status:     domain.BookingStatusPending,
		CreatedAt:  departure.Add(-72 * time.Hour),
	}, nil
}

func TestStore_ConcurrentBookingsNeverOversell(t *testing.T) {
	s := NewStore()
	f := seedFlight(t, s, "TK1", 10)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		refused   int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := s.Bookings().Create(context.Background(), f.ID, reserve)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if errors.Is(err, domain.ErrNotAvailable) {
				refused++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded)
	assert.Equal(t, 40, refused)

	stored, err := s.Flights().GetByID(context.Background(), f.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.AvailableSeats)

	bookings, err := s.Bookings().ListByFlight(context.Background(), f.ID)
	require.NoError(t, err)
	assert.Len(t, bookings, 10)
}

func TestStore_FailedUpdateWritesNothing(t *testing.T) {
	s := NewStore()
	f := seedFlight(t, s, "TK2", 5)

	_, err := s.Flights().Update(context.Background(), f.ID, func(f *domain.Flight) error {
		f.ReserveSeat()
		return domain.ErrFlightNotModifiable
	})
	require.ErrorIs(t, err, domain.ErrFlightNotModifiable)

	stored, err := s.Flights().GetByID(context.Background(), f.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, stored.AvailableSeats)
}

func TestStore_ReturnsCopies(t *testing.T) {
	s := NewStore()
	f := seedFlight(t, s, "TK3", 5)

	got, err := s.Flights().GetByID(context.Background(), f.ID)
	require.NoError(t, err)
	got.AvailableSeats = 0

	again, err := s.Flights().GetByNumber(context.Background(), "TK3")
	require.NoError(t, err)
	assert.Equal(t, 5, again.AvailableSeats)
}

func TestStore_NotFound(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	_, err := s.Flights().GetByID(ctx, 42)
	assert.ErrorIs(t, err, domain.ErrFlightNotFound)
	_, err = s.Bookings().GetByReference(ctx, "BK404")
	assert.ErrorIs(t, err, domain.ErrBookingNotFound)
	_, err = s.Payments().GetByTransactionID(ctx, "TXN404")
	assert.ErrorIs(t, err, domain.ErrPaymentNotFound)
	_, err = s.Aircraft().GetByID(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrAircraftNotAvailable)
}

func TestStore_DuplicateFlightNumber(t *testing.T) {
	s := NewStore()
	seedFlight(t, s, "TK4", 5)

	err := s.Flights().Create(context.Background(), &domain.Flight{FlightNumber: "TK4"})
	assert.ErrorIs(t, err, domain.ErrInvalidData)
}

func TestStore_FlightQueries(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	open := seedFlight(t, s, "TK5", 5)
	full := seedFlight(t, s, "TK6", 1)
	over := seedFlight(t, s, "TK7", 2)

	_, err := s.Flights().Update(ctx, full.ID, func(f *domain.Flight) error {
		f.ReserveSeat()
		return nil
	})
	require.NoError(t, err)
	_, err = s.Flights().Update(ctx, over.ID, func(f *domain.Flight) error {
		f.AvailableSeats = -1
		return nil
	})
	require.NoError(t, err)

	available, err := s.Flights().ListUpcomingAvailable(ctx, departure.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, open.ID, available[0].ID)

	fullyBooked, err := s.Flights().ListFullyBooked(ctx)
	require.NoError(t, err)
	require.Len(t, fullyBooked, 1)
	assert.Equal(t, full.ID, fullyBooked[0].ID)

	overbooked, err := s.Flights().ListOverbooked(ctx)
	require.NoError(t, err)
	require.Len(t, overbooked, 1)
	assert.Equal(t, over.ID, overbooked[0].ID)

	soon, err := s.Flights().ListDepartingBetween(ctx, departure.Add(-2*time.Hour), departure)
	require.NoError(t, err)
	assert.Len(t, soon, 3)

	arrived, err := s.Flights().ListArrivedBetween(ctx, departure, departure.Add(5*time.Hour))
	require.NoError(t, err)
	assert.Len(t, arrived, 3)
}

func TestStore_PaymentUpdateSeesSiblings(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	f := seedFlight(t, s, "TK8", 5)
	b, _, err := s.Bookings().Create(ctx, f.ID, reserve)
	require.NoError(t, err)

	newPayment := func(amount int64) func(*domain.Booking) (*domain.Payment, error) {
		return func(*domain.Booking) (*domain.Payment, error) {
			return &domain.Payment{
				TransactionID: domain.NewTransactionID(),
				Amount:        decimal.NewFromInt(amount),
				Currency:      domain.DefaultCurrency,
				Method:        domain.PaymentMethodCash,
				Status:        domain.PaymentStatusPending,
			}, nil
		}
	}
	first, err := s.Payments().CreateForBooking(ctx, b.Reference, newPayment(60))
	require.NoError(t, err)
	second, err := s.Payments().CreateForBooking(ctx, b.Reference, newPayment(40))
	require.NoError(t, err)
	assert.Equal(t, b.ID, second.BookingID)

	state, err := s.Payments().Update(ctx, second.TransactionID, func(st *repository.PaymentState) error {
		assert.Len(t, st.Others, 1)
		assert.Equal(t, first.TransactionID, st.Others[0].TransactionID)
		return st.Payment.MarkCompleted(departure)
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusCompleted, state.Payment.Status)

	payments, err := s.Payments().ListByBooking(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, payments, 2)
	assert.Equal(t, domain.PaymentStatusPending, payments[0].Status)
	assert.Equal(t, domain.PaymentStatusCompleted, payments[1].Status)

	bookingState, err := s.Bookings().Update(ctx, b.Reference, func(st *repository.BookingState) error {
		assert.Len(t, st.Payments, 2)
		return st.Booking.Cancel(st.Flight, departure.Add(-48*time.Hour))
	})
	require.NoError(t, err)
	assert.Equal(t, 5, bookingState.Flight.AvailableSeats)

	stored, err := s.Bookings().GetByReference(ctx, b.Reference)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, stored.Status)
}

func TestStore_SearchAndOverdue(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	ist := seedFlight(t, s, "TK9", 5)
	cheap := seedFlight(t, s, "TK10", 5)
	_, err := s.Flights().Update(ctx, cheap.ID, func(f *domain.Flight) error {
		f.DepartureAirport, f.ArrivalAirport = "LHR", "JFK"
		f.DepartureTime = departure.Add(24 * time.Hour)
		f.BasePrice = decimal.NewFromInt(40)
		return nil
	})
	require.NoError(t, err)

	route, err := s.Flights().Search(ctx, repository.FlightSearch{
		DepartureAirport: "IST",
		ArrivalAirport:   "LHR",
		DepartsFrom:      departure.Truncate(24 * time.Hour),
		DepartsBefore:    departure.Truncate(24 * time.Hour).Add(24 * time.Hour),
		BookableOnly:     true,
	})
	require.NoError(t, err)
	require.Len(t, route, 1)
	assert.Equal(t, ist.ID, route[0].ID)

	viaLHR, err := s.Flights().Search(ctx, repository.FlightSearch{Airport: "LHR"})
	require.NoError(t, err)
	assert.Len(t, viaLHR, 2)

	affordable, err := s.Flights().Search(ctx, repository.FlightSearch{MaxPrice: decimal.NewNullDecimal(decimal.NewFromInt(50))})
	require.NoError(t, err)
	require.Len(t, affordable, 1)
	assert.Equal(t, cheap.ID, affordable[0].ID)

	overdue, err := s.Flights().ListOverdue(ctx, departure.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, ist.ID, overdue[0].ID)
}
