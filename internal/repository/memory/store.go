// Package memory keeps flights, bookings, payments and aircraft in id-indexed
// maps. It backs the service in tests and when no database is configured.
package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/Domenick1991/airreservation/internal/domain"
	"github.com/Domenick1991/airreservation/internal/repository"
)

// Store serializes every write behind one mutex, which gives each Update the
// same isolation a row-locking transaction has in Postgres.
type Store struct {
	mu sync.RWMutex

	flights       map[int64]domain.Flight
	flightNumbers map[string]int64
	bookings      map[int64]domain.Booking
	references    map[string]int64
	payments      map[int64]domain.Payment
	transactions  map[string]int64
	aircraft      map[int64]domain.Aircraft
	registrations map[string]int64

	lastFlightID, lastBookingID, lastPaymentID, lastAircraftID int64
}

func NewStore() *Store {
	return &Store{
		flights:       make(map[int64]domain.Flight),
		flightNumbers: make(map[string]int64),
		bookings:      make(map[int64]domain.Booking),
		references:    make(map[string]int64),
		payments:      make(map[int64]domain.Payment),
		transactions:  make(map[string]int64),
		aircraft:      make(map[int64]domain.Aircraft),
		registrations: make(map[string]int64),
	}
}

func (s *Store) Flights() repository.FlightRepository { return &flightRepo{s} }
func (s *Store) Bookings() repository.BookingRepository { return &bookingRepo{s} }
func (s *Store) Payments() repository.PaymentRepository { return &paymentRepo{s} }
func (s *Store) Aircraft() repository.AircraftRepository { return &aircraftRepo{s} }

type flightRepo struct{ s *Store }

func (r *flightRepo) Create(_ context.Context, f *domain.Flight) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.flightNumbers[f.FlightNumber]; ok {
		return domain.InvalidDataError("flight number %s already exists", f.FlightNumber)
	}
	r.s.lastFlightID++
	f.ID = r.s.lastFlightID
	f.UpdatedAt = f.CreatedAt
	r.s.flights[f.ID] = *f
	r.s.flightNumbers[f.FlightNumber] = f.ID
	return nil
}

func (r *flightRepo) GetByID(_ context.Context, id int64) (*domain.Flight, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.flight(id)
}

func (r *flightRepo) GetByNumber(_ context.Context, number string) (*domain.Flight, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.flightNumbers[number]
	if !ok {
		return nil, domain.ErrFlightNotFound
	}
	return r.s.flight(id)
}

func (r *flightRepo) List(_ context.Context) ([]domain.Flight, error) {
	return r.filter(func(domain.Flight) bool { return true }), nil
}

func (r *flightRepo) ListByStatus(_ context.Context, status domain.FlightStatus) ([]domain.Flight, error) {
	return r.filter(func(f domain.Flight) bool { return f.Status == status }), nil
}

func (r *flightRepo) ListUpcomingAvailable(_ context.Context, now time.Time) ([]domain.Flight, error) {
	return r.filter(func(f domain.Flight) bool {
		return !f.DepartureTime.Before(now) && f.IsAvailable()
	}), nil
}

func (r *flightRepo) ListDepartingBetween(_ context.Context, from, to time.Time) ([]domain.Flight, error) {
	return r.filter(func(f domain.Flight) bool {
		return f.Status == domain.FlightStatusScheduled && !f.DepartureTime.Before(from) && !f.DepartureTime.After(to)
	}), nil
}

func (r *flightRepo) ListArrivedBetween(_ context.Context, from, to time.Time) ([]domain.Flight, error) {
	return r.filter(func(f domain.Flight) bool {
		if f.Status == domain.FlightStatusCancelled || f.Status == domain.FlightStatusDiverted {
			return false
		}
		return !f.ArrivalTime.Before(from) && f.ArrivalTime.Before(to)
	}), nil
}

func (r *flightRepo) ListFullyBooked(_ context.Context) ([]domain.Flight, error) {
	return r.filter(func(f domain.Flight) bool {
		return f.Status == domain.FlightStatusScheduled && f.AvailableSeats == 0
	}), nil
}

func (r *flightRepo) ListOverbooked(_ context.Context) ([]domain.Flight, error) {
	return r.filter(func(f domain.Flight) bool { return f.IsOverbooked() }), nil
}

func (r *flightRepo) ListOverdue(_ context.Context, now time.Time) ([]domain.Flight, error) {
	return r.filter(func(f domain.Flight) bool {
		return f.Status == domain.FlightStatusScheduled && f.DepartureTime.Before(now)
	}), nil
}

func (r *flightRepo) Search(_ context.Context, q repository.FlightSearch) ([]domain.Flight, error) {
	return r.filter(q.Matches), nil
}

func (r *flightRepo) Update(_ context.Context, id int64, fn func(f *domain.Flight) error) (*domain.Flight, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	f, err := r.s.flight(id)
	if err != nil {
		return nil, err
	}
	if err := fn(f); err != nil {
		return nil, err
	}
	r.s.flights[id] = *f
	return f, nil
}

func (r *flightRepo) filter(keep func(domain.Flight) bool) []domain.Flight {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	flights := make([]domain.Flight, 0)
	for _, f := range r.s.flights {
		if keep(f) {
			flights = append(flights, f)
		}
	}
	slices.SortFunc(flights, func(a, b domain.Flight) int {
		if c := a.DepartureTime.Compare(b.DepartureTime); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return flights
}

type bookingRepo struct{ s *Store }

func (r *bookingRepo) Create(_ context.Context, flightID int64, build func(f *domain.Flight) (*domain.Booking, error)) (*domain.Booking, *domain.Flight, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	f, err := r.s.flight(flightID)
	if err != nil {
		return nil, nil, err
	}
	b, err := build(f)
	if err != nil {
		return nil, nil, err
	}
	if _, ok := r.s.references[b.Reference]; ok {
		return nil, nil, domain.InvalidDataError("booking reference %s already exists", b.Reference)
	}

	r.s.lastBookingID++
	b.ID = r.s.lastBookingID
	b.FlightID = f.ID
	b.UpdatedAt = b.CreatedAt
	r.s.bookings[b.ID] = *b
	r.s.references[b.Reference] = b.ID
	r.s.flights[f.ID] = *f
	return b, f, nil
}

func (r *bookingRepo) GetByReference(_ context.Context, reference string) (*domain.Booking, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.booking(reference)
}

func (r *bookingRepo) ListByFlight(_ context.Context, flightID int64) ([]domain.Booking, error) {
	return r.filter(func(b domain.Booking) bool { return b.FlightID == flightID }), nil
}

func (r *bookingRepo) Update(_ context.Context, reference string, fn func(s *repository.BookingState) error) (*repository.BookingState, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	b, err := r.s.booking(reference)
	if err != nil {
		return nil, err
	}
	f, err := r.s.flight(b.FlightID)
	if err != nil {
		return nil, err
	}

	state := &repository.BookingState{Booking: b, Flight: f, Payments: r.s.paymentsOf(b.ID)}
	if err := fn(state); err != nil {
		return nil, err
	}
	r.s.bookings[b.ID] = *b
	r.s.flights[f.ID] = *f
	return state, nil
}

func (r *bookingRepo) filter(keep func(domain.Booking) bool) []domain.Booking {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	bookings := make([]domain.Booking, 0)
	for _, b := range r.s.bookings {
		if keep(b) {
			bookings = append(bookings, b)
		}
	}
	slices.SortFunc(bookings, func(a, b domain.Booking) int { return cmp.Compare(a.ID, b.ID) })
	return bookings
}

type paymentRepo struct{ s *Store }

func (r *paymentRepo) CreateForBooking(_ context.Context, reference string, build func(b *domain.Booking) (*domain.Payment, error)) (*domain.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	b, err := r.s.booking(reference)
	if err != nil {
		return nil, err
	}
	p, err := build(b)
	if err != nil {
		return nil, err
	}
	if _, ok := r.s.transactions[p.TransactionID]; ok {
		return nil, domain.InvalidDataError("transaction %s already exists", p.TransactionID)
	}

	r.s.lastPaymentID++
	p.ID = r.s.lastPaymentID
	p.BookingID = b.ID
	p.UpdatedAt = p.CreatedAt
	r.s.payments[p.ID] = *p
	r.s.transactions[p.TransactionID] = p.ID
	return p, nil
}

func (r *paymentRepo) GetByTransactionID(_ context.Context, transactionID string) (*domain.Payment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.payment(transactionID)
}

func (r *paymentRepo) ListByBooking(_ context.Context, bookingID int64) ([]domain.Payment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.paymentsOf(bookingID), nil
}

func (r *paymentRepo) Update(_ context.Context, transactionID string, fn func(s *repository.PaymentState) error) (*repository.PaymentState, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, err := r.s.payment(transactionID)
	if err != nil {
		return nil, err
	}
	stored, ok := r.s.bookings[p.BookingID]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	b := stored

	others := make([]domain.Payment, 0)
	for _, other := range r.s.paymentsOf(b.ID) {
		if other.ID != p.ID {
			others = append(others, other)
		}
	}

	state := &repository.PaymentState{Payment: p, Booking: &b, Others: others}
	if err := fn(state); err != nil {
		return nil, err
	}
	r.s.payments[p.ID] = *p
	r.s.bookings[b.ID] = b
	return state, nil
}

type aircraftRepo struct{ s *Store }

func (r *aircraftRepo) Create(_ context.Context, a *domain.Aircraft) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.registrations[a.Registration]; ok {
		return domain.InvalidDataError("aircraft %s already exists", a.Registration)
	}
	r.s.lastAircraftID++
	a.ID = r.s.lastAircraftID
	r.s.aircraft[a.ID] = *a
	r.s.registrations[a.Registration] = a.ID
	return nil
}

func (r *aircraftRepo) GetByID(_ context.Context, id int64) (*domain.Aircraft, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	a, ok := r.s.aircraft[id]
	if !ok {
		return nil, domain.ErrAircraftNotFound
	}
	return &a, nil
}

// The helpers below expect the caller to hold mu and hand out copies.

func (s *Store) flight(id int64) (*domain.Flight, error) {
	f, ok := s.flights[id]
	if !ok {
		return nil, domain.ErrFlightNotFound
	}
	return &f, nil
}

func (s *Store) booking(reference string) (*domain.Booking, error) {
	id, ok := s.references[reference]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	b := s.bookings[id]
	return &b, nil
}

func (s *Store) payment(transactionID string) (*domain.Payment, error) {
	id, ok := s.transactions[transactionID]
	if !ok {
		return nil, domain.ErrPaymentNotFound
	}
	p := s.payments[id]
	return &p, nil
}

func (s *Store) paymentsOf(bookingID int64) []domain.Payment {
	payments := make([]domain.Payment, 0)
	for _, p := range s.payments {
		if p.BookingID == bookingID {
			payments = append(payments, p)
		}
	}
	slices.SortFunc(payments, func(a, b domain.Payment) int { return cmp.Compare(a.ID, b.ID) })
	return payments
}
