package repository

import (
	"context"
	"errors"

	"github.com/Domenick1991/airreservation/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BookingState is a booking together with the flight it holds a seat on and
// every payment made against it, read under one lock.
type BookingState struct {
	Booking  *domain.Booking
	Flight   *domain.Flight
	Payments []domain.Payment
}

type BookingRepository interface {
	// Create locks the flight, lets build decide on the booking and writes
	// both the booking and the flight's seat count in one transaction.
	Create(ctx context.Context, flightID int64, build func(f *domain.Flight) (*domain.Booking, error)) (*domain.Booking, *domain.Flight, error)
	GetByReference(ctx context.Context, reference string) (*domain.Booking, error)
	ListByFlight(ctx context.Context, flightID int64) ([]domain.Booking, error)
	// Update locks the booking and then its flight. Both are written back when fn succeeds.
	Update(ctx context.Context, reference string, fn func(s *BookingState) error) (*BookingState, error)
}

type PGBookingRepository struct {
	db *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) BookingRepository {
	return &PGBookingRepository{db: db}
}

const bookingColumns = `id, reference, flight_id, user_id, email, first_name, last_name, seat_class, passengers,
	total_price, status, special_requests, created_at, updated_at`

func scanBooking(row scanner) (*domain.Booking, error) {
	var b domain.Booking
	if err := row.Scan(&b.ID, &b.Reference, &b.FlightID, &b.UserID, &b.Email, &b.FirstName, &b.LastName, &b.SeatClass,
		&b.Passengers, &b.TotalPrice, &b.Status, &b.SpecialRequests, &b.CreatedAt, &b.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBookingNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (r *PGBookingRepository) Create(ctx context.Context, flightID int64, build func(f *domain.Flight) (*domain.Booking, error)) (*domain.Booking, *domain.Flight, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	f, err := lockFlight(ctx, tx, flightID)
	if err != nil {
		return nil, nil, err
	}
	b, err := build(f)
	if err != nil {
		return nil, nil, err
	}
	if err := saveFlight(ctx, tx, f); err != nil {
		return nil, nil, err
	}

	if err := tx.QueryRow(ctx, `INSERT INTO bookings (reference, flight_id, user_id, email, first_name, last_name,
		seat_class, passengers, total_price, status, special_requests, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)
		RETURNING id, updated_at`,
		b.Reference, f.ID, b.UserID, b.Email, b.FirstName, b.LastName, b.SeatClass, b.Passengers, b.TotalPrice,
		b.Status, b.SpecialRequests, b.CreatedAt).Scan(&b.ID, &b.UpdatedAt); err != nil {
		return nil, nil, err
	}
	b.FlightID = f.ID

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}
	return b, f, nil
}

func (r *PGBookingRepository) GetByReference(ctx context.Context, reference string) (*domain.Booking, error) {
	return scanBooking(r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE reference=$1`, reference))
}

func (r *PGBookingRepository) ListByFlight(ctx context.Context, flightID int64) ([]domain.Booking, error) {
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE flight_id=$1 ORDER BY id`, flightID)
}

func (r *PGBookingRepository) Update(ctx context.Context, reference string, fn func(s *BookingState) error) (*BookingState, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	b, err := lockBooking(ctx, tx, reference)
	if err != nil {
		return nil, err
	}
	f, err := lockFlight(ctx, tx, b.FlightID)
	if err != nil {
		return nil, err
	}
	payments, err := listPayments(ctx, tx, b.ID)
	if err != nil {
		return nil, err
	}

	state := &BookingState{Booking: b, Flight: f, Payments: payments}
	if err := fn(state); err != nil {
		return nil, err
	}
	if err := saveBooking(ctx, tx, b); err != nil {
		return nil, err
	}
	if err := saveFlight(ctx, tx, f); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return state, nil
}

func (r *PGBookingRepository) list(ctx context.Context, query string, args ...any) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

func lockBooking(ctx context.Context, tx pgx.Tx, reference string) (*domain.Booking, error) {
	return scanBooking(tx.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE reference=$1 FOR UPDATE`, reference))
}

func lockBookingByID(ctx context.Context, tx pgx.Tx, id int64) (*domain.Booking, error) {
	return scanBooking(tx.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id=$1 FOR UPDATE`, id))
}

func saveBooking(ctx context.Context, tx pgx.Tx, b *domain.Booking) error {
	return tx.QueryRow(ctx, `UPDATE bookings SET status=$2, email=$3, first_name=$4, last_name=$5,
		special_requests=$6, updated_at=now() WHERE id=$1 RETURNING updated_at`,
		b.ID, b.Status, b.Email, b.FirstName, b.LastName, b.SpecialRequests).Scan(&b.UpdatedAt)
}

var _ BookingRepository = (*PGBookingRepository)(nil)
