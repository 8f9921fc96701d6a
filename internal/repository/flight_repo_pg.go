package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Domenick1991/airreservation/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type FlightRepository interface {
	Create(ctx context.Context, flight *domain.Flight) error
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
	GetByNumber(ctx context.Context, number string) (*domain.Flight, error)
	List(ctx context.Context) ([]domain.Flight, error)
	ListByStatus(ctx context.Context, status domain.FlightStatus) ([]domain.Flight, error)
	ListUpcomingAvailable(ctx context.Context, now time.Time) ([]domain.Flight, error)
	ListDepartingBetween(ctx context.Context, from, to time.Time) ([]domain.Flight, error)
	ListArrivedBetween(ctx context.Context, from, to time.Time) ([]domain.Flight, error)
	ListFullyBooked(ctx context.Context) ([]domain.Flight, error)
	ListOverbooked(ctx context.Context) ([]domain.Flight, error)
	// ListOverdue returns SCHEDULED flights whose departure time has passed.
	ListOverdue(ctx context.Context, now time.Time) ([]domain.Flight, error)
	Search(ctx context.Context, q FlightSearch) ([]domain.Flight, error)
	// Update runs fn against the locked row and persists the result in the same
	// transaction. Nothing is written if fn fails.
	Update(ctx context.Context, id int64, fn func(f *domain.Flight) error) (*domain.Flight, error)
}

type PGFlightRepository struct {
	db *pgxpool.Pool
}

func NewFlightRepository(db *pgxpool.Pool) FlightRepository {
	return &PGFlightRepository{db: db}
}

const flightColumns = `id, flight_number, departure_airport, arrival_airport, aircraft_id, departure_time, arrival_time,
	status, total_seats, available_seats, base_price, business_class_price, first_class_price, gate, terminal,
	created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanFlight(row scanner) (*domain.Flight, error) {
	var f domain.Flight
	if err := row.Scan(&f.ID, &f.FlightNumber, &f.DepartureAirport, &f.ArrivalAirport, &f.AircraftID, &f.DepartureTime,
		&f.ArrivalTime, &f.Status, &f.TotalSeats, &f.AvailableSeats, &f.BasePrice, &f.BusinessClassPrice,
		&f.FirstClassPrice, &f.Gate, &f.Terminal, &f.CreatedAt, &f.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrFlightNotFound
		}
		return nil, err
	}
	return &f, nil
}

func (r *PGFlightRepository) Create(ctx context.Context, f *domain.Flight) error {
	err := r.db.QueryRow(ctx, `INSERT INTO flights (flight_number, departure_airport, arrival_airport, aircraft_id,
		departure_time, arrival_time, status, total_seats, available_seats, base_price, business_class_price,
		first_class_price, gate, terminal, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $15)
		RETURNING id`,
		f.FlightNumber, f.DepartureAirport, f.ArrivalAirport, f.AircraftID, f.DepartureTime, f.ArrivalTime, f.Status,
		f.TotalSeats, f.AvailableSeats, f.BasePrice, f.BusinessClassPrice, f.FirstClassPrice, f.Gate, f.Terminal,
		f.CreatedAt).Scan(&f.ID)
	if isUniqueViolation(err) {
		return domain.InvalidDataError("flight number %s already exists", f.FlightNumber)
	}
	return err
}

func (r *PGFlightRepository) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	return scanFlight(r.db.QueryRow(ctx, `SELECT `+flightColumns+` FROM flights WHERE id=$1`, id))
}

func (r *PGFlightRepository) GetByNumber(ctx context.Context, number string) (*domain.Flight, error) {
	return scanFlight(r.db.QueryRow(ctx, `SELECT `+flightColumns+` FROM flights WHERE flight_number=$1`, number))
}

func (r *PGFlightRepository) List(ctx context.Context) ([]domain.Flight, error) {
	return r.list(ctx, `SELECT `+flightColumns+` FROM flights ORDER BY departure_time`)
}

func (r *PGFlightRepository) ListByStatus(ctx context.Context, status domain.FlightStatus) ([]domain.Flight, error) {
	return r.list(ctx, `SELECT `+flightColumns+` FROM flights WHERE status=$1 ORDER BY departure_time`, status)
}

func (r *PGFlightRepository) ListUpcomingAvailable(ctx context.Context, now time.Time) ([]domain.Flight, error) {
	return r.list(ctx, `SELECT `+flightColumns+` FROM flights
		WHERE departure_time >= $1 AND available_seats > 0 AND status=$2 ORDER BY departure_time`,
		now, domain.FlightStatusScheduled)
}

func (r *PGFlightRepository) ListDepartingBetween(ctx context.Context, from, to time.Time) ([]domain.Flight, error) {
	return r.list(ctx, `SELECT `+flightColumns+` FROM flights
		WHERE departure_time >= $1 AND departure_time <= $2 AND status=$3 ORDER BY departure_time`,
		from, to, domain.FlightStatusScheduled)
}

func (r *PGFlightRepository) ListArrivedBetween(ctx context.Context, from, to time.Time) ([]domain.Flight, error) {
	return r.list(ctx, `SELECT `+flightColumns+` FROM flights
		WHERE arrival_time >= $1 AND arrival_time < $2 AND status <> ALL($3) ORDER BY arrival_time`,
		from, to, []string{string(domain.FlightStatusCancelled), string(domain.FlightStatusDiverted)})
}

func (r *PGFlightRepository) ListFullyBooked(ctx context.Context) ([]domain.Flight, error) {
	return r.list(ctx, `SELECT `+flightColumns+` FROM flights WHERE available_seats = 0 AND status=$1 ORDER BY departure_time`,
		domain.FlightStatusScheduled)
}

func (r *PGFlightRepository) ListOverbooked(ctx context.Context) ([]domain.Flight, error) {
	return r.list(ctx, `SELECT `+flightColumns+` FROM flights WHERE available_seats < 0 ORDER BY departure_time`)
}

func (r *PGFlightRepository) ListOverdue(ctx context.Context, now time.Time) ([]domain.Flight, error) {
	return r.list(ctx, `SELECT `+flightColumns+` FROM flights WHERE departure_time < $1 AND status=$2 ORDER BY departure_time`,
		now, domain.FlightStatusScheduled)
}

func (r *PGFlightRepository) Search(ctx context.Context, q FlightSearch) ([]domain.Flight, error) {
	where, args := q.where()
	return r.list(ctx, `SELECT `+flightColumns+` FROM flights`+where+` ORDER BY departure_time, id`, args...)
}

func (r *PGFlightRepository) Update(ctx context.Context, id int64, fn func(f *domain.Flight) error) (*domain.Flight, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	f, err := lockFlight(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(f); err != nil {
		return nil, err
	}
	if err := saveFlight(ctx, tx, f); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return f, nil
}

func (r *PGFlightRepository) list(ctx context.Context, query string, args ...any) ([]domain.Flight, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	flights := make([]domain.Flight, 0)
	for rows.Next() {
		f, err := scanFlight(rows)
		if err != nil {
			return nil, err
		}
		flights = append(flights, *f)
	}
	return flights, rows.Err()
}

// lockFlight reads the flight row with FOR UPDATE so that the seat counter
// read-check-write is serialized per flight.
func lockFlight(ctx context.Context, tx pgx.Tx, id int64) (*domain.Flight, error) {
	return scanFlight(tx.QueryRow(ctx, `SELECT `+flightColumns+` FROM flights WHERE id=$1 FOR UPDATE`, id))
}

func saveFlight(ctx context.Context, tx pgx.Tx, f *domain.Flight) error {
	return tx.QueryRow(ctx, `UPDATE flights SET departure_time=$2, arrival_time=$3, status=$4, available_seats=$5,
		base_price=$6, business_class_price=$7, first_class_price=$8, gate=$9, terminal=$10, updated_at=now()
		WHERE id=$1 RETURNING updated_at`,
		f.ID, f.DepartureTime, f.ArrivalTime, f.Status, f.AvailableSeats, f.BasePrice, f.BusinessClassPrice,
		f.FirstClassPrice, f.Gate, f.Terminal).Scan(&f.UpdatedAt)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ FlightRepository = (*PGFlightRepository)(nil)
