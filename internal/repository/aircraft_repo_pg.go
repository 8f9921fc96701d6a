package repository

import (
	"context"
	"errors"

	"github.com/Domenick1991/airreservation/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AircraftRepository interface {
	Create(ctx context.Context, aircraft *domain.Aircraft) error
	GetByID(ctx context.Context, id int64) (*domain.Aircraft, error)
}

type PGAircraftRepository struct {
	db *pgxpool.Pool
}

func NewAircraftRepository(db *pgxpool.Pool) AircraftRepository {
	return &PGAircraftRepository{db: db}
}

func (r *PGAircraftRepository) Create(ctx context.Context, a *domain.Aircraft) error {
	err := r.db.QueryRow(ctx, `INSERT INTO aircraft (registration, model, total_seats, status, next_maintenance)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		a.Registration, a.Model, a.TotalSeats, a.Status, a.NextMaintenance).Scan(&a.ID)
	if isUniqueViolation(err) {
		return domain.InvalidDataError("aircraft %s already exists", a.Registration)
	}
	return err
}

func (r *PGAircraftRepository) GetByID(ctx context.Context, id int64) (*domain.Aircraft, error) {
	var a domain.Aircraft
	err := r.db.QueryRow(ctx, `SELECT id, registration, model, total_seats, status, next_maintenance FROM aircraft WHERE id=$1`, id).
		Scan(&a.ID, &a.Registration, &a.Model, &a.TotalSeats, &a.Status, &a.NextMaintenance)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrAircraftNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

var _ AircraftRepository = (*PGAircraftRepository)(nil)
