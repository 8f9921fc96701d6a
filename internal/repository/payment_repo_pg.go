package repository

import (
	"context"
	"errors"

	"github.com/Domenick1991/airreservation/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PaymentState is a payment, the booking it pays for and the booking's other payments.
type PaymentState struct {
	Payment *domain.Payment
	Booking *domain.Booking
	Others  []domain.Payment
}

// All returns every payment on the booking including the one being changed.
func (s *PaymentState) All() []domain.Payment {
	all := make([]domain.Payment, 0, len(s.Others)+1)
	all = append(all, s.Others...)
	return append(all, *s.Payment)
}

type PaymentRepository interface {
	// CreateForBooking locks the booking so build sees its current status.
	CreateForBooking(ctx context.Context, reference string, build func(b *domain.Booking) (*domain.Payment, error)) (*domain.Payment, error)
	GetByTransactionID(ctx context.Context, transactionID string) (*domain.Payment, error)
	ListByBooking(ctx context.Context, bookingID int64) ([]domain.Payment, error)
	// Update locks the owning booking first and then the payment, the same order
	// booking updates use. The payment and the booking are both written back.
	Update(ctx context.Context, transactionID string, fn func(s *PaymentState) error) (*PaymentState, error)
}

type PGPaymentRepository struct {
	db *pgxpool.Pool
}

func NewPaymentRepository(db *pgxpool.Pool) PaymentRepository {
	return &PGPaymentRepository{db: db}
}

const paymentColumns = `id, transaction_id, booking_id, amount, currency, method, status, failure_reason, paid_at,
	created_at, updated_at`

func scanPayment(row scanner) (*domain.Payment, error) {
	var p domain.Payment
	if err := row.Scan(&p.ID, &p.TransactionID, &p.BookingID, &p.Amount, &p.Currency, &p.Method, &p.Status,
		&p.FailureReason, &p.PaidAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PGPaymentRepository) CreateForBooking(ctx context.Context, reference string, build func(b *domain.Booking) (*domain.Payment, error)) (*domain.Payment, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	b, err := lockBooking(ctx, tx, reference)
	if err != nil {
		return nil, err
	}
	p, err := build(b)
	if err != nil {
		return nil, err
	}
	p.BookingID = b.ID

	if err := tx.QueryRow(ctx, `INSERT INTO payments (transaction_id, booking_id, amount, currency, method, status,
		failure_reason, paid_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		RETURNING id, updated_at`,
		p.TransactionID, p.BookingID, p.Amount, p.Currency, p.Method, p.Status, p.FailureReason, p.PaidAt,
		p.CreatedAt).Scan(&p.ID, &p.UpdatedAt); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PGPaymentRepository) GetByTransactionID(ctx context.Context, transactionID string) (*domain.Payment, error) {
	return scanPayment(r.db.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE transaction_id=$1`, transactionID))
}

func (r *PGPaymentRepository) ListByBooking(ctx context.Context, bookingID int64) ([]domain.Payment, error) {
	rows, err := r.db.Query(ctx, `SELECT `+paymentColumns+` FROM payments WHERE booking_id=$1 ORDER BY id`, bookingID)
	if err != nil {
		return nil, err
	}
	return collectPayments(rows)
}

func (r *PGPaymentRepository) Update(ctx context.Context, transactionID string, fn func(s *PaymentState) error) (*PaymentState, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var bookingID int64
	if err := tx.QueryRow(ctx, `SELECT booking_id FROM payments WHERE transaction_id=$1`, transactionID).Scan(&bookingID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, err
	}
	b, err := lockBookingByID(ctx, tx, bookingID)
	if err != nil {
		return nil, err
	}
	p, err := scanPayment(tx.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE transaction_id=$1 FOR UPDATE`, transactionID))
	if err != nil {
		return nil, err
	}

	payments, err := listPayments(ctx, tx, b.ID)
	if err != nil {
		return nil, err
	}
	others := make([]domain.Payment, 0, len(payments))
	for _, other := range payments {
		if other.ID != p.ID {
			others = append(others, other)
		}
	}

	state := &PaymentState{Payment: p, Booking: b, Others: others}
	if err := fn(state); err != nil {
		return nil, err
	}
	if err := tx.QueryRow(ctx, `UPDATE payments SET status=$2, failure_reason=$3, paid_at=$4, updated_at=now()
		WHERE id=$1 RETURNING updated_at`, p.ID, p.Status, p.FailureReason, p.PaidAt).Scan(&p.UpdatedAt); err != nil {
		return nil, err
	}
	if err := saveBooking(ctx, tx, b); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return state, nil
}

func listPayments(ctx context.Context, tx pgx.Tx, bookingID int64) ([]domain.Payment, error) {
	rows, err := tx.Query(ctx, `SELECT `+paymentColumns+` FROM payments WHERE booking_id=$1 ORDER BY id`, bookingID)
	if err != nil {
		return nil, err
	}
	return collectPayments(rows)
}

func collectPayments(rows pgx.Rows) ([]domain.Payment, error) {
	defer rows.Close()

	payments := make([]domain.Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}

var _ PaymentRepository = (*PGPaymentRepository)(nil)
