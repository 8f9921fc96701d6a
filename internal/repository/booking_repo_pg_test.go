package repository

import (
	"testing"

	"github.com/Domenick1991/airreservation/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
)

func TestNewBookingRepository(t *testing.T) {
	pool := &pgxpool.Pool{}
	repo := NewBookingRepository(pool)
	assert.NotNil(t, repo)
	assert.NotNil(t, NewPaymentRepository(pool))
}

func TestScanBooking_NoRowsIsNotFound(t *testing.T) {
	_, err := scanBooking(errScanner{err: pgx.ErrNoRows})
	assert.ErrorIs(t, err, domain.ErrBookingNotFound)

	_, err = scanPayment(errScanner{err: pgx.ErrNoRows})
	assert.ErrorIs(t, err, domain.ErrPaymentNotFound)
}

func TestPaymentState_All(t *testing.T) {
	s := &PaymentState{
		Payment: &domain.Payment{TransactionID: "TXN2"},
		Others:  []domain.Payment{{TransactionID: "TXN1"}},
	}

	all := s.All()

	assert.Len(t, all, 2)
	assert.Equal(t, "TXN1", all[0].TransactionID)
	assert.Equal(t, "TXN2", all[1].TransactionID)
	assert.Len(t, s.Others, 1)
}
