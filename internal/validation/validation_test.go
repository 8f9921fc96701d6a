package validation

import (
	"testing"
	"time"

	"github.com/Domenick1991/airreservation/internal/domain"
	"github.com/stretchr/testify/assert"
)

type sample struct {
	Email string    `json:"email" validate:"required,email"`
	From  string    `json:"from" validate:"required"`
	To    string    `json:"to" validate:"required,nefield=From"`
	Start time.Time `json:"start" validate:"required"`
	End   time.Time `json:"end" validate:"required,gtfield=Start"`
	Class string    `json:"class" validate:"oneof=A B"`
}

func valid() sample {
	start := time.Date(2026, 11, 1, 12, 0, 0, 0, time.UTC)
	return sample{Email: "ada@example.com", From: "IST", To: "LHR", Start: start, End: start.Add(time.Hour), Class: "A"}
}

func TestStruct_Valid(t *testing.T) {
	assert.NoError(t, Struct(valid()))
}

func TestStruct_Invalid(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*sample)
		want   string
	}{
		{name: "missing email", mutate: func(s *sample) { s.Email = "" }, want: "email is required"},
		{name: "bad email", mutate: func(s *sample) { s.Email = "nope" }, want: "email must be a valid email"},
		{name: "same airports", mutate: func(s *sample) { s.To = s.From }, want: "to must differ from From"},
		{name: "end before start", mutate: func(s *sample) { s.End = s.Start.Add(-time.Minute) }, want: "end must be after Start"},
		{name: "unknown class", mutate: func(s *sample) { s.Class = "C" }, want: "class must be one of A B"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := valid()
			tc.mutate(&s)

			err := Struct(s)

			assert.ErrorIs(t, err, domain.ErrInvalidData)
			assert.ErrorContains(t, err, tc.want)
		})
	}
}
