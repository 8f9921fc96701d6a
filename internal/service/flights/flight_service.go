package flights

import (
	"context"
	"fmt"
	"time"

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

type FlightUseCase interface {
	Create(ctx context.Context, input CreateFlightInput) (*domain.Flight, error)
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
	GetByNumber(ctx context.Context, number string) (*domain.Flight, error)
	List(ctx context.Context) ([]domain.Flight, error)
	ListAvailable(ctx context.Context) ([]domain.Flight, error)
	ListByStatus(ctx context.Context, status domain.FlightStatus) ([]domain.Flight, error)
	ListDepartingSoon(ctx context.Context) ([]domain.Flight, error)
	ListFullyBooked(ctx context.Context) ([]domain.Flight, error)
	ListOverbooked(ctx context.Context) ([]domain.Flight, error)
	ListOverdue(ctx context.Context) ([]domain.Flight, error)
	Search(ctx context.Context, input SearchFlightsInput) ([]domain.Flight, error)
	Update(ctx context.Context, id int64, input UpdateFlightInput) (*domain.Flight, error)
	Cancel(ctx context.Context, id int64) (*domain.Flight, error)
	Delay(ctx context.Context, id int64, by time.Duration) (*domain.Flight, error)
	ReserveSeat(ctx context.Context, id int64) (*domain.Flight, error)
	ReleaseSeat(ctx context.Context, id int64) (*domain.Flight, error)
	Price(ctx context.Context, id int64, class domain.SeatClass) (decimal.Decimal, error)
	Occupancy(ctx context.Context, id int64) (*Occupancy, error)
}

type FlightCache interface {
	GetFlights(ctx context.Context, list string) ([]domain.Flight, error)
	SetFlights(ctx context.Context, list string, flights []domain.Flight) error
	InvalidateFlights(ctx context.Context) error
}

const (
	listAll       = "all"
	listAvailable = "available"
)

type FlightService struct {
	repo      repository.FlightRepository
	bookings  repository.BookingRepository
	aircraft  repository.AircraftRepository
	cache     FlightCache
	locker    lock.Locker
	publisher *events.Publisher
	clock     clock.Clock
	logger    *zap.Logger

	minLeadTime time.Duration
}

type CreateFlightInput struct {
	FlightNumber       string              `json:"flight_number" validate:"required,max=10"`
	DepartureAirport   string              `json:"departure_airport" validate:"required,len=3"`
	ArrivalAirport     string              `json:"arrival_airport" validate:"required,len=3,nefield=DepartureAirport"`
	AircraftID         *int64              `json:"aircraft_id,omitempty"`
	DepartureTime      time.Time           `json:"departure_time" validate:"required"`
	ArrivalTime        time.Time           `json:"arrival_time" validate:"required,gtefield=DepartureTime"`
	TotalSeats         int                 `json:"total_seats" validate:"required,gt=0,lte=1000"`
	BasePrice          decimal.Decimal     `json:"base_price"`
	BusinessClassPrice decimal.NullDecimal `json:"business_class_price"`
	FirstClassPrice    decimal.NullDecimal `json:"first_class_price"`
	Gate               string              `json:"gate,omitempty" validate:"max=10"`
	Terminal           string              `json:"terminal,omitempty" validate:"max=10"`
}

// UpdateFlightInput is an admin edit. Nil fields are left as they are.
type UpdateFlightInput struct {
	DepartureTime      *time.Time           `json:"departure_time,omitempty"`
	ArrivalTime        *time.Time           `json:"arrival_time,omitempty"`
	Status             *domain.FlightStatus `json:"status,omitempty" validate:"omitempty,oneof=SCHEDULED BOARDING DEPARTED ARRIVED CANCELLED DELAYED DIVERTED"`
	Gate               *string              `json:"gate,omitempty" validate:"omitempty,max=10"`
	Terminal           *string              `json:"terminal,omitempty" validate:"omitempty,max=10"`
	BasePrice          *decimal.Decimal     `json:"base_price,omitempty"`
	BusinessClassPrice *decimal.Decimal     `json:"business_class_price,omitempty"`
	FirstClassPrice    *decimal.Decimal     `json:"first_class_price,omitempty"`
}

func (in UpdateFlightInput) empty() bool {
	return in.DepartureTime == nil && in.ArrivalTime == nil && in.Status == nil && in.Gate == nil &&
		in.Terminal == nil && in.BasePrice == nil && in.BusinessClassPrice == nil && in.FirstClassPrice == nil
}

func (in UpdateFlightInput) apply(f *domain.Flight) {
	if in.DepartureTime != nil {
		f.DepartureTime = *in.DepartureTime
	}
	if in.ArrivalTime != nil {
		f.ArrivalTime = *in.ArrivalTime
	}
	if in.Status != nil {
		f.Status = *in.Status
	}
	if in.Gate != nil {
		f.Gate = *in.Gate
	}
	if in.Terminal != nil {
		f.Terminal = *in.Terminal
	}
	if in.BasePrice != nil {
		f.BasePrice = *in.BasePrice
	}
	if in.BusinessClassPrice != nil {
		f.BusinessClassPrice = decimal.NewNullDecimal(*in.BusinessClassPrice)
	}
	if in.FirstClassPrice != nil {
		f.FirstClassPrice = decimal.NewNullDecimal(*in.FirstClassPrice)
	}
}

// SearchFlightsInput finds flights by route, airport, aircraft, day or price.
// Date selects one whole UTC day and cannot be combined with the departure window.
type SearchFlightsInput struct {
	From          string              `json:"from" validate:"omitempty,len=3"`
	To            string              `json:"to" validate:"omitempty,len=3,nefield=From"`
	Airport       string              `json:"airport" validate:"omitempty,len=3"`
	AircraftID    *int64              `json:"aircraft_id" validate:"omitempty,gt=0"`
	Date          *time.Time          `json:"date"`
	DepartsAfter  *time.Time          `json:"departs_after"`
	DepartsBefore *time.Time          `json:"departs_before"`
	MinPrice      decimal.NullDecimal `json:"min_price"`
	MaxPrice      decimal.NullDecimal `json:"max_price"`
	// IncludeUnavailable also returns flights that cannot be booked.
	IncludeUnavailable bool `json:"include_unavailable"`
}

type Occupancy struct {
	FlightID       int64   `json:"flight_id"`
	FlightNumber   string  `json:"flight_number"`
	TotalSeats     int     `json:"total_seats"`
	AvailableSeats int     `json:"available_seats"`
	OccupancyRate  float64 `json:"occupancy_rate"`
	FullyBooked    bool    `json:"fully_booked"`
	Overbooked     bool    `json:"overbooked"`
}

type FlightServiceOption func(*FlightService)

func WithCache(cache FlightCache) FlightServiceOption {
	return func(s *FlightService) {
		s.cache = cache
	}
}

func WithLocker(l lock.Locker) FlightServiceOption {
	return func(s *FlightService) {
		s.locker = l
	}
}

func WithPublisher(p *events.Publisher) FlightServiceOption {
	return func(s *FlightService) {
		s.publisher = p
	}
}

func WithClock(c clock.Clock) FlightServiceOption {
	return func(s *FlightService) {
		s.clock = c
	}
}

func WithLogger(logger *zap.Logger) FlightServiceOption {
	return func(s *FlightService) {
		s.logger = logger
	}
}

// WithMinLeadTime sets how far ahead of now a new flight must depart.
func WithMinLeadTime(d time.Duration) FlightServiceOption {
	return func(s *FlightService) {
		s.minLeadTime = d
	}
}

func NewFlightService(
	repo repository.FlightRepository,
	bookings repository.BookingRepository,
	aircraft repository.AircraftRepository,
	opts ...FlightServiceOption,
) *FlightService {
	s := &FlightService{
		repo:        repo,
		bookings:    bookings,
		aircraft:    aircraft,
		clock:       clock.Real(),
		logger:      zap.NewNop(),
		minLeadTime: 2 * time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *FlightService) Create(ctx context.Context, input CreateFlightInput) (*domain.Flight, error) {
	if err := validation.Struct(input); err != nil {
		return nil, err
	}
	if !money.Positive(input.BasePrice) {
		return nil, domain.InvalidDataError("base_price must be positive")
	}
	for name, p := range map[string]decimal.NullDecimal{
		"business_class_price": input.BusinessClassPrice,
		"first_class_price":    input.FirstClassPrice,
	} {
		if p.Valid && !money.Positive(p.Decimal) {
			return nil, domain.InvalidDataError("%s must be positive", name)
		}
	}

	now := s.clock.Now()
	if input.DepartureTime.Before(now.Add(s.minLeadTime)) {
		return nil, domain.InvalidDataError("departure must be at least %s from now", s.minLeadTime)
	}

	if input.AircraftID != nil {
		a, err := s.aircraft.GetByID(ctx, *input.AircraftID)
		if err != nil {
			return nil, err
		}
		if err := a.CheckAvailable(now); err != nil {
			return nil, err
		}
		if input.TotalSeats > a.TotalSeats {
			return nil, domain.InvalidDataError("aircraft %s has only %d seats", a.Registration, a.TotalSeats)
		}
	}

	f := &domain.Flight{
		FlightNumber:       input.FlightNumber,
		DepartureAirport:   input.DepartureAirport,
		ArrivalAirport:     input.ArrivalAirport,
		AircraftID:         input.AircraftID,
		DepartureTime:      input.DepartureTime,
		ArrivalTime:        input.ArrivalTime,
		Status:             domain.FlightStatusScheduled,
		TotalSeats:         input.TotalSeats,
		AvailableSeats:     input.TotalSeats,
		BasePrice:          input.BasePrice,
		BusinessClassPrice: input.BusinessClassPrice,
		FirstClassPrice:    input.FirstClassPrice,
		Gate:               input.Gate,
		Terminal:           input.Terminal,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.repo.Create(ctx, f); err != nil {
		return nil, err
	}

	s.logger.Info("flight created", zap.Int64("flight_id", f.ID), zap.String("flight_number", f.FlightNumber))
	s.invalidate(ctx)
	return f, nil
}

func (s *FlightService) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *FlightService) GetByNumber(ctx context.Context, number string) (*domain.Flight, error) {
	return s.repo.GetByNumber(ctx, number)
}

func (s *FlightService) List(ctx context.Context) ([]domain.Flight, error) {
	return s.cached(ctx, listAll, s.repo.List)
}

func (s *FlightService) ListAvailable(ctx context.Context) ([]domain.Flight, error) {
	return s.cached(ctx, listAvailable, func(ctx context.Context) ([]domain.Flight, error) {
		return s.repo.ListUpcomingAvailable(ctx, s.clock.Now())
	})
}

func (s *FlightService) ListByStatus(ctx context.Context, status domain.FlightStatus) ([]domain.Flight, error) {
	if !status.Valid() {
		return nil, domain.InvalidDataError("unknown flight status %q", status)
	}
	return s.repo.ListByStatus(ctx, status)
}

func (s *FlightService) ListDepartingSoon(ctx context.Context) ([]domain.Flight, error) {
	now := s.clock.Now()
	return s.repo.ListDepartingBetween(ctx, now, now.Add(domain.DepartingSoonWindow))
}

func (s *FlightService) ListFullyBooked(ctx context.Context) ([]domain.Flight, error) {
	return s.repo.ListFullyBooked(ctx)
}

func (s *FlightService) ListOverbooked(ctx context.Context) ([]domain.Flight, error) {
	return s.repo.ListOverbooked(ctx)
}

func (s *FlightService) ListOverdue(ctx context.Context) ([]domain.Flight, error) {
	return s.repo.ListOverdue(ctx, s.clock.Now())
}

func (s *FlightService) Search(ctx context.Context, input SearchFlightsInput) ([]domain.Flight, error) {
	if err := validation.Struct(input); err != nil {
		return nil, err
	}
	q := repository.FlightSearch{
		DepartureAirport: input.From,
		ArrivalAirport:   input.To,
		Airport:          input.Airport,
		AircraftID:       input.AircraftID,
		MinPrice:         input.MinPrice,
		MaxPrice:         input.MaxPrice,
		BookableOnly:     !input.IncludeUnavailable,
	}
	if input.Date != nil {
		if input.DepartsAfter != nil || input.DepartsBefore != nil {
			return nil, domain.InvalidDataError("date cannot be combined with departs_after or departs_before")
		}
		day := input.Date.UTC().Truncate(24 * time.Hour)
		q.DepartsFrom, q.DepartsBefore = day, day.Add(24*time.Hour)
	}
	if input.DepartsAfter != nil {
		q.DepartsFrom = *input.DepartsAfter
	}
	if input.DepartsBefore != nil {
		q.DepartsBefore = *input.DepartsBefore
	}
	if !q.DepartsFrom.IsZero() && !q.DepartsBefore.IsZero() && !q.DepartsBefore.After(q.DepartsFrom) {
		return nil, domain.InvalidDataError("departs_before must be after departs_after")
	}
	if q.MinPrice.Valid && q.MaxPrice.Valid && q.MinPrice.Decimal.GreaterThan(q.MaxPrice.Decimal) {
		return nil, domain.InvalidDataError("min_price must not exceed max_price")
	}
	return s.repo.Search(ctx, q)
}

// Update applies an admin edit under the flight lock. A new departure may not
// be in the past and the arrival may not end up before the departure.
func (s *FlightService) Update(ctx context.Context, id int64, input UpdateFlightInput) (*domain.Flight, error) {
	if err := validation.Struct(input); err != nil {
		return nil, err
	}
	if input.empty() {
		return nil, domain.InvalidDataError("no fields to update")
	}
	for name, p := range map[string]*decimal.Decimal{
		"base_price":           input.BasePrice,
		"business_class_price": input.BusinessClassPrice,
		"first_class_price":    input.FirstClassPrice,
	} {
		if p != nil && !money.Positive(*p) {
			return nil, domain.InvalidDataError("%s must be positive", name)
		}
	}
	now := s.clock.Now()
	if input.DepartureTime != nil && input.DepartureTime.Before(now) {
		return nil, domain.InvalidDataError("departure_time cannot be in the past")
	}

	var rescheduled bool
	f, err := s.update(ctx, id, func(f *domain.Flight) error {
		departure := f.DepartureTime
		input.apply(f)
		if f.ArrivalTime.Before(f.DepartureTime) {
			return domain.InvalidDataError("arrival_time must not be before departure_time")
		}
		rescheduled = !f.DepartureTime.Equal(departure)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("flight updated", zap.String("flight_number", f.FlightNumber), zap.String("status", string(f.Status)))
	s.publishFlight(ctx, kafka.EventFlightUpdated, f)
	if rescheduled {
		s.notifyPassengers(ctx, f, kafka.EventFlightUpdated,
			fmt.Sprintf("Flight %s now departs at %s", f.FlightNumber, f.DepartureTime.Format(time.RFC3339)))
	}
	return f, nil
}

func (s *FlightService) Cancel(ctx context.Context, id int64) (*domain.Flight, error) {
	f, err := s.update(ctx, id, func(f *domain.Flight) error {
		return f.Cancel(s.clock.Now())
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("flight cancelled", zap.String("flight_number", f.FlightNumber))
	s.publishFlight(ctx, kafka.EventFlightCancelled, f)
	s.notifyPassengers(ctx, f, kafka.EventFlightCancelled, "Flight "+f.FlightNumber+" has been cancelled")
	return f, nil
}

// Delay shifts the schedule and tells every passenger with a live booking.
func (s *FlightService) Delay(ctx context.Context, id int64, by time.Duration) (*domain.Flight, error) {
	if by <= 0 {
		return nil, domain.InvalidDataError("delay must be positive")
	}
	f, err := s.update(ctx, id, func(f *domain.Flight) error {
		return f.Delay(by, s.clock.Now())
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("flight delayed", zap.String("flight_number", f.FlightNumber), zap.Duration("by", by))
	s.publishFlight(ctx, kafka.EventFlightDelayed, f)
	s.notifyPassengers(ctx, f, kafka.EventFlightDelayed,
		fmt.Sprintf("Flight %s now departs at %s", f.FlightNumber, f.DepartureTime.Format(time.RFC3339)))
	return f, nil
}

// ReserveSeat is the admin path onto the ledger. It refuses flights that are
// not bookable, which is the same check a booking makes.
func (s *FlightService) ReserveSeat(ctx context.Context, id int64) (*domain.Flight, error) {
	return s.update(ctx, id, func(f *domain.Flight) error {
		if !f.IsAvailable() || !f.ReserveSeat() {
			return fmt.Errorf("flight %s: %w", f.FlightNumber, domain.ErrFlightNotAvailable)
		}
		return nil
	})
}

// ReleaseSeat is a no-op at capacity.
func (s *FlightService) ReleaseSeat(ctx context.Context, id int64) (*domain.Flight, error) {
	return s.update(ctx, id, func(f *domain.Flight) error {
		f.ReleaseSeat()
		return nil
	})
}

func (s *FlightService) Price(ctx context.Context, id int64, class domain.SeatClass) (decimal.Decimal, error) {
	f, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	return f.PriceForClass(class)
}

func (s *FlightService) Occupancy(ctx context.Context, id int64) (*Occupancy, error) {
	f, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Occupancy{
		FlightID:       f.ID,
		FlightNumber:   f.FlightNumber,
		TotalSeats:     f.TotalSeats,
		AvailableSeats: f.AvailableSeats,
		OccupancyRate:  f.OccupancyRate(),
		FullyBooked:    f.IsFullyBooked(),
		Overbooked:     f.IsOverbooked(),
	}, nil
}

func (s *FlightService) update(ctx context.Context, id int64, fn func(f *domain.Flight) error) (*domain.Flight, error) {
	release, err := lock.Acquire(ctx, s.locker, lock.FlightKey(id))
	if err != nil {
		return nil, err
	}
	defer release()

	f, err := s.repo.Update(ctx, id, func(f *domain.Flight) error {
		if err := fn(f); err != nil {
			return err
		}
		f.UpdatedAt = s.clock.Now()
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return f, nil
}

func (s *FlightService) cached(ctx context.Context, list string, load func(context.Context) ([]domain.Flight, error)) ([]domain.Flight, error) {
	if s.cache != nil {
		cached, err := s.cache.GetFlights(ctx, list)
		if err != nil {
			s.logger.Warn("flight cache read failed", zap.String("list", list), zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	flights, err := load(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetFlights(ctx, list, flights); err != nil {
			s.logger.Warn("flight cache write failed", zap.String("list", list), zap.Error(err))
		}
	}
	return flights, nil
}

func (s *FlightService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateFlights(ctx); err != nil {
		s.logger.Warn("flight cache invalidation failed", zap.Error(err))
	}
}

func (s *FlightService) publishFlight(ctx context.Context, typ kafka.EventType, f *domain.Flight) {
	s.publisher.Flight(ctx, kafka.FlightEvent{
		Type:          typ,
		FlightID:      f.ID,
		FlightNumber:  f.FlightNumber,
		Status:        string(f.Status),
		DepartureTime: f.DepartureTime,
		ArrivalTime:   f.ArrivalTime,
		OccurredAt:    s.clock.Now(),
	})
}

func (s *FlightService) notifyPassengers(ctx context.Context, f *domain.Flight, typ kafka.EventType, subject string) {
	if s.publisher == nil || s.bookings == nil {
		return
	}
	bookings, err := s.bookings.ListByFlight(ctx, f.ID)
	if err != nil {
		s.logger.Warn("list bookings for notification", zap.Int64("flight_id", f.ID), zap.Error(err))
		return
	}
	for _, b := range bookings {
		if b.Status.Closed() {
			continue
		}
		s.publisher.Notify(ctx, kafka.Notification{
			Type:      typ,
			Email:     b.Email,
			Reference: b.Reference,
			Subject:   subject,
			Body:      fmt.Sprintf("Dear %s, %s (%s).", b.FullName(), subject, f.Route()),
		})
	}
}

var _ FlightUseCase = (*FlightService)(nil)
