package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/airreservation/config"
	"github.com/Domenick1991/airreservation/internal/cache"
	"github.com/Domenick1991/airreservation/internal/domain"
	"github.com/Domenick1991/airreservation/internal/kafka"
	"github.com/Domenick1991/airreservation/internal/lock"
	"github.com/Domenick1991/airreservation/internal/repository"
	"github.com/Domenick1991/airreservation/internal/repository/memory"
	"github.com/Domenick1991/airreservation/internal/service/booking"
	"github.com/Domenick1991/airreservation/internal/service/events"
	"github.com/Domenick1991/airreservation/internal/service/flights"
	"github.com/Domenick1991/airreservation/internal/service/payments"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type repositories struct {
	flights  repository.FlightRepository
	bookings repository.BookingRepository
	payments repository.PaymentRepository
	aircraft repository.AircraftRepository
}

// App is the wired service graph shared by the API server and the worker.
type App struct {
	Services Services
	Booking  *booking.BookingService
	Flight   *flights.FlightService

	closers []func()
}

// Close releases connections in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	app := &App{}

	repos, err := app.openRepositories(ctx, cfg.Database, logger)
	if err != nil {
		app.Close()
		return nil, err
	}
	if err := seedFleet(ctx, repos.aircraft, cfg.Fleet, logger.Named("fleet")); err != nil {
		app.Close()
		return nil, err
	}

	var (
		locker      lock.Locker = lock.NewKeyedLocker()
		flightCache *cache.RedisCache
	)
	if cfg.Redis.Addr != "" {
		client := cache.NewRedisClient(cfg.Redis)
		app.closers = append(app.closers, func() { _ = client.Close() })
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, using in-process locks and no cache", zap.Error(err))
		} else {
			locker = lock.NewRedisLocker(client, cfg.Booking.LockTTL, logger)
			flightCache = cache.NewRedisCache(client, cfg.Booking.FlightsCacheTTL)
		}
	}

	publisher := app.newPublisher(cfg.Kafka, logger)

	flightOpts := []flights.FlightServiceOption{
		flights.WithLocker(locker),
		flights.WithPublisher(publisher),
		flights.WithLogger(logger.Named("flights")),
		flights.WithMinLeadTime(cfg.Booking.MinLeadTime),
	}
	bookingOpts := []booking.BookingServiceOption{
		booking.WithLocker(locker),
		booking.WithPublisher(publisher),
		booking.WithLogger(logger.Named("bookings")),
		booking.WithArrivedLookback(cfg.Worker.ArrivedLookback),
	}
	if flightCache != nil {
		flightOpts = append(flightOpts, flights.WithCache(flightCache))
		bookingOpts = append(bookingOpts, booking.WithCache(flightCache))
	}

	app.Flight = flights.NewFlightService(repos.flights, repos.bookings, repos.aircraft, flightOpts...)
	app.Booking = booking.NewBookingService(repos.bookings, repos.flights, bookingOpts...)
	app.Services = Services{
		Flights:  app.Flight,
		Bookings: app.Booking,
		Payments: payments.NewPaymentService(repos.payments, repos.bookings,
			payments.WithLocker(locker),
			payments.WithPublisher(publisher),
			payments.WithLogger(logger.Named("payments"))),
	}
	return app, nil
}

func (a *App) openRepositories(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*repositories, error) {
	if cfg.Driver == config.DriverMemory {
		logger.Warn("using in-memory storage, data is lost on exit")
		store := memory.NewStore()
		return &repositories{
			flights:  store.Flights(),
			bookings: store.Bookings(),
			payments: store.Payments(),
			aircraft: store.Aircraft(),
		}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	a.closers = append(a.closers, pool.Close)
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &repositories{
		flights:  repository.NewFlightRepository(pool),
		bookings: repository.NewBookingRepository(pool),
		payments: repository.NewPaymentRepository(pool),
		aircraft: repository.NewAircraftRepository(pool),
	}, nil
}

// seedFleet registers the configured aircraft. Registrations that already
// exist are skipped so restarts are harmless.
func seedFleet(ctx context.Context, repo repository.AircraftRepository, fleet []config.AircraftConfig, logger *zap.Logger) error {
	created := 0
	for _, ac := range fleet {
		a := &domain.Aircraft{
			Registration:    ac.Registration,
			Model:           ac.Model,
			TotalSeats:      ac.TotalSeats,
			Status:          domain.AircraftStatus(ac.Status),
			NextMaintenance: ac.NextMaintenance,
		}
		err := repo.Create(ctx, a)
		if errors.Is(err, domain.ErrInvalidData) {
			logger.Debug("aircraft already registered", zap.String("registration", ac.Registration))
			continue
		}
		if err != nil {
			return fmt.Errorf("seed aircraft %s: %w", ac.Registration, err)
		}
		created++
		logger.Info("aircraft registered", zap.String("registration", a.Registration), zap.Int64("aircraft_id", a.ID))
	}
	if len(fleet) > 0 {
		logger.Info("fleet seeded", zap.Int("configured", len(fleet)), zap.Int("created", created))
	}
	return nil
}

// newPublisher returns nil without brokers; services treat a nil publisher as disabled.
func (a *App) newPublisher(cfg config.KafkaConfig, logger *zap.Logger) *events.Publisher {
	if len(cfg.Brokers) == 0 {
		logger.Info("kafka brokers not configured, events disabled")
		return nil
	}
	producer := kafka.NewProducer(cfg.Brokers, logger.Named("kafka"))
	a.closers = append(a.closers, func() {
		if err := producer.Close(); err != nil {
			logger.Warn("close kafka producer", zap.Error(err))
		}
	})
	return events.NewPublisher(producer, cfg.BookingEventsTopic,
		events.WithNotificationsTopic(cfg.NotificationsTopic),
		events.WithLogger(logger.Named("events")))
}
