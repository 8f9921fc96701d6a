// Package worker runs the periodic booking jobs on a cron schedule.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/Domenick1991/airreservation/config"
	"github.com/Domenick1991/airreservation/internal/domain"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const jobTimeout = 5 * time.Minute

type BookingCompleter interface {
	CompleteArrivedBookings(ctx context.Context) ([]domain.Booking, error)
}

type InventorySource interface {
	ListDepartingSoon(ctx context.Context) ([]domain.Flight, error)
	ListFullyBooked(ctx context.Context) ([]domain.Flight, error)
	ListOverbooked(ctx context.Context) ([]domain.Flight, error)
}

type InventoryReport struct {
	DepartingSoon []string
	FullyBooked   []string
	Overbooked    []string
}

type Scheduler struct {
	cron     *cron.Cron
	bookings BookingCompleter
	flights  InventorySource
	logger   *zap.Logger
	ctx      context.Context
}

func NewScheduler(cfg config.WorkerConfig, bookings BookingCompleter, flights InventorySource, logger *zap.Logger) (*Scheduler, error) {
	cl := cronLogger{logger.Sugar()}
	s := &Scheduler{
		cron:     cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		bookings: bookings,
		flights:  flights,
		logger:   logger,
		ctx:      context.Background(),
	}

	if _, err := s.cron.AddFunc(cfg.CompleteArrivedSpec, s.run("complete_arrived", func(ctx context.Context) error {
		_, err := s.CompleteArrived(ctx)
		return err
	})); err != nil {
		return nil, fmt.Errorf("schedule complete_arrived %q: %w", cfg.CompleteArrivedSpec, err)
	}
	if _, err := s.cron.AddFunc(cfg.InventoryReportSpec, s.run("inventory_report", func(ctx context.Context) error {
		_, err := s.ReportInventory(ctx)
		return err
	})); err != nil {
		return nil, fmt.Errorf("schedule inventory_report %q: %w", cfg.InventoryReportSpec, err)
	}
	return s, nil
}

// Start runs the schedule in the background. Jobs get a context derived from ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx = ctx
	s.cron.Start()
}

// Stop prevents new runs and waits for running jobs, or for ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.logger.Warn("scheduler stopped with jobs still running")
	}
}

func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) CompleteArrived(ctx context.Context) (int, error) {
	completed, err := s.bookings.CompleteArrivedBookings(ctx)
	if err != nil {
		return len(completed), err
	}
	if len(completed) > 0 {
		s.logger.Info("completed bookings on arrived flights", zap.Int("count", len(completed)))
	}
	return len(completed), nil
}

func (s *Scheduler) ReportInventory(ctx context.Context) (*InventoryReport, error) {
	soon, err := s.flights.ListDepartingSoon(ctx)
	if err != nil {
		return nil, err
	}
	full, err := s.flights.ListFullyBooked(ctx)
	if err != nil {
		return nil, err
	}
	over, err := s.flights.ListOverbooked(ctx)
	if err != nil {
		return nil, err
	}

	report := &InventoryReport{
		DepartingSoon: flightNumbers(soon),
		FullyBooked:   flightNumbers(full),
		Overbooked:    flightNumbers(over),
	}
	s.logger.Info("inventory report",
		zap.Strings("departing_soon", report.DepartingSoon),
		zap.Strings("fully_booked", report.FullyBooked),
		zap.Strings("overbooked", report.Overbooked))
	if len(report.Overbooked) > 0 {
		s.logger.Warn("overbooked flights", zap.Strings("flights", report.Overbooked))
	}
	return report, nil
}

func (s *Scheduler) run(name string, job func(ctx context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(s.ctx, jobTimeout)
		defer cancel()

		start := time.Now()
		if err := job(ctx); err != nil {
			s.logger.Error("job failed", zap.String("job", name), zap.Error(err))
			return
		}
		s.logger.Debug("job done", zap.String("job", name), zap.Duration("took", time.Since(start)))
	}
}

func flightNumbers(flights []domain.Flight) []string {
	numbers := make([]string, 0, len(flights))
	for _, f := range flights {
		numbers = append(numbers, f.FlightNumber)
	}
	return numbers
}

type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}
