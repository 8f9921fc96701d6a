package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Domenick1991/airreservation/api"
	"github.com/Domenick1991/airreservation/config"
	"github.com/Domenick1991/airreservation/internal/service/booking"
	"github.com/Domenick1991/airreservation/internal/service/flights"
	"github.com/Domenick1991/airreservation/internal/service/payments"
	"github.com/gin-gonic/gin"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

const (
	swaggerPath     = "/swagger/reservation.swagger.json"
	shutdownTimeout = 5 * time.Second
)

type Services struct {
	Flights  flights.FlightUseCase
	Bookings booking.BookingUseCase
	Payments payments.PaymentUseCase
}

// Run serves the HTTP API and blocks until ctx is canceled or the server fails.
func Run(ctx context.Context, cfg *config.Config, services Services, logger *zap.Logger) error {
	srv := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           NewRouter(cfg.HTTP, services, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("address", cfg.HTTP.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("serve http %s: %w", cfg.HTTP.Address, err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		logger.Info("http server stopped")
		return nil
	}
}

func NewRouter(cfg config.HTTPConfig, services Services, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	flightsGroup := router.Group("/flights")
	bookingsGroup := router.Group("/bookings")
	paymentsGroup := router.Group("/payments")

	api.NewFlightHandler(services.Flights).Register(flightsGroup)
	api.NewBookingHandler(services.Bookings).Register(bookingsGroup, flightsGroup)
	api.NewPaymentHandler(services.Payments).Register(paymentsGroup, bookingsGroup)

	if cfg.SwaggerFile != "" {
		router.StaticFile(swaggerPath, cfg.SwaggerFile)
		router.GET("/docs/*any", gin.WrapH(httpSwagger.Handler(httpSwagger.URL(swaggerPath))))
	}
	return router
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if id := c.GetHeader("X-Request-ID"); id != "" {
			fields = append(fields, zap.String("request_id", id))
		}
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			logger.Error("request failed", fields...)
		case len(c.Errors) > 0:
			logger.Warn("request error", append(fields, zap.String("error", c.Errors.String()))...)
		default:
			logger.Debug("request", fields...)
		}
	}
}
