package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/airreservation/config"
	"github.com/Domenick1991/airreservation/internal/bootstrap"
	"github.com/Domenick1991/airreservation/internal/email"
	"github.com/Domenick1991/airreservation/internal/kafka"
	"github.com/Domenick1991/airreservation/internal/logger"
	"github.com/Domenick1991/airreservation/internal/worker"
	"go.uber.org/zap"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	lg, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Build(ctx, cfg, lg)
	if err != nil {
		lg.Fatal("wire services", zap.Error(err))
	}
	defer app.Close()

	scheduler, err := worker.NewScheduler(cfg.Worker, app.Booking, app.Flight, lg.Named("worker"))
	if err != nil {
		lg.Fatal("schedule jobs", zap.Error(err))
	}
	scheduler.Start(ctx)

	if len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.NotificationsTopic != "" {
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic, lg.Named("consumer"))
		defer func() { _ = consumer.Close() }()

		sender := email.NewSender(lg.Named("email"))
		go func() {
			if err := consumer.Consume(ctx, sender.Handle); err != nil {
				lg.Error("consumer stopped", zap.Error(err))
			}
		}()
	}

	<-ctx.Done()
	lg.Info("shutting down worker")

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	scheduler.Stop(stopCtx)
}
