package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/airreservation/config"
	"github.com/Domenick1991/airreservation/internal/bootstrap"
	"github.com/Domenick1991/airreservation/internal/logger"
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

	if err := bootstrap.Run(ctx, cfg, app.Services, lg); err != nil {
		lg.Error("server error", zap.Error(err))
	}
}
