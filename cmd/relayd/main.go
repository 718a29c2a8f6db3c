package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"smartlink/internal/app"
)

func main() {
	cfg, err := app.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}
	log := app.NewLogger(cfg.LogLevel)

	wire, err := app.NewWire(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to wire dependencies")
	}
	defer wire.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- wire.Server.Serve(cfg.ListenAddr()) }()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := wire.Server.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("graceful shutdown failed")
		}
		<-errCh
	case err := <-errCh:
		if err != nil {
			log.WithError(err).Fatal("relay server failed")
		}
	}
}
