package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/kursadbilgin/batch-trace/internal/bootstrap"
	"github.com/kursadbilgin/batch-trace/internal/config"
	"github.com/kursadbilgin/batch-trace/internal/observability"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	logger, err := observability.NewLogger(observability.LoggerConfig{
		Level:     cfg.LogLevel,
		Format:    cfg.LogFormat,
		Component: "api",
	})
	if err != nil {
		log.Fatal("failed to initialize logger", zap.Error(err))
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("bootstrap failed", zap.String("store_driver", cfg.StoreDriver), zap.Error(err))
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("failed to close snapshot store", zap.Error(err))
		}
	}()

	flusher, err := app.Flusher()
	if err != nil {
		logger.Fatal("snapshot flusher initialization failed", zap.Error(err))
	}
	flushDone := make(chan struct{})
	go func() {
		defer close(flushDone)
		_ = flusher.Start(ctx)
	}()

	server, err := app.NewHTTPApp()
	if err != nil {
		logger.Fatal("http app initialization failed", zap.Error(err))
	}

	listenErr := make(chan error, 1)
	go func() {
		listenErr <- server.Listen(fmt.Sprintf(":%d", cfg.APIPort))
	}()

	logger.Info("batch-trace api started",
		zap.Int("port", cfg.APIPort),
		zap.String("store_driver", cfg.StoreDriver),
	)

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-listenErr:
		if err != nil {
			logger.Error("http server stopped", zap.Error(err))
		}
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("http server shutdown failed", zap.Error(err))
	}

	<-flushDone
	logger.Info("batch-trace api stopped")
}
