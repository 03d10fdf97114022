package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/neogan74/tribbler/internal/backend"
	"github.com/neogan74/tribbler/internal/config"
	"github.com/neogan74/tribbler/internal/logger"
	"github.com/neogan74/tribbler/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	appLogger := logger.NewFromConfig(cfg.Log.Level, cfg.Log.Format)
	logger.SetDefault(appLogger)

	appLogger.Info("starting tribbler backend",
		logger.Int("id", cfg.Backend.ID),
		logger.String("rpc_addr", cfg.Backend.RPCAddr),
		logger.String("health_addr", cfg.Backend.HealthAddr),
		logger.String("storage", cfg.Backend.StorageType))

	var engine storage.Engine
	switch cfg.Backend.StorageType {
	case "badger":
		badgerEngine, err := storage.NewBadger(cfg.Backend.DataDir, true, appLogger)
		if err != nil {
			log.Fatalf("failed to open badger storage: %v", err)
		}
		defer badgerEngine.Close()
		engine = badgerEngine
	default:
		engine = storage.NewMemory()
	}

	srv := backend.NewServer(engine, appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- backend.ListenAndServe(ctx, cfg.Backend.RPCAddr, cfg.Backend.HealthAddr, srv)
	}()

	select {
	case <-quit:
		appLogger.Info("shutting down backend...")
		cancel()
		<-errCh
	case err := <-errCh:
		if err != nil && err != context.Canceled {
			appLogger.Error("backend server exited", logger.Error(err))
		}
	}

	appLogger.Info("backend exited gracefully")
}
