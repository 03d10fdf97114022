package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/neogan74/tribbler/internal/audit"
	"github.com/neogan74/tribbler/internal/backend"
	"github.com/neogan74/tribbler/internal/config"
	"github.com/neogan74/tribbler/internal/keeper"
	"github.com/neogan74/tribbler/internal/logger"
	"github.com/neogan74/tribbler/internal/migration"
	"github.com/neogan74/tribbler/internal/replicated"
	"github.com/neogan74/tribbler/internal/router"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	appLogger := logger.NewFromConfig(cfg.Log.Level, cfg.Log.Format)
	logger.SetDefault(appLogger)

	if len(cfg.Keeper.Backends) == 0 {
		log.Fatalf("no backends configured (set TRIBBLER_BACKENDS)")
	}

	backends := make([]keeper.Backend, 0, len(cfg.Keeper.Backends))
	clients := make(map[int]replicated.BackendClient, len(cfg.Keeper.Backends))
	for _, b := range cfg.Keeper.Backends {
		backends = append(backends, keeper.Backend{ID: b.ID, HealthAddr: b.HealthAddr})
		clients[b.ID] = backend.NewClient(b.RPCAddr)
	}

	appLogger.Info("starting tribbler keeper", logger.Int("backends", len(backends)))

	r := router.New(nil)
	engine := migration.NewEngine(clients, appLogger)

	auditor, err := audit.NewManager(audit.Config{
		Enabled:       cfg.Audit.Enabled,
		Sink:          cfg.Audit.Sink,
		FilePath:      cfg.Audit.FilePath,
		BufferSize:    cfg.Audit.BufferSize,
		FlushInterval: cfg.Audit.FlushInterval,
		DropPolicy:    audit.DropPolicy(cfg.Audit.DropPolicy),
	}, appLogger)
	if err != nil {
		log.Fatalf("failed to initialize audit manager: %v", err)
	}

	events := make(chan migration.BackendEvent, 64)
	k := keeper.New(backends, clients, r, engine, auditor, appLogger, events)

	app := fiber.New()
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	keeper.RegisterAdminWebSocket(app, k, appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go k.Run(ctx)

	adminAddr := ":9090"
	go func() {
		if err := app.Listen(adminAddr); err != nil {
			appLogger.Error("admin server exited", logger.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("shutting down keeper...")
	cancel()
	if err := app.Shutdown(); err != nil {
		appLogger.Error("admin server forced to shutdown", logger.Error(err))
	}
	appLogger.Info("keeper exited gracefully")
}
