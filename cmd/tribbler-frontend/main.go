package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/neogan74/tribbler/internal/auth"
	"github.com/neogan74/tribbler/internal/backend"
	"github.com/neogan74/tribbler/internal/config"
	"github.com/neogan74/tribbler/internal/frontend"
	"github.com/neogan74/tribbler/internal/logger"
	"github.com/neogan74/tribbler/internal/ratelimit"
	"github.com/neogan74/tribbler/internal/replicated"
	"github.com/neogan74/tribbler/internal/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	appLogger := logger.NewFromConfig(cfg.Log.Level, cfg.Log.Format)
	logger.SetDefault(appLogger)

	if len(cfg.Frontend.Backends) == 0 {
		log.Fatalf("no backends configured (set TRIBBLER_BACKENDS)")
	}

	clients := make(map[int]replicated.BackendClient, len(cfg.Frontend.Backends))
	live := make([]int, 0, len(cfg.Frontend.Backends))
	for _, b := range cfg.Frontend.Backends {
		clients[b.ID] = backend.NewClient(b.RPCAddr)
		live = append(live, b.ID)
	}

	appLogger.Info("starting tribbler front-end",
		logger.String("address", cfg.Address()),
		logger.Int("backends", len(clients)))

	r := router.New(live)
	kv := replicated.New(r, clients)
	front := frontend.New(kv)

	var opts []frontend.ServerOption
	if cfg.Frontend.RateLimit.Enabled {
		rl := ratelimit.NewService(ratelimit.Config{
			Enabled:         cfg.Frontend.RateLimit.Enabled,
			RequestsPerSec:  cfg.Frontend.RateLimit.RequestsPerSec,
			Burst:           cfg.Frontend.RateLimit.Burst,
			ByIP:            cfg.Frontend.RateLimit.ByIP,
			CleanupInterval: cfg.Frontend.RateLimit.CleanupInterval,
		})
		opts = append(opts, frontend.WithRateLimit(rl))
		appLogger.Info("rate limiting enabled",
			logger.String("requests_per_sec", fmt.Sprintf("%.1f", cfg.Frontend.RateLimit.RequestsPerSec)))
	}
	if cfg.Frontend.Auth.Enabled {
		jwtSvc := auth.NewJWTService(
			cfg.Frontend.Auth.JWTSecret,
			cfg.Frontend.Auth.JWTExpiry,
			cfg.Frontend.Auth.RefreshExpiry,
			cfg.Frontend.Auth.Issuer,
		)
		opts = append(opts, frontend.WithJWT(jwtSvc))
		appLogger.Info("JWT auth enabled", logger.String("issuer", cfg.Frontend.Auth.Issuer))
	}

	srv := frontend.NewServer(front, appLogger, opts...)

	app := fiber.New()
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	srv.Register(app)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	go func() {
		if err := app.Listen(cfg.Address()); err != nil {
			appLogger.Error("failed to start front-end server", logger.Error(err))
			log.Fatalf("listen error: %v", err)
		}
	}()

	<-quit
	appLogger.Info("shutting down front-end...")
	if err := app.Shutdown(); err != nil {
		appLogger.Error("front-end forced to shutdown", logger.Error(err))
		log.Fatalf("server forced to shutdown: %v", err)
	}
	appLogger.Info("front-end exited gracefully")
}
