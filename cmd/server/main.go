package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"github.com/saeid-a/GymSessionsBack/internal/config"
	"github.com/saeid-a/GymSessionsBack/internal/database"
	"github.com/saeid-a/GymSessionsBack/internal/logger"
	"github.com/saeid-a/GymSessionsBack/internal/metrics"
	"github.com/saeid-a/GymSessionsBack/internal/middleware"
	"github.com/saeid-a/GymSessionsBack/internal/notify"
	"github.com/saeid-a/GymSessionsBack/internal/routes"
	sessionws "github.com/saeid-a/GymSessionsBack/internal/websocket"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logger.SetupDefault(os.Stdout, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to Database
	if err := database.ConnectDB(cfg.DBUrl, int32(cfg.DBMaxConns)); err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.CloseDB()

	// 3. Metrics, realtime hub and notification fan-out
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	hub := sessionws.NewHub()
	go hub.Run(ctx)

	dispatcher := notify.NewDispatcher(notify.Options{
		Workers:   cfg.NotifyWorkers,
		QueueSize: cfg.NotifyQueueSize,
		Metrics:   collector,
	}, notify.NewLogSink(log.Logger), hub)
	dispatcher.Start()

	// 4. Setup Fiber
	app := fiber.New(fiber.Config{DisableStartupMessage: true})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(cors.New(cors.Config{AllowOrigins: cfg.CORSAllowOrigins}))
	app.Use(middleware.RequestLogger(collector))

	app.Get("/health", func(c *fiber.Ctx) error {
		if err := database.DB.Ping(c.UserContext()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded"})
		}
		return c.JSON(fiber.Map{
			"status": "ok",
		})
	})
	if err := routes.RegisterRoutes(app, cfg, routes.Dependencies{
		DB:       database.DB,
		Notifier: dispatcher,
		Metrics:  collector,
		Gatherer: reg,
		Hub:      hub,
	}); err != nil {
		log.Fatal().Err(err).Msg("failed to register routes")
	}

	// 5. Start Server
	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.AppEnv).Msg("server starting")
		serverErr <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			log.Error().Err(err).Msg("server stopped")
		}
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
	if err := dispatcher.Close(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("notification dispatcher did not drain")
	}
	stop()
	log.Info().Msg("server stopped")
}
