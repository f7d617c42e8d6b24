package routes

import (
	"errors"
	"time"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/saeid-a/GymSessionsBack/internal/config"
	"github.com/saeid-a/GymSessionsBack/internal/handlers"
	"github.com/saeid-a/GymSessionsBack/internal/metrics"
	"github.com/saeid-a/GymSessionsBack/internal/middleware"
	"github.com/saeid-a/GymSessionsBack/internal/repository"
	"github.com/saeid-a/GymSessionsBack/internal/services"
	sessionws "github.com/saeid-a/GymSessionsBack/internal/websocket"
)

type Dependencies struct {
	DB       *pgxpool.Pool
	Notifier services.Notifier
	Metrics  *metrics.Collector
	Gatherer prometheus.Gatherer
	Hub      *sessionws.Hub
}

func RegisterRoutes(app *fiber.App, cfg *config.Config, deps Dependencies) error {
	if deps.Metrics == nil || deps.Gatherer == nil || deps.Hub == nil {
		return errors.New("routes: metrics, gatherer and hub are required")
	}

	sessionRepo := repository.NewSessionRepository(deps.DB)
	participantRepo := repository.NewParticipantRepository(deps.DB)
	planRepo := repository.NewPlanRepository(deps.DB)
	eventRepo := repository.NewEventRepository(deps.DB)

	opts := services.Options{
		TxMaxAttempts:           cfg.TxMaxAttempts,
		DefaultRequiresApproval: cfg.SessionsRequireApproval,
		Notifier:                deps.Notifier,
		Metrics:                 deps.Metrics,
	}
	participationService := services.NewParticipationService(
		deps.DB,
		sessionRepo,
		participantRepo,
		services.NewPlanGate(planRepo, planRepo),
		opts,
	)
	schedulingService := services.NewSchedulingService(
		deps.DB,
		sessionRepo,
		eventRepo,
		participationService,
		opts,
	)

	sessionHandler := handlers.NewSessionHandler(schedulingService)
	participantHandler := handlers.NewParticipantHandler(participationService)
	eventStreamHandler := handlers.NewEventStreamHandler(deps.Hub)

	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler(deps.Gatherer)))
	if err := registerDocsRoutes(app, cfg); err != nil {
		return err
	}

	api := app.Group("/api")
	api.Use("/v1/ws", middleware.QueryTokenAuth(cfg.JWTSecret), eventStreamHandler.Upgrade)
	api.Get("/v1/ws", websocket.New(eventStreamHandler.Stream))

	authProtected := api.Group("/v1",
		limiter.New(limiter.Config{
			Max:        cfg.RateLimitPerMinute,
			Expiration: time.Minute,
		}),
		middleware.AuthRequired(cfg.JWTSecret),
	)

	sessions := authProtected.Group("/sessions")
	sessions.Post("", sessionHandler.CreateSession)
	sessions.Get("", sessionHandler.ListActiveSessions)
	sessions.Get("/availability", sessionHandler.CheckAvailability)
	sessions.Get("/mine", sessionHandler.ListMySessions)
	sessions.Get("/:id", sessionHandler.GetSession)
	sessions.Put("/:id/schedule", sessionHandler.RescheduleSession)
	sessions.Post("/:id/cancel", sessionHandler.CancelSession)
	sessions.Put("/:id/capacity", sessionHandler.EditCapacity)
	sessions.Post("/:id/complete", sessionHandler.CompleteSession)
	sessions.Get("/:id/events", sessionHandler.ListSessionEvents)
	sessions.Get("/:id/eligibility", participantHandler.Eligibility)
	sessions.Post("/:id/join", participantHandler.JoinSession)
	sessions.Get("/:id/participants", participantHandler.ListParticipants)
	sessions.Post("/:id/participants/:participantId/approve", participantHandler.ApproveParticipant)
	sessions.Post("/:id/participants/:participantId/reject", participantHandler.RejectParticipant)

	authProtected.Get("/trainers/:id/sessions", sessionHandler.ListTrainerSessions)
	authProtected.Get("/bookings", participantHandler.ListMyBookings)

	return nil
}
