package handlers

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/saeid-a/GymSessionsBack/internal/models"
	"github.com/saeid-a/GymSessionsBack/internal/repository"
	"github.com/saeid-a/GymSessionsBack/internal/services"
)

type schedulingApplicationService interface {
	CreateSession(ctx context.Context, actor services.Actor, input services.CreateSessionInput) (*models.Session, error)
	RescheduleSession(ctx context.Context, actor services.Actor, sessionID int64, input services.RescheduleSessionInput) (*models.Session, error)
	CancelSession(ctx context.Context, actor services.Actor, sessionID int64, reason string) (*models.Session, error)
	EditCapacity(ctx context.Context, actor services.Actor, sessionID int64, newMaxParticipants int) (*models.Session, error)
	CompleteSession(ctx context.Context, actor services.Actor, sessionID int64) (*models.Session, error)
	GetSession(ctx context.Context, sessionID int64) (*models.Session, error)
	ListSessionsForTrainer(ctx context.Context, trainerID int64, filter repository.SessionListFilter) ([]models.Session, error)
	ListActiveSessions(ctx context.Context, filter repository.SessionListFilter) ([]models.Session, error)
	ListSessionEvents(ctx context.Context, actor services.Actor, sessionID int64) ([]models.SessionEvent, error)
	CheckAvailability(ctx context.Context, trainerID int64, start time.Time, end time.Time) (bool, error)
}

type SessionHandler struct {
	service schedulingApplicationService
}

func NewSessionHandler(service *services.SchedulingService) *SessionHandler {
	return &SessionHandler{service: service}
}

type createSessionRequest struct {
	Title            string  `json:"title"`
	TrainerName      string  `json:"trainer_name"`
	Kind             string  `json:"kind"`
	Location         *string `json:"location"`
	OnlineLink       *string `json:"online_link"`
	StartAt          string  `json:"start_at"`
	EndAt            string  `json:"end_at"`
	MaxParticipants  int     `json:"max_participants"`
	RequiresApproval *bool   `json:"requires_approval"`
	Description      *string `json:"description"`
}

type rescheduleSessionRequest struct {
	StartAt    string  `json:"start_at"`
	EndAt      string  `json:"end_at"`
	Location   *string `json:"location"`
	OnlineLink *string `json:"online_link"`
}

type cancelSessionRequest struct {
	Reason string `json:"reason"`
}

type editCapacityRequest struct {
	MaxParticipants int `json:"max_participants"`
}

func (h *SessionHandler) CreateSession(c *fiber.Ctx) error {
	actor, ok := actorFromCtx(c)
	if !ok {
		return unauthorized(c)
	}

	var req createSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	startAt, endAt, msg := parseWindow(req.StartAt, req.EndAt)
	if msg != "" {
		return badRequest(c, msg)
	}

	session, err := h.service.CreateSession(c.Context(), actor, services.CreateSessionInput{
		Title:            req.Title,
		TrainerName:      req.TrainerName,
		Kind:             req.Kind,
		Location:         req.Location,
		OnlineLink:       req.OnlineLink,
		StartAt:          startAt,
		EndAt:            endAt,
		MaxParticipants:  req.MaxParticipants,
		RequiresApproval: req.RequiresApproval,
		Description:      req.Description,
	})
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"session": session})
}

func (h *SessionHandler) ListActiveSessions(c *fiber.Ctx) error {
	if _, ok := actorFromCtx(c); !ok {
		return unauthorized(c)
	}

	sessions, err := h.service.ListActiveSessions(c.Context(), listFilter(c))
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"sessions": sessions})
}

// ListMySessions lists the calling trainer's own calendar, every status.
func (h *SessionHandler) ListMySessions(c *fiber.Ctx) error {
	actor, ok := actorFromCtx(c)
	if !ok {
		return unauthorized(c)
	}
	if !actor.IsTrainer() {
		return mapServiceError(c, services.ErrForbidden)
	}

	sessions, err := h.service.ListSessionsForTrainer(c.Context(), actor.ID, listFilter(c))
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"sessions": sessions})
}

func (h *SessionHandler) ListTrainerSessions(c *fiber.Ctx) error {
	if _, ok := actorFromCtx(c); !ok {
		return unauthorized(c)
	}
	trainerID, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "Invalid trainer id")
	}

	filter := listFilter(c)
	if filter.Status == "" {
		filter.Status = models.SessionStatusActive
	}
	sessions, err := h.service.ListSessionsForTrainer(c.Context(), trainerID, filter)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"sessions": sessions})
}

func (h *SessionHandler) CheckAvailability(c *fiber.Ctx) error {
	if _, ok := actorFromCtx(c); !ok {
		return unauthorized(c)
	}
	trainerID, err := strconv.ParseInt(c.Query("trainer_id"), 10, 64)
	if err != nil || trainerID <= 0 {
		return badRequest(c, "trainer_id must be a positive integer")
	}
	startAt, endAt, msg := parseWindow(c.Query("start_at"), c.Query("end_at"))
	if msg != "" {
		return badRequest(c, msg)
	}

	available, err := h.service.CheckAvailability(c.Context(), trainerID, startAt, endAt)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"available": available})
}

func (h *SessionHandler) GetSession(c *fiber.Ctx) error {
	if _, ok := actorFromCtx(c); !ok {
		return unauthorized(c)
	}
	sessionID, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "Invalid session id")
	}

	session, err := h.service.GetSession(c.Context(), sessionID)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"session": session})
}

func (h *SessionHandler) RescheduleSession(c *fiber.Ctx) error {
	actor, ok := actorFromCtx(c)
	if !ok {
		return unauthorized(c)
	}
	sessionID, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "Invalid session id")
	}

	var req rescheduleSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	startAt, endAt, msg := parseWindow(req.StartAt, req.EndAt)
	if msg != "" {
		return badRequest(c, msg)
	}

	session, err := h.service.RescheduleSession(c.Context(), actor, sessionID, services.RescheduleSessionInput{
		StartAt:    startAt,
		EndAt:      endAt,
		Location:   req.Location,
		OnlineLink: req.OnlineLink,
	})
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"session": session})
}

func (h *SessionHandler) CancelSession(c *fiber.Ctx) error {
	actor, ok := actorFromCtx(c)
	if !ok {
		return unauthorized(c)
	}
	sessionID, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "Invalid session id")
	}

	var req cancelSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	session, err := h.service.CancelSession(c.Context(), actor, sessionID, req.Reason)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"session": session})
}

func (h *SessionHandler) EditCapacity(c *fiber.Ctx) error {
	actor, ok := actorFromCtx(c)
	if !ok {
		return unauthorized(c)
	}
	sessionID, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "Invalid session id")
	}

	var req editCapacityRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	session, err := h.service.EditCapacity(c.Context(), actor, sessionID, req.MaxParticipants)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"session": session})
}

func (h *SessionHandler) CompleteSession(c *fiber.Ctx) error {
	actor, ok := actorFromCtx(c)
	if !ok {
		return unauthorized(c)
	}
	sessionID, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "Invalid session id")
	}

	session, err := h.service.CompleteSession(c.Context(), actor, sessionID)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"session": session})
}

func (h *SessionHandler) ListSessionEvents(c *fiber.Ctx) error {
	actor, ok := actorFromCtx(c)
	if !ok {
		return unauthorized(c)
	}
	sessionID, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "Invalid session id")
	}

	events, err := h.service.ListSessionEvents(c.Context(), actor, sessionID)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"events": events})
}

func listFilter(c *fiber.Ctx) repository.SessionListFilter {
	return repository.SessionListFilter{
		Status:    strings.TrimSpace(c.Query("status")),
		Kind:      strings.TrimSpace(c.Query("kind")),
		Timeframe: strings.TrimSpace(c.Query("timeframe")),
	}
}

// parseWindow returns a non-empty message when either bound is not RFC3339.
func parseWindow(start, end string) (time.Time, time.Time, string) {
	startAt, err := time.Parse(time.RFC3339, strings.TrimSpace(start))
	if err != nil {
		return time.Time{}, time.Time{}, "start_at must be a valid RFC3339 timestamp"
	}
	endAt, err := time.Parse(time.RFC3339, strings.TrimSpace(end))
	if err != nil {
		return time.Time{}, time.Time{}, "end_at must be a valid RFC3339 timestamp"
	}
	return startAt, endAt, ""
}
