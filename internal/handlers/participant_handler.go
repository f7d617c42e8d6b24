package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/saeid-a/GymSessionsBack/internal/models"
	"github.com/saeid-a/GymSessionsBack/internal/services"
)

type participationApplicationService interface {
	JoinSession(ctx context.Context, actor services.Actor, sessionID int64, input services.JoinSessionInput) (*models.ParticipantEntry, error)
	ApproveParticipant(ctx context.Context, actor services.Actor, sessionID int64, participantID int64) (*models.ParticipantEntry, error)
	RejectParticipant(ctx context.Context, actor services.Actor, sessionID int64, participantID int64) (*models.ParticipantEntry, error)
	ListParticipants(ctx context.Context, actor services.Actor, sessionID int64, status string) ([]models.ParticipantEntry, error)
	ListMyBookings(ctx context.Context, actor services.Actor, status string) ([]models.Booking, error)
	Eligibility(ctx context.Context, actor services.Actor, sessionID int64) (*models.Eligibility, error)
}

type ParticipantHandler struct {
	service participationApplicationService
}

func NewParticipantHandler(service *services.ParticipationService) *ParticipantHandler {
	return &ParticipantHandler{service: service}
}

// joinSessionRequest may be empty; the token's name and email fill in.
type joinSessionRequest struct {
	UserName  string `json:"user_name"`
	UserEmail string `json:"user_email"`
}

func (h *ParticipantHandler) JoinSession(c *fiber.Ctx) error {
	actor, ok := actorFromCtx(c)
	if !ok {
		return unauthorized(c)
	}
	sessionID, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "Invalid session id")
	}

	var req joinSessionRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
	}

	entry, err := h.service.JoinSession(c.Context(), actor, sessionID, services.JoinSessionInput{
		UserName:  req.UserName,
		UserEmail: req.UserEmail,
	})
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"participant": entry})
}

func (h *ParticipantHandler) ApproveParticipant(c *fiber.Ctx) error {
	return h.decide(c, h.service.ApproveParticipant)
}

func (h *ParticipantHandler) RejectParticipant(c *fiber.Ctx) error {
	return h.decide(c, h.service.RejectParticipant)
}

type decisionFunc func(ctx context.Context, actor services.Actor, sessionID int64, participantID int64) (*models.ParticipantEntry, error)

func (h *ParticipantHandler) decide(c *fiber.Ctx, decide decisionFunc) error {
	actor, ok := actorFromCtx(c)
	if !ok {
		return unauthorized(c)
	}
	sessionID, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "Invalid session id")
	}
	participantID, ok := parseIDParam(c, "participantId")
	if !ok {
		return badRequest(c, "Invalid participant id")
	}

	entry, err := decide(c.Context(), actor, sessionID, participantID)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"participant": entry})
}

func (h *ParticipantHandler) ListParticipants(c *fiber.Ctx) error {
	actor, ok := actorFromCtx(c)
	if !ok {
		return unauthorized(c)
	}
	sessionID, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "Invalid session id")
	}

	entries, err := h.service.ListParticipants(c.Context(), actor, sessionID, strings.TrimSpace(c.Query("status")))
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"participants": entries})
}

func (h *ParticipantHandler) ListMyBookings(c *fiber.Ctx) error {
	actor, ok := actorFromCtx(c)
	if !ok {
		return unauthorized(c)
	}

	bookings, err := h.service.ListMyBookings(c.Context(), actor, strings.TrimSpace(c.Query("status")))
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"bookings": bookings})
}

func (h *ParticipantHandler) Eligibility(c *fiber.Ctx) error {
	actor, ok := actorFromCtx(c)
	if !ok {
		return unauthorized(c)
	}
	sessionID, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "Invalid session id")
	}

	eligibility, err := h.service.Eligibility(c.Context(), actor, sessionID)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"eligibility": eligibility})
}
