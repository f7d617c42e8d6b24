package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"github.com/saeid-a/GymSessionsBack/internal/services"
)

var kindStatus = map[string]int{
	"ValidationError":      fiber.StatusBadRequest,
	"NotFound":             fiber.StatusNotFound,
	"Forbidden":            fiber.StatusForbidden,
	"SchedulingConflict":   fiber.StatusConflict,
	"SessionClosed":        fiber.StatusUnprocessableEntity,
	"SessionFull":          fiber.StatusConflict,
	"PlanIncompatible":     fiber.StatusForbidden,
	"AlreadyJoined":        fiber.StatusConflict,
	"CapacityBelowCurrent": fiber.StatusConflict,
	"InvalidState":         fiber.StatusUnprocessableEntity,
	"ConcurrencyConflict":  fiber.StatusConflict,
}

// mapServiceError turns a service error into the JSON error body. Errors
// outside the taxonomy are logged and answered with an opaque 500.
func mapServiceError(c *fiber.Ctx, err error) error {
	kind := services.ErrorKind(err)
	status, ok := kindStatus[kind]
	if !ok {
		log.Error().
			Err(err).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Msg("request failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process session request",
			"kind":  services.KindInternal,
		})
	}

	message := err.Error()
	if kind == "Forbidden" {
		message = "Forbidden"
	}
	return c.Status(status).JSON(fiber.Map{"error": message, "kind": kind})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": message, "kind": "ValidationError"})
}

// actorFromCtx builds the caller identity from the auth middleware locals.
// The account service's older role names are accepted as aliases.
func actorFromCtx(c *fiber.Ctx) (services.Actor, bool) {
	userIDStr, ok := c.Locals("user_id").(string)
	if !ok {
		return services.Actor{}, false
	}
	userID, err := strconv.ParseInt(userIDStr, 10, 64)
	if err != nil || userID <= 0 {
		return services.Actor{}, false
	}

	role, _ := c.Locals("role").(string)
	switch strings.ToLower(strings.TrimSpace(role)) {
	case services.RoleTrainer, "coach":
		role = services.RoleTrainer
	case services.RoleMember, "user":
		role = services.RoleMember
	default:
		role = ""
	}

	name, _ := c.Locals("name").(string)
	email, _ := c.Locals("email").(string)
	return services.Actor{ID: userID, Role: role, Name: name, Email: email}, true
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
}

func parseIDParam(c *fiber.Ctx, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
