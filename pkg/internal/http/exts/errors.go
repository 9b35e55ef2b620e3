package exts

import (
	"errors"

	"git.solsynth.dev/hypernet/livepoll/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// HandleServiceError turns a service error into the response the dashboard expects.
func HandleServiceError(c *fiber.Ctx, err error) error {
	var external *services.ExternalAPIError
	switch {
	case errors.Is(err, services.ErrCredential):
		return fiber.NewError(fiber.StatusUnauthorized, err.Error())
	case errors.As(err, &external):
		log.Warn().Err(err).Int("status", external.StatusCode).Msg("Twitch rejected the request...")
		body := fiber.Map{"error": external.Error()}
		if len(external.Details) > 0 {
			body["details"] = external.Details
		}
		return c.Status(fiber.StatusBadGateway).JSON(body)
	case errors.Is(err, services.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}

// ErrorHandler renders every error as {"error": reason}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
