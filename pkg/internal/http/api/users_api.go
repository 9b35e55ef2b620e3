package api

import (
	"git.solsynth.dev/hypernet/livepoll/pkg/internal/http/exts"
	"git.solsynth.dev/hypernet/livepoll/pkg/internal/models"
	"git.solsynth.dev/hypernet/livepoll/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

func getMe(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)

	credentialValid := true
	if _, err := services.EnsureValidCredential(c.UserContext(), user); err != nil {
		log.Warn().Err(err).Uint("account", user.ID).Msg("Credential check failed...")
		credentialValid = false
	}

	return c.JSON(fiber.Map{
		"account":          user,
		"widget_url":       services.GetWidgetURL(user),
		"credential_valid": credentialValid,
	})
}

func regenerateWidgetToken(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)

	account, err := services.RegenerateDistributionKey(user)
	if err != nil {
		return exts.HandleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"widget_url": services.GetWidgetURL(account),
	})
}
