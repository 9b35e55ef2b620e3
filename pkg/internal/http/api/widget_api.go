package api

import (
	"git.solsynth.dev/hypernet/livepoll/pkg/internal/http/exts"
	"git.solsynth.dev/hypernet/livepoll/pkg/internal/models"
	"git.solsynth.dev/hypernet/livepoll/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

func checkWidgetToken(c *fiber.Ctx) error {
	if _, err := services.GetAccountByDistributionKey(c.Params("token")); err != nil {
		return exts.HandleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"ok": true})
}

// getWidgetPoll gives a freshly loaded overlay something to paint before the first push arrives.
func getWidgetPoll(c *fiber.Ctx) error {
	account, err := services.GetAccountByDistributionKey(c.Params("token"))
	if err != nil {
		return exts.HandleServiceError(c, err)
	}

	if snapshot, ok := services.GetCachedSnapshot(account.ID); ok {
		return c.JSON(fiber.Map{"poll": snapshot})
	}

	var snapshot *models.PollSnapshot
	if snapshot, err = services.GetCurrentSnapshot(c.UserContext(), account); err != nil {
		log.Warn().Err(err).Uint("account", account.ID).Msg("Unable to load poll for widget...")
		snapshot = nil
	}

	return c.JSON(fiber.Map{"poll": snapshot})
}
