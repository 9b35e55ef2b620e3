package admin

import (
	"git.solsynth.dev/hypernet/livepoll/pkg/internal/http/exts"
	"git.solsynth.dev/hypernet/livepoll/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
)

func adminTriggerReconcile(c *fiber.Ctx) error {
	if err := exts.EnsureAdmin(c); err != nil {
		return err
	}

	report := services.ReconcilePollsWithContext(c.UserContext())

	return c.JSON(fiber.Map{
		"tenants": report.Tenants,
		"emitted": report.Emitted,
		"skipped": report.Skipped,
		"failed":  report.Failed,
	})
}
