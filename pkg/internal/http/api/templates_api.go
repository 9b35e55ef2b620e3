package api

import (
	"git.solsynth.dev/hypernet/livepoll/pkg/internal/http/exts"
	"git.solsynth.dev/hypernet/livepoll/pkg/internal/models"
	"git.solsynth.dev/hypernet/livepoll/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
)

func listTemplates(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)

	templates, err := services.ListTemplates(user)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	return c.JSON(templates)
}

func createTemplate(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)

	var data struct {
		Title   string   `json:"title" validate:"max=60"`
		Options []string `json:"options" validate:"required"`
	}

	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	template, err := services.NewTemplate(user, data.Title, data.Options)
	if err != nil {
		return exts.HandleServiceError(c, err)
	}

	return c.JSON(template)
}

func deleteTemplate(c *fiber.Ctx) error {
	templateId, _ := c.ParamsInt("templateId", 0)

	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)

	if err := services.DeleteTemplate(user, uint(templateId)); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	return c.SendStatus(fiber.StatusOK)
}
