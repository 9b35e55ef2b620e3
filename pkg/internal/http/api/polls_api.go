package api

import (
	"git.solsynth.dev/hypernet/livepoll/pkg/internal/http/exts"
	"git.solsynth.dev/hypernet/livepoll/pkg/internal/models"
	"git.solsynth.dev/hypernet/livepoll/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
)

func listPolls(c *fiber.Ctx) error {
	take := c.QueryInt("take", 20)
	offset := c.QueryInt("offset", 0)

	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)

	count, err := services.CountPolls(user)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	items, err := services.ListPolls(user, take, offset)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	return c.JSON(fiber.Map{
		"count": count,
		"data":  items,
	})
}

func getLatestPoll(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)

	poll, err := services.GetLatestPoll(user)
	if err != nil {
		return exts.HandleServiceError(c, err)
	}

	return c.JSON(poll)
}

func getCurrentPoll(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)

	snapshot, err := services.GetCurrentSnapshot(c.UserContext(), user)
	if err != nil {
		return exts.HandleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"poll": snapshot})
}

func createPollDraft(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)

	var data struct {
		Title       string   `json:"title" validate:"max=60"`
		Options     []string `json:"options" validate:"required"`
		DurationSec int      `json:"duration_sec" validate:"gte=0,lte=1800"`
	}

	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	poll, err := services.SaveDraft(user, data.Title, data.Options, data.DurationSec)
	if err != nil {
		return exts.HandleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"poll_id": poll.ID})
}

func submitPoll(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)

	var data struct {
		PollID      *uint    `json:"poll_id"`
		Title       string   `json:"title" validate:"max=60"`
		Options     []string `json:"options"`
		DurationSec int      `json:"duration_sec" validate:"gte=0,lte=1800"`
	}

	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	poll, snapshot, err := services.SubmitPoll(c.UserContext(), user, services.SubmitPollRequest{
		PollID:      data.PollID,
		Title:       data.Title,
		Options:     data.Options,
		DurationSec: data.DurationSec,
	})
	if err != nil {
		return exts.HandleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"ok":          true,
		"external_id": snapshot.ID,
		"poll":        poll,
	})
}

func endPoll(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)

	snapshot, err := services.EndPollNow(c.UserContext(), user)
	if err != nil {
		return exts.HandleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"ok":   true,
		"poll": snapshot,
	})
}
