package api

import (
	"git.solsynth.dev/hypernet/livepoll/pkg/internal/http/exts"
	"git.solsynth.dev/hypernet/livepoll/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func beginTwitchLogin(c *fiber.Ctx) error {
	if services.Identity == nil || !services.Identity.IsConfigured() {
		return fiber.NewError(fiber.StatusInternalServerError, "twitch login is not configured, set twitch.client_id and twitch.client_secret")
	}

	sess, err := exts.Sessions.Get(c)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	state := uuid.NewString()
	sess.Set(exts.SessionStateKey, state)
	if err := sess.Save(); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	return c.Redirect(services.Identity.AuthCodeURL(state), fiber.StatusFound)
}

func finishTwitchLogin(c *fiber.Ctx) error {
	if reason := c.Query("error"); len(reason) > 0 {
		return fiber.NewError(fiber.StatusBadRequest, c.Query("error_description", reason))
	}

	sess, err := exts.Sessions.Get(c)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	expected, _ := sess.Get(exts.SessionStateKey).(string)
	if len(expected) == 0 || expected != c.Query("state") {
		return fiber.NewError(fiber.StatusBadRequest, "login state mismatch, please try again")
	}

	code := c.Query("code")
	if len(code) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "missing authorization code")
	}

	account, err := services.SignIn(c.UserContext(), code)
	if err != nil {
		return exts.HandleServiceError(c, err)
	}

	if err := sess.Regenerate(); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	sess.Delete(exts.SessionStateKey)
	sess.Set(exts.SessionAccountKey, account.ID)
	if err := sess.Save(); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	return c.Redirect("/", fiber.StatusFound)
}

func logout(c *fiber.Ctx) error {
	sess, err := exts.Sessions.Get(c)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	if err := sess.Destroy(); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.SendStatus(fiber.StatusOK)
}
