package api

import (
	"github.com/gofiber/fiber/v2"
)

func MapControllers(app *fiber.App, baseURL string) {
	api := app.Group(baseURL).Name("API")
	{
		users := api.Group("/users").Name("Users API")
		{
			users.Get("/me", getMe)
			users.Post("/me/widget/regenerate", regenerateWidgetToken)
		}

		polls := api.Group("/polls").Name("Polls API")
		{
			polls.Get("/", listPolls)
			polls.Get("/current", getCurrentPoll)
			polls.Get("/latest", getLatestPoll)
			polls.Post("/drafts", createPollDraft)
			polls.Post("/", submitPoll)
			polls.Post("/end", endPoll)
		}

		templates := api.Group("/templates").Name("Templates API")
		{
			templates.Get("/", listTemplates)
			templates.Post("/", createTemplate)
			templates.Delete("/:templateId", deleteTemplate)
		}

		widget := api.Group("/widget").Name("Widget API")
		{
			widget.Get("/:token", checkWidgetToken)
			widget.Get("/:token/poll", getWidgetPoll)
		}
	}
}

func MapAuthControllers(app *fiber.App, baseURL string) {
	auth := app.Group(baseURL).Name("Auth")
	{
		auth.Get("/twitch", beginTwitchLogin)
		auth.Get("/twitch/callback", finishTwitchLogin)
		auth.Post("/logout", logout)
	}
}
