package http

import (
	"net"
	"strings"

	"git.solsynth.dev/hypernet/livepoll/pkg/internal/http/admin"
	"git.solsynth.dev/hypernet/livepoll/pkg/internal/http/api"
	"git.solsynth.dev/hypernet/livepoll/pkg/internal/http/exts"
	"git.solsynth.dev/hypernet/livepoll/pkg/internal/http/ws"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type HTTPApp struct {
	app *fiber.App
}

func NewServer() *HTTPApp {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		EnableIPValidation:    true,
		ServerHeader:          "Hypernet.Livepoll",
		AppName:               "Hypernet.Livepoll",
		ProxyHeader:           fiber.HeaderXForwardedFor,
		JSONEncoder:           jsoniter.ConfigCompatibleWithStandardLibrary.Marshal,
		JSONDecoder:           jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal,
		BodyLimit:             1 * 1024 * 1024,
		EnablePrintRoutes:     viper.GetBool("debug.print_routes"),
		ErrorHandler:          exts.ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: strings.Join([]string{
			fiber.MethodGet,
			fiber.MethodPost,
			fiber.MethodPut,
			fiber.MethodDelete,
			fiber.MethodPatch,
		}, ","),
	}))

	app.Use(logger.New(logger.Config{
		Format: "${status} | ${latency} | ${method} ${path}\n",
		Output: log.Logger,
	}))

	exts.InitSessionStore()
	app.Use(exts.SessionMiddleware)

	api.MapControllers(app, "/api")
	api.MapAuthControllers(app, "/auth")
	admin.MapControllers(app, "/admin")
	ws.MapControllers(app, "/ws")

	return &HTTPApp{app}
}

func (v *HTTPApp) App() *fiber.App {
	return v.app
}

func (v *HTTPApp) Listen() {
	if err := v.app.Listen(viper.GetString("bind")); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when starting server...")
	}
}

func (v *HTTPApp) Listener(ln net.Listener) error {
	return v.app.Listener(ln)
}

func (v *HTTPApp) Shutdown() error {
	return v.app.Shutdown()
}
