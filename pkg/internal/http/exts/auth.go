package exts

import (
	"crypto/subtle"
	"strings"
	"time"

	"git.solsynth.dev/hypernet/livepoll/pkg/internal/models"
	"git.solsynth.dev/hypernet/livepoll/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const (
	SessionAccountKey = "account_id"
	SessionStateKey   = "oauth_state"
)

var Sessions *session.Store

func InitSessionStore() {
	Sessions = session.New(session.Config{
		Expiration:     7 * 24 * time.Hour,
		KeyLookup:      "cookie:livepoll_session",
		CookieSecure:   viper.GetBool("security.cookie_secure"),
		CookieHTTPOnly: true,
		CookieSameSite: fiber.CookieSameSiteLaxMode,
	})
}

// SessionMiddleware puts the signed in account into Locals("user") when there is one.
func SessionMiddleware(c *fiber.Ctx) error {
	if len(c.Cookies("livepoll_session")) == 0 {
		return c.Next()
	}

	sess, err := Sessions.Get(c)
	if err != nil {
		log.Warn().Err(err).Msg("Unable to load session...")
		return c.Next()
	}

	if id, ok := sess.Get(SessionAccountKey).(uint); ok {
		if account, err := services.GetAccount(id); err == nil {
			c.Locals("user", account)
		}
	}

	return c.Next()
}

func EnsureAuthenticated(c *fiber.Ctx) error {
	if _, ok := c.Locals("user").(models.Account); !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "sign in with twitch first")
	}
	return nil
}

// EnsureAdmin accepts requests carrying the configured admin key as a bearer token.
func EnsureAdmin(c *fiber.Ctx) error {
	key := viper.GetString("security.admin_key")
	if len(key) == 0 {
		return fiber.NewError(fiber.StatusForbidden, "admin access is disabled")
	}

	provided := strings.TrimPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
	if subtle.ConstantTimeCompare([]byte(provided), []byte(key)) != 1 {
		return fiber.NewError(fiber.StatusForbidden, "invalid admin key")
	}
	return nil
}
