package middleware

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"

	"ams/app/config"
)

const HeaderAPIKey = "X-API-Key"

// AdminMiddleware guards reference data mutations with the shared admin key.
// It is a no-op while no key is configured.
func AdminMiddleware(c *fiber.Ctx) error {
	cfg := c.Locals("config").(*config.Config)
	if cfg.AdminAPIKey == "" {
		return c.Next()
	}

	key := c.Get(HeaderAPIKey)
	if subtle.ConstantTimeCompare([]byte(key), []byte(cfg.AdminAPIKey)) != 1 {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	return c.Next()
}
