package middleware

import (
	"github.com/gofiber/fiber/v2"

	"ams/app/platform/ratelimit"
)

// RateLimit throttles requests per client IP. A nil limiter disables it.
func RateLimit(limiter ratelimit.Limiter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if limiter == nil || limiter.Allow(c.UserContext(), c.IP()) {
			return c.Next()
		}
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error": "Too many requests. Please slow down.",
		})
	}
}
