package middleware

import "github.com/gofiber/fiber/v2"

const robotsTxt = "User-agent: *\nDisallow: /\n"

// RobotsMiddleware tells crawlers to stay away from the API.
func RobotsMiddleware(c *fiber.Ctx) error {
	if c.Path() == "/robots.txt" {
		c.Set(fiber.HeaderCacheControl, "public, max-age=86400")
		c.Type("txt")
		return c.SendString(robotsTxt)
	}
	return c.Next()
}
