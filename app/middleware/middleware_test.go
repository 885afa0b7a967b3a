package middleware

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"ams/app/config"
)

func withConfig(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("config", cfg)
		return c.Next()
	}
}

func ok(c *fiber.Ctx) error {
	return c.SendStatus(fiber.StatusNoContent)
}

func TestAdminMiddleware(t *testing.T) {
	testCases := []struct {
		name     string
		key      string
		header   string
		expected int
	}{
		{"no key configured", "", "", fiber.StatusNoContent},
		{"missing header", "s3cret", "", fiber.StatusUnauthorized},
		{"wrong key", "s3cret", "guess", fiber.StatusUnauthorized},
		{"valid key", "s3cret", "s3cret", fiber.StatusNoContent},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			app := fiber.New()
			app.Use(withConfig(&config.Config{AdminAPIKey: tc.key}))
			app.Post("/tracks", AdminMiddleware, ok)

			req := httptest.NewRequest("POST", "/tracks", nil)
			if tc.header != "" {
				req.Header.Set(HeaderAPIKey, tc.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			if resp.StatusCode != tc.expected {
				t.Errorf("AdminMiddleware(%s) = %d; want %d", tc.name, resp.StatusCode, tc.expected)
			}
		})
	}
}

type countingLimiter struct {
	budget int
}

func (l *countingLimiter) Allow(ctx context.Context, key string) bool {
	l.budget--
	return l.budget >= 0
}

func TestRateLimit(t *testing.T) {
	app := fiber.New()
	app.Post("/users", RateLimit(&countingLimiter{budget: 2}), ok)

	var statuses []int
	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest("POST", "/users", nil))
		require.NoError(t, err)
		statuses = append(statuses, resp.StatusCode)
	}
	require.Equal(t, []int{204, 204, 429}, statuses)

	open := fiber.New()
	open.Post("/users", RateLimit(nil), ok)
	resp, err := open.Test(httptest.NewRequest("POST", "/users", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}

func TestRobotsMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(RobotsMiddleware)
	app.Get("/genders", ok)

	resp, err := app.Test(httptest.NewRequest("GET", "/robots.txt", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	require.Equal(t, robotsTxt, string(body))

	resp, err = app.Test(httptest.NewRequest("GET", "/genders", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	app := fiber.New()
	app.Use(requestid.New())
	app.Use(RequestLogger(zap.New(core)))
	app.Get("/ok", ok)
	app.Get("/missing", func(c *fiber.Ctx) error {
		return fiber.ErrNotFound
	})
	app.Get("/boom", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal Server Error"})
	})

	for _, path := range []string{"/ok", "/missing", "/boom"} {
		_, err := app.Test(httptest.NewRequest("GET", path, nil))
		require.NoError(t, err)
	}

	entries := logs.All()
	require.Len(t, entries, 3)
	require.Equal(t, zapcore.InfoLevel, entries[0].Level)
	require.Equal(t, zapcore.WarnLevel, entries[1].Level)
	require.Equal(t, int64(404), entries[1].ContextMap()["status"])
	require.Equal(t, zapcore.ErrorLevel, entries[2].Level)
	require.NotEmpty(t, entries[0].ContextMap()["request_id"])
}
