package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"ams/app/auth"
	"ams/app/platform/reference"
	"ams/app/platform/storage"
	"ams/app/platform/user"
)

// Logger returns the request scoped logger, or a no-op logger when none is set.
func Logger(c *fiber.Ctx) *zap.Logger {
	if log, ok := c.Locals("logger").(*zap.Logger); ok {
		return log
	}
	return zap.NewNop()
}

func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, user.ErrValidation), errors.Is(err, reference.ErrInvalid):
		return fiber.StatusBadRequest, err.Error()
	case errors.Is(err, storage.ErrExtensionNotAllowed):
		return fiber.StatusBadRequest, "File type not allowed"
	case errors.Is(err, auth.ErrInvalidToken):
		return fiber.StatusUnauthorized, "Invalid or expired token"
	case errors.Is(err, user.ErrNotFound), errors.Is(err, reference.ErrNotFound):
		return fiber.StatusNotFound, err.Error()
	case errors.Is(err, user.ErrImmutableField):
		return fiber.StatusConflict, "Email address cannot be changed"
	case errors.Is(err, user.ErrConflict), errors.Is(err, reference.ErrConflict), errors.Is(err, reference.ErrProtected):
		return fiber.StatusConflict, err.Error()
	case errors.Is(err, storage.ErrUnavailable):
		return fiber.StatusServiceUnavailable, "File storage is not available"
	}
	return fiber.StatusInternalServerError, "Internal Server Error"
}

// ErrorResponse writes the {error} envelope for err. Unexpected errors are
// logged and hidden from the client.
func ErrorResponse(c *fiber.Ctx, err error) error {
	status, message := StatusFor(err)
	if status == fiber.StatusInternalServerError {
		Logger(c).Error("request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
	}
	return c.Status(status).JSON(fiber.Map{"error": message})
}

func invalidInput(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid input"})
}

func list(c *fiber.Ctx, message string, data any, count int) error {
	return c.JSON(fiber.Map{"message": message, "data": data, "count": count})
}

func single(c *fiber.Ctx, message string, data any) error {
	return c.JSON(fiber.Map{"message": message, "data": data})
}
