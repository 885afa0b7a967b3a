package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"ams/app/platform/storage"
)

func UploadProfileImage(c *fiber.Ctx) error {
	store := c.Locals("storage").(*storage.Service)

	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing file"})
	}

	img, err := store.Upload(c, file)
	if err != nil {
		return ErrorResponse(c, err)
	}

	if err := referenceService(c).CreateProfileImage(c.UserContext(), img); err != nil {
		Logger(c).Warn("stored image without a row", zap.String("key", img.Key), zap.Error(err))
		return ErrorResponse(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Profile image uploaded successfully",
		"data":    img,
	})
}
