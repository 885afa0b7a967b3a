package handlers

import (
	"github.com/gofiber/fiber/v2"

	"ams/app/config"
)

type SetPasswordInput struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// SetPassword redeems the link mailed to a new member.
func SetPassword(c *fiber.Ctx) error {
	var input SetPasswordInput
	if err := c.BodyParser(&input); err != nil {
		return invalidInput(c)
	}

	if err := config.Validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": config.ValidationMessage(err)})
	}

	if err := userService(c).SetPassword(c.UserContext(), input.Token, input.Password); err != nil {
		return ErrorResponse(c, err)
	}

	return c.JSON(fiber.Map{"message": "Password set successfully"})
}
