package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"ams/app/platform/user"
)

func userService(c *fiber.Ctx) *user.Service {
	return c.Locals("users").(*user.Service)
}

func userID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("userId"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("user %q: %w", c.Params("userId"), user.ErrNotFound)
	}
	return id, nil
}

func CreateUser(c *fiber.Ctx) error {
	var input user.Input
	if err := c.BodyParser(&input); err != nil {
		return invalidInput(c)
	}

	result, err := userService(c).Create(c.UserContext(), input)
	if err != nil {
		return ErrorResponse(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User created successfully",
		"data":    result.User,
		"email":   result.Email,
	})
}

func BulkCreateUsers(c *fiber.Ctx) error {
	var input user.BulkInput
	if err := c.BodyParser(&input); err != nil {
		return invalidInput(c)
	}
	if len(input.Users) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "users must not be empty"})
	}

	result := userService(c).BulkCreate(c.UserContext(), input.Users)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":   "Users created successfully",
		"data":      result.Created,
		"count":     len(result.Created),
		"conflicts": result.Conflicts,
		"results":   result.Outcomes,
	})
}

func UpdateUser(c *fiber.Ctx) error {
	id, err := userID(c)
	if err != nil {
		return ErrorResponse(c, err)
	}

	var input user.Input
	if err := c.BodyParser(&input); err != nil {
		return invalidInput(c)
	}

	result, err := userService(c).Update(c.UserContext(), id, input)
	if err != nil {
		return ErrorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "User updated successfully",
		"data":    result.User,
		"email":   result.Email,
	})
}

func GetUsers(c *fiber.Ctx) error {
	expand, err := user.ParseExpand(c.Query("expand"))
	if err != nil {
		return ErrorResponse(c, err)
	}

	users, err := userService(c).List(c.UserContext(), expand)
	if err != nil {
		return ErrorResponse(c, err)
	}

	return list(c, "Users fetched successfully", users, len(users))
}

func GetUser(c *fiber.Ctx) error {
	id, err := userID(c)
	if err != nil {
		return ErrorResponse(c, err)
	}

	expand, err := user.ParseExpand(c.Query("expand"))
	if err != nil {
		return ErrorResponse(c, err)
	}

	u, err := userService(c).Get(c.UserContext(), id, expand)
	if err != nil {
		return ErrorResponse(c, err)
	}

	return single(c, "User fetched successfully", u)
}

func DeleteUser(c *fiber.Ctx) error {
	id, err := userID(c)
	if err != nil {
		return ErrorResponse(c, err)
	}

	if err := userService(c).Delete(c.UserContext(), id); err != nil {
		return ErrorResponse(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func GetUserNotifications(c *fiber.Ctx) error {
	id, err := userID(c)
	if err != nil {
		return ErrorResponse(c, err)
	}

	notifications, err := userService(c).Notifications(c.UserContext(), id)
	if err != nil {
		return ErrorResponse(c, err)
	}

	return list(c, "Notifications fetched successfully", notifications, len(notifications))
}
