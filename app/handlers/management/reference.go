package mngmt

import (
	"github.com/gofiber/fiber/v2"

	"ams/app/config"
	"ams/app/handlers"
	"ams/app/platform/reference"
)

func referenceService(c *fiber.Ctx) *reference.Service {
	return c.Locals("references").(*reference.Service)
}

// bind parses and validates the body into input. When it reports false the
// 400 response has already been written.
func bind(c *fiber.Ctx, input any) (bool, error) {
	if err := c.BodyParser(input); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid input"})
	}
	if err := config.Validate.Struct(input); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": config.ValidationMessage(err)})
	}
	return true, nil
}

func created(c *fiber.Ctx, message string, data any) error {
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": message, "data": data})
}

func CreateTrack(c *fiber.Ctx) error {
	var input reference.NamedInput
	if ok, err := bind(c, &input); !ok {
		return err
	}

	track, err := referenceService(c).CreateTrack(c.UserContext(), input)
	if err != nil {
		return handlers.ErrorResponse(c, err)
	}
	return created(c, "Track created successfully", track)
}

func DeleteTrack(c *fiber.Ctx) error {
	if err := referenceService(c).DeleteTrack(c.UserContext(), c.Params("id")); err != nil {
		return handlers.ErrorResponse(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func CreateWorkingSector(c *fiber.Ctx) error {
	var input reference.NamedInput
	if ok, err := bind(c, &input); !ok {
		return err
	}

	ws, err := referenceService(c).CreateWorkingSector(c.UserContext(), input)
	if err != nil {
		return handlers.ErrorResponse(c, err)
	}
	return created(c, "Working sector created successfully", ws)
}

func DeleteWorkingSector(c *fiber.Ctx) error {
	if err := referenceService(c).DeleteWorkingSector(c.UserContext(), c.Params("id")); err != nil {
		return handlers.ErrorResponse(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func CreateCohort(c *fiber.Ctx) error {
	var input reference.CohortInput
	if ok, err := bind(c, &input); !ok {
		return err
	}

	cohort, err := referenceService(c).CreateCohort(c.UserContext(), input)
	if err != nil {
		return handlers.ErrorResponse(c, err)
	}
	return created(c, "Cohort created successfully", cohort)
}

func DeleteCohort(c *fiber.Ctx) error {
	if err := referenceService(c).DeleteCohort(c.UserContext(), c.Params("id")); err != nil {
		return handlers.ErrorResponse(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
