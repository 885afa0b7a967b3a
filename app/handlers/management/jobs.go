package mngmt

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"ams/app/handlers"
	"ams/app/platform/outbox"
)

func outboxService(c *fiber.Ctx) *outbox.Service {
	return c.Locals("outbox").(*outbox.Service)
}

// GetAllJobs lists outbox jobs, optionally filtered by type and status.
func GetAllJobs(c *fiber.Ctx) error {
	options := outbox.GetAllJobsOptions{
		JobType: c.Query("job_type"),
		Status:  c.Query("status"),
		Limit:   c.QueryInt("limit", 100),
		Offset:  c.QueryInt("offset", 0),
	}

	jobs, err := outboxService(c).GetAllJobs(c.UserContext(), options)
	if err != nil {
		return handlers.ErrorResponse(c, err)
	}

	return c.JSON(fiber.Map{"message": "Jobs fetched successfully", "data": jobs, "count": len(jobs)})
}

func GetJob(c *fiber.Ctx) error {
	jobID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Job not found"})
	}

	job, err := outboxService(c).GetJobByID(c.UserContext(), jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Job not found"})
		}
		return handlers.ErrorResponse(c, err)
	}

	return c.JSON(fiber.Map{"message": "Job fetched successfully", "data": job})
}

// CancelJob fails a job that is still waiting to be delivered.
func CancelJob(c *fiber.Ctx) error {
	jobID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Job not found"})
	}

	job, err := outboxService(c).CancelJob(c.UserContext(), jobID)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Job not found"})
		case errors.Is(err, outbox.ErrNotCancellable):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Cannot cancel job that is not in pending or retry status",
			})
		}
		return handlers.ErrorResponse(c, err)
	}

	return c.JSON(fiber.Map{"message": "Job cancelled", "data": job})
}
