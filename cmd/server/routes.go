package main

import (
	"github.com/gofiber/fiber/v2"

	"ams/app/handlers"
	mngmt "ams/app/handlers/management"
	"ams/app/middleware"
)

// registerRoutes mounts the API on app. limit guards every route that writes
// users or uploads.
func registerRoutes(app *fiber.App, limit fiber.Handler) {
	app.Post("/users", limit, handlers.CreateUser)
	app.Post("/users/bulk", limit, handlers.BulkCreateUsers)
	app.Get("/users", handlers.GetUsers)
	app.Get("/users/:userId", handlers.GetUser)
	app.Put("/users/:userId", handlers.UpdateUser)
	app.Delete("/users/:userId", handlers.DeleteUser)
	app.Get("/users/:userId/notifications", handlers.GetUserNotifications)

	app.Get("/organizations", handlers.GetOrganizations)
	app.Get("/organizations/:id", handlers.GetOrganization)

	app.Post("/auth/set-password", handlers.SetPassword)
	app.Post("/profile-images", limit, handlers.UploadProfileImage)

	app.Get("/genders", handlers.GetGenders)
	app.Get("/roles", handlers.GetRoles)
	app.Get("/countries", handlers.GetCountries)
	app.Get("/states", handlers.GetStates)
	app.Get("/states/:countryId", handlers.GetStates)
	app.Get("/districts", handlers.GetDistricts)
	app.Get("/district/sector/:name", handlers.GetDistrictSectors)
	app.Get("/district/:id", handlers.GetDistrict)
	app.Get("/sectors", handlers.GetSectors)
	app.Get("/sector/:id", handlers.GetSector)
	app.Get("/cohorts", handlers.GetCohorts)
	app.Get("/cohort/:id", handlers.GetCohort)
	app.Get("/tracks", handlers.GetTracks)
	app.Get("/working-sectors", handlers.GetWorkingSectors)

	admin := middleware.AdminMiddleware
	app.Post("/tracks", admin, mngmt.CreateTrack)
	app.Delete("/track/:id", admin, mngmt.DeleteTrack)
	app.Post("/working-sectors", admin, mngmt.CreateWorkingSector)
	app.Delete("/working-sector/:id", admin, mngmt.DeleteWorkingSector)
	app.Post("/cohorts", admin, mngmt.CreateCohort)
	app.Post("/cohort", admin, mngmt.CreateCohort)
	app.Delete("/cohort/:id", admin, mngmt.DeleteCohort)

	management := app.Group("/management", admin)
	management.Get("/jobs", mngmt.GetAllJobs)
	management.Get("/jobs/:id", mngmt.GetJob)
	management.Post("/jobs/:id/cancel", mngmt.CancelJob)

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not Found"})
	})
}
