package handlers

import (
	"github.com/gofiber/fiber/v2"

	"ams/app/database"
	"ams/app/platform/reference"
)

func referenceService(c *fiber.Ctx) *reference.Service {
	return c.Locals("references").(*reference.Service)
}

func listAll[T any](message string, fetch func(*fiber.Ctx) ([]T, error)) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rows, err := fetch(c)
		if err != nil {
			return ErrorResponse(c, err)
		}
		return list(c, message, rows, len(rows))
	}
}

func getOne[T any](message string, fetch func(*fiber.Ctx) (*T, error)) fiber.Handler {
	return func(c *fiber.Ctx) error {
		row, err := fetch(c)
		if err != nil {
			return ErrorResponse(c, err)
		}
		return single(c, message, row)
	}
}

var GetGenders = listAll("Genders fetched successfully", func(c *fiber.Ctx) ([]database.Gender, error) {
	return referenceService(c).Genders(c.UserContext())
})

var GetRoles = listAll("Roles fetched successfully", func(c *fiber.Ctx) ([]database.Role, error) {
	return referenceService(c).Roles(c.UserContext())
})

var GetCountries = listAll("Countries fetched successfully", func(c *fiber.Ctx) ([]database.Country, error) {
	return referenceService(c).Countries(c.UserContext())
})

// GetStates filters by the countryId path parameter when present.
var GetStates = listAll("States fetched successfully", func(c *fiber.Ctx) ([]database.State, error) {
	return referenceService(c).States(c.UserContext(), c.Params("countryId"))
})

var GetDistricts = listAll("Districts fetched successfully", func(c *fiber.Ctx) ([]database.District, error) {
	return referenceService(c).Districts(c.UserContext())
})

var GetDistrict = getOne("District fetched successfully", func(c *fiber.Ctx) (*database.District, error) {
	return referenceService(c).District(c.UserContext(), c.Params("id"))
})

var GetDistrictSectors = listAll("Sectors fetched successfully", func(c *fiber.Ctx) ([]database.Sector, error) {
	return referenceService(c).SectorsByDistrictName(c.UserContext(), c.Params("name"))
})

var GetSectors = listAll("Sectors fetched successfully", func(c *fiber.Ctx) ([]database.Sector, error) {
	return referenceService(c).Sectors(c.UserContext())
})

var GetSector = getOne("Sector fetched successfully", func(c *fiber.Ctx) (*database.Sector, error) {
	return referenceService(c).Sector(c.UserContext(), c.Params("id"))
})

var GetCohorts = listAll("Cohorts fetched successfully", func(c *fiber.Ctx) ([]database.Cohort, error) {
	return referenceService(c).Cohorts(c.UserContext())
})

var GetCohort = getOne("Cohort fetched successfully", func(c *fiber.Ctx) (*database.Cohort, error) {
	return referenceService(c).Cohort(c.UserContext(), c.Params("id"))
})

var GetTracks = listAll("Tracks fetched successfully", func(c *fiber.Ctx) ([]database.Track, error) {
	return referenceService(c).Tracks(c.UserContext())
})

var GetWorkingSectors = listAll("Working sectors fetched successfully", func(c *fiber.Ctx) ([]database.WorkingSector, error) {
	return referenceService(c).WorkingSectors(c.UserContext())
})
