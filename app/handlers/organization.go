package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"ams/app/platform/user"
)

func organizationExpand(c *fiber.Ctx) (bool, error) {
	expand, err := user.ParseExpand(c.Query("expand"))
	if err != nil {
		return false, err
	}
	return expand != user.ExpandNone, nil
}

func GetOrganizations(c *fiber.Ctx) error {
	expand, err := organizationExpand(c)
	if err != nil {
		return ErrorResponse(c, err)
	}

	orgs, err := userService(c).ListOrganizations(c.UserContext(), expand)
	if err != nil {
		return ErrorResponse(c, err)
	}

	return list(c, "Organizations fetched successfully", orgs, len(orgs))
}

func GetOrganization(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return ErrorResponse(c, fmt.Errorf("organization %q: %w", c.Params("id"), user.ErrNotFound))
	}

	expand, err := organizationExpand(c)
	if err != nil {
		return ErrorResponse(c, err)
	}

	org, err := userService(c).GetOrganization(c.UserContext(), id, expand)
	if err != nil {
		return ErrorResponse(c, err)
	}

	return single(c, "Organization fetched successfully", org)
}
