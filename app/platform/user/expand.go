package user

import (
	"fmt"
	"strings"
)

// Expand selects which relations a read loads alongside the user row.
type Expand struct {
	Organizations bool
	Gender        bool
	Role          bool
	Residence     bool
	Cohort        bool
	Track         bool
	ProfileImage  bool
}

var (
	ExpandAll  = Expand{true, true, true, true, true, true, true}
	ExpandNone = Expand{}
)

// ParseExpand reads the expand query value: "all" (also the empty string),
// "none", or a comma separated list of relation names.
func ParseExpand(value string) (Expand, error) {
	value = strings.TrimSpace(value)
	switch value {
	case "", "all":
		return ExpandAll, nil
	case "none":
		return ExpandNone, nil
	}

	var e Expand
	for _, field := range strings.Split(value, ",") {
		switch strings.TrimSpace(field) {
		case "organizations":
			e.Organizations = true
		case "gender":
			e.Gender = true
		case "role":
			e.Role = true
		case "residence":
			e.Residence = true
		case "cohort":
			e.Cohort = true
		case "track":
			e.Track = true
		case "profileImage":
			e.ProfileImage = true
		case "":
		default:
			return ExpandNone, fmt.Errorf("%w: unknown expand field %q", ErrValidation, field)
		}
	}
	return e, nil
}

var organizationRelations = []string{"WorkingSector", "District", "Sector", "Country"}

// Preloads returns the gorm association paths for e.
func (e Expand) Preloads() []string {
	var paths []string
	if e.Organizations {
		for _, org := range []string{"OrganizationFounded", "OrganizationEmployed"} {
			paths = append(paths, org)
			for _, rel := range organizationRelations {
				paths = append(paths, org+"."+rel)
			}
		}
	}
	if e.Gender {
		paths = append(paths, "Gender")
	}
	if e.Role {
		paths = append(paths, "Role")
	}
	if e.Residence {
		paths = append(paths, "ResidentCountry", "ResidentDistrict", "ResidentSector")
	}
	if e.Cohort {
		paths = append(paths, "Cohort")
	}
	if e.Track {
		paths = append(paths, "Track")
	}
	if e.ProfileImage {
		paths = append(paths, "ProfileImage")
	}
	return paths
}
