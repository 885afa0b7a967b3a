package user

import (
	"github.com/google/uuid"

	"ams/app/database"
)

// UserInput is the user part of a create or update request. Empty relation
// ids fall back to the default references.
type UserInput struct {
	FirstName          string `json:"firstName" validate:"max=100"`
	MiddleName         string `json:"middleName" validate:"max=100"`
	LastName           string `json:"lastName" validate:"max=100"`
	Email              string `json:"email" validate:"omitempty,email"`
	PhoneNumber        string `json:"phoneNumber" validate:"max=32"`
	WhatsappNumber     string `json:"whatsappNumber" validate:"max=32"`
	Bio                string `json:"bio"`
	NearestLandmark    string `json:"nearestLandmark"`
	GenderName         string `json:"genderName"`
	CohortID           string `json:"cohortId"`
	TrackID            string `json:"trackId"`
	ProfileImageID     string `json:"profileImageId"`
	ResidentCountryID  string `json:"residentCountryId"`
	ResidentDistrictID string `json:"residentDistrictId"`
	ResidentSectorID   string `json:"residentSectorId"`
	PositionInFounded  string `json:"positionInFounded"`
	PositionInEmployed string `json:"positionInEmployed"`
	Password           string `json:"password" validate:"omitempty,min=8,max=128"`
}

// OrganizationInput describes an organization linked to a user. ID is only
// consulted on update.
type OrganizationInput struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Website         string `json:"website" validate:"omitempty,url"`
	WorkingSectorID string `json:"workingSectorId"`
	DistrictID      string `json:"districtId"`
	SectorID        string `json:"sectorId"`
	CountryID       string `json:"countryId"`
}

type Input struct {
	User                 UserInput         `json:"user"`
	OrganizationFounded  OrganizationInput `json:"organizationFounded"`
	OrganizationEmployed OrganizationInput `json:"organizationEmployed"`
}

type BulkInput struct {
	Users []UserInput `json:"users"`
}

// apply copies the mutable profile fields onto u.
func (in UserInput) apply(u *database.User) {
	u.FirstName = in.FirstName
	u.MiddleName = in.MiddleName
	u.LastName = in.LastName
	u.PhoneNumber = in.PhoneNumber
	u.WhatsappNumber = in.WhatsappNumber
	u.Bio = in.Bio
	u.NearestLandmark = in.NearestLandmark
	u.GenderName = in.GenderName
	u.CohortID = in.CohortID
	u.TrackID = in.TrackID
	u.ProfileImageID = in.ProfileImageID
	u.ResidentCountryID = in.ResidentCountryID
	u.ResidentDistrictID = in.ResidentDistrictID
	u.ResidentSectorID = in.ResidentSectorID
	u.PositionInFounded = in.PositionInFounded
	u.PositionInEmployed = in.PositionInEmployed
	u.ApplyDefaults()
}

func (in OrganizationInput) apply(o *database.Organization) {
	o.Name = in.Name
	o.Website = in.Website
	o.WorkingSectorID = in.WorkingSectorID
	o.DistrictID = in.DistrictID
	o.SectorID = in.SectorID
	o.CountryID = in.CountryID
	o.ApplyDefaults()
}

func (in OrganizationInput) id() (uuid.UUID, bool) {
	if in.ID == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(in.ID)
	return id, err == nil
}
