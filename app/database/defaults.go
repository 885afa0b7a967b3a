package database

// Default references. Every relation on User and Organization that the domain
// treats as optional points at one of these rows when the caller leaves it
// unset. The seed data must contain each of them.
const (
	Unspecified         = "unspecified"
	NotSpecified        = "Not Specified"
	DefaultProfileImage = "default"
	DefaultRole         = "user"
)

// IsDefaultReference reports whether id names a default row that must not be removed.
func IsDefaultReference(id string) bool {
	return id == Unspecified || id == DefaultProfileImage
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

// ApplyDefaults substitutes the default reference for every unset relation.
func (u *User) ApplyDefaults() {
	u.GenderName = orDefault(u.GenderName, NotSpecified)
	u.CohortID = orDefault(u.CohortID, Unspecified)
	u.TrackID = orDefault(u.TrackID, Unspecified)
	u.RoleID = orDefault(u.RoleID, DefaultRole)
	u.ProfileImageID = orDefault(u.ProfileImageID, DefaultProfileImage)
	u.ResidentCountryID = orDefault(u.ResidentCountryID, Unspecified)
	u.ResidentDistrictID = orDefault(u.ResidentDistrictID, Unspecified)
	u.ResidentSectorID = orDefault(u.ResidentSectorID, Unspecified)
}

// ApplyDefaults substitutes the default reference for every unset relation.
func (o *Organization) ApplyDefaults() {
	o.WorkingSectorID = orDefault(o.WorkingSectorID, Unspecified)
	o.DistrictID = orDefault(o.DistrictID, Unspecified)
	o.SectorID = orDefault(o.SectorID, Unspecified)
	o.CountryID = orDefault(o.CountryID, Unspecified)
}
