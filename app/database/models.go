package database

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Gender struct {
	ID        string    `json:"id" gorm:"primaryKey" yaml:"id"`
	Name      string    `json:"name" gorm:"uniqueIndex;not null" yaml:"name"`
	CreatedAt time.Time `json:"createdAt" yaml:"-"`
}

func (g *Gender) TableName() string {
	return "genders"
}

type Cohort struct {
	ID          string     `json:"id" gorm:"primaryKey" yaml:"id" validate:"omitempty,max=64"`
	Name        string     `json:"name" gorm:"not null" yaml:"name" validate:"required"`
	Description string     `json:"description" yaml:"description"`
	StartDate   *time.Time `json:"startDate" yaml:"startDate"`
	EndDate     *time.Time `json:"endDate" yaml:"endDate"`
	CreatedAt   time.Time  `json:"createdAt" yaml:"-"`
}

func (c *Cohort) TableName() string {
	return "cohorts"
}

type Track struct {
	ID        string    `json:"id" gorm:"primaryKey" yaml:"id" validate:"omitempty,max=64"`
	Name      string    `json:"name" gorm:"not null" yaml:"name" validate:"required"`
	CreatedAt time.Time `json:"createdAt" yaml:"-"`
}

func (t *Track) TableName() string {
	return "tracks"
}

type Role struct {
	ID        string    `json:"id" gorm:"primaryKey" yaml:"id"`
	Name      string    `json:"name" gorm:"not null" yaml:"name"`
	CreatedAt time.Time `json:"createdAt" yaml:"-"`
}

func (r *Role) TableName() string {
	return "roles"
}

type WorkingSector struct {
	ID        string    `json:"id" gorm:"primaryKey" yaml:"id" validate:"omitempty,max=64"`
	Name      string    `json:"name" gorm:"not null" yaml:"name" validate:"required"`
	CreatedAt time.Time `json:"createdAt" yaml:"-"`
}

func (w *WorkingSector) TableName() string {
	return "working_sectors"
}

type Country struct {
	ID        string    `json:"id" gorm:"primaryKey" yaml:"id"`
	Name      string    `json:"name" gorm:"not null" yaml:"name"`
	CreatedAt time.Time `json:"createdAt" yaml:"-"`
}

func (c *Country) TableName() string {
	return "countries"
}

type State struct {
	ID        string    `json:"id" gorm:"primaryKey" yaml:"id"`
	Name      string    `json:"name" gorm:"not null" yaml:"name"`
	CountryID string    `json:"countryCode" gorm:"index;not null" yaml:"countryCode"`
	Country   *Country  `json:"country,omitempty" gorm:"foreignKey:CountryID" yaml:"-"`
	CreatedAt time.Time `json:"createdAt" yaml:"-"`
}

func (s *State) TableName() string {
	return "states"
}

type District struct {
	ID        string    `json:"id" gorm:"primaryKey" yaml:"id"`
	Name      string    `json:"name" gorm:"uniqueIndex;not null" yaml:"name"`
	StateID   string    `json:"stateId" gorm:"index;not null" yaml:"stateId"`
	State     *State    `json:"state,omitempty" gorm:"foreignKey:StateID" yaml:"-"`
	Sectors   []Sector  `json:"sectors,omitempty" gorm:"foreignKey:DistrictID" yaml:"-"`
	CreatedAt time.Time `json:"createdAt" yaml:"-"`
}

func (d *District) TableName() string {
	return "districts"
}

type Sector struct {
	ID         string    `json:"id" gorm:"primaryKey" yaml:"id"`
	Name       string    `json:"name" gorm:"not null" yaml:"name"`
	DistrictID string    `json:"districtId" gorm:"index;not null" yaml:"districtId"`
	District   *District `json:"district,omitempty" gorm:"foreignKey:DistrictID" yaml:"-"`
	CreatedAt  time.Time `json:"createdAt" yaml:"-"`
}

func (s *Sector) TableName() string {
	return "sectors"
}

type ProfileImage struct {
	ID               string    `json:"id" gorm:"primaryKey" yaml:"id"`
	Key              string    `json:"key" gorm:"not null" yaml:"key"`
	URL              string    `json:"url" yaml:"url"`
	OriginalFilename string    `json:"originalFilename" yaml:"originalFilename"`
	MimeType         string    `json:"mimeType" yaml:"mimeType"`
	SizeBytes        int64     `json:"sizeBytes" yaml:"-"`
	CreatedAt        time.Time `json:"createdAt" yaml:"-"`
}

func (p *ProfileImage) TableName() string {
	return "profile_images"
}

type Organization struct {
	ID              uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	Name            string         `json:"name"`
	Website         string         `json:"website"`
	WorkingSectorID string         `json:"workingSectorId" gorm:"not null"`
	WorkingSector   *WorkingSector `json:"workingSector,omitempty" gorm:"foreignKey:WorkingSectorID"`
	DistrictID      string         `json:"districtId" gorm:"not null"`
	District        *District      `json:"district,omitempty" gorm:"foreignKey:DistrictID"`
	SectorID        string         `json:"sectorId" gorm:"not null"`
	Sector          *Sector        `json:"sector,omitempty" gorm:"foreignKey:SectorID"`
	CountryID       string         `json:"countryId" gorm:"not null"`
	Country         *Country       `json:"country,omitempty" gorm:"foreignKey:CountryID"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

func (o *Organization) TableName() string {
	return "organizations"
}

// BeforeSave fills unset references with their default rows.
func (o *Organization) BeforeSave(tx *gorm.DB) error {
	o.ApplyDefaults()
	return nil
}

func (o *Organization) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// User represents a member account.
type User struct {
	ID                     uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	FirstName              string         `json:"firstName"`
	MiddleName             string         `json:"middleName"`
	LastName               string         `json:"lastName"`
	Email                  string         `json:"email" gorm:"uniqueIndex;not null"`
	PhoneNumber            string         `json:"phoneNumber"`
	WhatsappNumber         string         `json:"whatsappNumber"`
	Bio                    string         `json:"bio"`
	NearestLandmark        string         `json:"nearestLandmark"`
	GenderName             string         `json:"genderName" gorm:"not null"`
	Gender                 *Gender        `json:"gender,omitempty" gorm:"foreignKey:GenderName;references:Name"`
	CohortID               string         `json:"cohortId" gorm:"not null"`
	Cohort                 *Cohort        `json:"cohort,omitempty" gorm:"foreignKey:CohortID"`
	TrackID                string         `json:"trackId" gorm:"not null"`
	Track                  *Track         `json:"track,omitempty" gorm:"foreignKey:TrackID"`
	RoleID                 string         `json:"roleId" gorm:"not null"`
	Role                   *Role          `json:"role,omitempty" gorm:"foreignKey:RoleID"`
	ProfileImageID         string         `json:"profileImageId" gorm:"not null"`
	ProfileImage           *ProfileImage  `json:"profileImage,omitempty" gorm:"foreignKey:ProfileImageID"`
	ResidentCountryID      string         `json:"residentCountryId" gorm:"not null"`
	ResidentCountry        *Country       `json:"residentCountry,omitempty" gorm:"foreignKey:ResidentCountryID"`
	ResidentDistrictID     string         `json:"residentDistrictId" gorm:"not null"`
	ResidentDistrict       *District      `json:"residentDistrict,omitempty" gorm:"foreignKey:ResidentDistrictID"`
	ResidentSectorID       string         `json:"residentSectorId" gorm:"not null"`
	ResidentSector         *Sector        `json:"residentSector,omitempty" gorm:"foreignKey:ResidentSectorID"`
	OrganizationFoundedID  *uuid.UUID     `json:"organizationFoundedId" gorm:"type:uuid"`
	OrganizationFounded    *Organization  `json:"organizationFounded,omitempty" gorm:"foreignKey:OrganizationFoundedID;constraint:OnDelete:SET NULL"`
	PositionInFounded      string         `json:"positionInFounded"`
	OrganizationEmployedID *uuid.UUID     `json:"organizationEmployedId" gorm:"type:uuid"`
	OrganizationEmployed   *Organization  `json:"organizationEmployed,omitempty" gorm:"foreignKey:OrganizationEmployedID;constraint:OnDelete:SET NULL"`
	PositionInEmployed     string         `json:"positionInEmployed"`
	PasswordHash           string         `json:"-"`
	RefreshToken           string         `json:"-" gorm:"index"`
	Notifications          []Notification `json:"-" gorm:"foreignKey:ReceiverID;constraint:OnDelete:CASCADE"`
	CreatedAt              time.Time      `json:"createdAt"`
	UpdatedAt              time.Time      `json:"updatedAt"`
}

func (u *User) TableName() string {
	return "users"
}

// BeforeSave fills unset references with their default rows.
func (u *User) BeforeSave(tx *gorm.DB) error {
	u.ApplyDefaults()
	return nil
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

type Notification struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Title      string    `json:"title" gorm:"not null"`
	Message    string    `json:"message" gorm:"type:text"`
	ReceiverID uuid.UUID `json:"receiverId" gorm:"type:uuid;index;not null"`
	Opened     bool      `json:"opened" gorm:"default:false"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (n *Notification) TableName() string {
	return "notifications"
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}

type JobStatus string

const (
	JobStatusPending  JobStatus = "pending"
	JobStatusRunning  JobStatus = "running"
	JobStatusRetry    JobStatus = "retry"
	JobStatusComplete JobStatus = "complete"
	JobStatusFailed   JobStatus = "failed"
)

// WorkerJob is a unit of deferred work. Account mail is delivered through it.
type WorkerJob struct {
	ID           int        `json:"id" gorm:"primaryKey"`
	JobType      string     `json:"jobType" gorm:"index;not null"`
	Payload      JSONObject `json:"payload" gorm:"type:jsonb"`
	Status       JobStatus  `json:"status" gorm:"index;default:'pending'"`
	Priority     int        `json:"priority" gorm:"default:0"`
	RetryCount   int        `json:"retryCount" gorm:"default:0"`
	MaxRetries   int        `json:"maxRetries" gorm:"default:5"`
	LastError    *string    `json:"lastError"`
	ProcessAfter *time.Time `json:"processAfter"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

func (j *WorkerJob) TableName() string {
	return "worker_jobs"
}
