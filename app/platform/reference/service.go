package reference

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"ams/app/database"
	"ams/pkg/utils"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrConflict  = errors.New("already exists")
	ErrProtected = errors.New("default reference cannot be deleted")
	ErrInvalid   = errors.New("invalid reference")
)

// Service reads reference tables and handles the few admin mutations.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

func translate(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", what, ErrConflict)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%s is still referenced: %w", what, ErrConflict)
	}
	return err
}

func list[T any](ctx context.Context, db *gorm.DB, order string) ([]T, error) {
	var rows []T
	if err := db.WithContext(ctx).Order(order).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Service) Genders(ctx context.Context) ([]database.Gender, error) {
	return list[database.Gender](ctx, s.db, "name ASC")
}

func (s *Service) Roles(ctx context.Context) ([]database.Role, error) {
	return list[database.Role](ctx, s.db, "name ASC")
}

func (s *Service) Countries(ctx context.Context) ([]database.Country, error) {
	return list[database.Country](ctx, s.db, "name ASC")
}

func (s *Service) States(ctx context.Context, countryID string) ([]database.State, error) {
	db := s.db
	if countryID != "" {
		db = db.Where("country_id = ?", countryID)
	}
	return list[database.State](ctx, db, "name ASC")
}

func (s *Service) Districts(ctx context.Context) ([]database.District, error) {
	return list[database.District](ctx, s.db, "name ASC")
}

// District returns the district with its sectors.
func (s *Service) District(ctx context.Context, id string) (*database.District, error) {
	var d database.District
	result := s.db.WithContext(ctx).Preload("Sectors").First(&d, "id = ?", id)
	if result.Error != nil {
		return nil, translate(result.Error, "district "+id)
	}
	return &d, nil
}

// SectorsByDistrictName lists the sectors of the district called name.
func (s *Service) SectorsByDistrictName(ctx context.Context, name string) ([]database.Sector, error) {
	var d database.District
	result := s.db.WithContext(ctx).First(&d, "LOWER(name) = LOWER(?)", name)
	if result.Error != nil {
		return nil, translate(result.Error, "district "+name)
	}
	return list[database.Sector](ctx, s.db.Where("district_id = ?", d.ID), "name ASC")
}

func (s *Service) Sectors(ctx context.Context) ([]database.Sector, error) {
	return list[database.Sector](ctx, s.db, "name ASC")
}

func (s *Service) Sector(ctx context.Context, id string) (*database.Sector, error) {
	var sector database.Sector
	result := s.db.WithContext(ctx).Preload("District").First(&sector, "id = ?", id)
	if result.Error != nil {
		return nil, translate(result.Error, "sector "+id)
	}
	return &sector, nil
}

func (s *Service) Cohorts(ctx context.Context) ([]database.Cohort, error) {
	return list[database.Cohort](ctx, s.db, "start_date DESC NULLS LAST, name ASC")
}

func (s *Service) Cohort(ctx context.Context, id string) (*database.Cohort, error) {
	var c database.Cohort
	result := s.db.WithContext(ctx).First(&c, "id = ?", id)
	if result.Error != nil {
		return nil, translate(result.Error, "cohort "+id)
	}
	return &c, nil
}

func (s *Service) Tracks(ctx context.Context) ([]database.Track, error) {
	return list[database.Track](ctx, s.db, "name ASC")
}

func (s *Service) WorkingSectors(ctx context.Context) ([]database.WorkingSector, error) {
	return list[database.WorkingSector](ctx, s.db, "name ASC")
}

// NamedInput creates a track or working sector. A missing id is derived from the name.
type NamedInput struct {
	ID   string `json:"id" validate:"omitempty,max=64"`
	Name string `json:"name" validate:"required,max=128"`
}

type CohortInput struct {
	ID          string     `json:"id" validate:"omitempty,max=64"`
	Name        string     `json:"name" validate:"required,max=128"`
	Description string     `json:"description"`
	StartDate   *time.Time `json:"startDate"`
	EndDate     *time.Time `json:"endDate"`
}

// NewID returns id, or a slug of name when id is empty.
func NewID(id, name string) (string, error) {
	if id == "" {
		id = utils.Slugify(name)
	}
	if id == "" {
		return "", fmt.Errorf("%w: cannot derive an id from %q", ErrInvalid, name)
	}
	return id, nil
}

func (s *Service) create(ctx context.Context, row any, what string) error {
	return translate(s.db.WithContext(ctx).Create(row).Error, what)
}

func (s *Service) CreateTrack(ctx context.Context, in NamedInput) (*database.Track, error) {
	id, err := NewID(in.ID, in.Name)
	if err != nil {
		return nil, err
	}
	t := &database.Track{ID: id, Name: in.Name}
	if err := s.create(ctx, t, "track "+id); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) CreateWorkingSector(ctx context.Context, in NamedInput) (*database.WorkingSector, error) {
	id, err := NewID(in.ID, in.Name)
	if err != nil {
		return nil, err
	}
	w := &database.WorkingSector{ID: id, Name: in.Name}
	if err := s.create(ctx, w, "working sector "+id); err != nil {
		return nil, err
	}
	return w, nil
}

func (s *Service) CreateCohort(ctx context.Context, in CohortInput) (*database.Cohort, error) {
	id, err := NewID(in.ID, in.Name)
	if err != nil {
		return nil, err
	}
	if in.StartDate != nil && in.EndDate != nil && in.EndDate.Before(*in.StartDate) {
		return nil, fmt.Errorf("%w: cohort ends before it starts", ErrInvalid)
	}
	c := &database.Cohort{
		ID:          id,
		Name:        in.Name,
		Description: in.Description,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
	}
	if err := s.create(ctx, c, "cohort "+id); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) CreateProfileImage(ctx context.Context, img *database.ProfileImage) error {
	return s.create(ctx, img, "profile image "+img.ID)
}

// CheckDeletable rejects removal of the default rows users fall back to.
func CheckDeletable(id string) error {
	if database.IsDefaultReference(id) {
		return fmt.Errorf("%s: %w", id, ErrProtected)
	}
	return nil
}

func (s *Service) remove(ctx context.Context, model any, id, what string) error {
	if err := CheckDeletable(id); err != nil {
		return err
	}
	result := s.db.WithContext(ctx).Delete(model, "id = ?", id)
	if result.Error != nil {
		return translate(result.Error, what+" "+id)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%s %s: %w", what, id, ErrNotFound)
	}
	return nil
}

func (s *Service) DeleteTrack(ctx context.Context, id string) error {
	return s.remove(ctx, &database.Track{}, id, "track")
}

func (s *Service) DeleteWorkingSector(ctx context.Context, id string) error {
	return s.remove(ctx, &database.WorkingSector{}, id, "working sector")
}

func (s *Service) DeleteCohort(ctx context.Context, id string) error {
	return s.remove(ctx, &database.Cohort{}, id, "cohort")
}
