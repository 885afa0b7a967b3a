package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ams/app/database"
	"ams/app/platform/outbox"
)

// Store is the persistence the user service needs. Lookups return ErrNotFound
// for missing rows and writes return ErrConflict for duplicate keys.
type Store interface {
	// Transaction runs fn against a store bound to one database transaction.
	Transaction(ctx context.Context, fn func(Store) error) error

	UserByEmail(ctx context.Context, email string) (*database.User, error)
	UserByID(ctx context.Context, id uuid.UUID, expand Expand) (*database.User, error)
	UserByRefreshToken(ctx context.Context, token string) (*database.User, error)
	ListUsers(ctx context.Context, expand Expand) ([]database.User, error)
	CreateUser(ctx context.Context, u *database.User) error
	SaveUser(ctx context.Context, u *database.User) error
	DeleteUser(ctx context.Context, id uuid.UUID) error

	OrganizationByID(ctx context.Context, id uuid.UUID, expand bool) (*database.Organization, error)
	ListOrganizations(ctx context.Context, expand bool) ([]database.Organization, error)
	CreateOrganization(ctx context.Context, o *database.Organization) error
	SaveOrganization(ctx context.Context, o *database.Organization) error

	CreateNotification(ctx context.Context, n *database.Notification) error
	ListNotifications(ctx context.Context, userID uuid.UUID) ([]database.Notification, error)

	CreateJob(ctx context.Context, job *database.WorkerJob) error
}

type gormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
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
		return fmt.Errorf("%s references an unknown record: %w", what, ErrValidation)
	}
	return err
}

func (s *gormStore) Transaction(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

func (s *gormStore) UserByEmail(ctx context.Context, email string) (*database.User, error) {
	var u database.User
	result := s.db.WithContext(ctx).First(&u, "email = ?", email)
	if result.Error != nil {
		return nil, translate(result.Error, "user "+email)
	}
	return &u, nil
}

func preload(db *gorm.DB, paths []string) *gorm.DB {
	for _, path := range paths {
		db = db.Preload(path)
	}
	return db
}

func (s *gormStore) UserByID(ctx context.Context, id uuid.UUID, expand Expand) (*database.User, error) {
	var u database.User
	result := preload(s.db.WithContext(ctx), expand.Preloads()).First(&u, "id = ?", id)
	if result.Error != nil {
		return nil, translate(result.Error, "user "+id.String())
	}
	return &u, nil
}

func (s *gormStore) UserByRefreshToken(ctx context.Context, token string) (*database.User, error) {
	var u database.User
	result := s.db.WithContext(ctx).First(&u, "refresh_token = ?", token)
	if result.Error != nil {
		return nil, translate(result.Error, "user")
	}
	return &u, nil
}

func (s *gormStore) ListUsers(ctx context.Context, expand Expand) ([]database.User, error) {
	var users []database.User
	result := preload(s.db.WithContext(ctx), expand.Preloads()).Order("created_at DESC").Find(&users)
	if result.Error != nil {
		return nil, result.Error
	}
	return users, nil
}

func (s *gormStore) CreateUser(ctx context.Context, u *database.User) error {
	result := s.db.WithContext(ctx).Omit(clause.Associations).Create(u)
	return translate(result.Error, "user "+u.Email)
}

func (s *gormStore) SaveUser(ctx context.Context, u *database.User) error {
	result := s.db.WithContext(ctx).Omit(clause.Associations).Save(u)
	return translate(result.Error, "user "+u.Email)
}

func (s *gormStore) DeleteUser(ctx context.Context, id uuid.UUID) error {
	result := s.db.WithContext(ctx).Delete(&database.User{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return nil
}

func organizationPreloads(expand bool) []string {
	if !expand {
		return nil
	}
	return organizationRelations
}

func (s *gormStore) OrganizationByID(ctx context.Context, id uuid.UUID, expand bool) (*database.Organization, error) {
	var o database.Organization
	result := preload(s.db.WithContext(ctx), organizationPreloads(expand)).First(&o, "id = ?", id)
	if result.Error != nil {
		return nil, translate(result.Error, "organization "+id.String())
	}
	return &o, nil
}

func (s *gormStore) ListOrganizations(ctx context.Context, expand bool) ([]database.Organization, error) {
	var orgs []database.Organization
	result := preload(s.db.WithContext(ctx), organizationPreloads(expand)).Order("created_at DESC").Find(&orgs)
	if result.Error != nil {
		return nil, result.Error
	}
	return orgs, nil
}

func (s *gormStore) CreateOrganization(ctx context.Context, o *database.Organization) error {
	result := s.db.WithContext(ctx).Omit(clause.Associations).Create(o)
	return translate(result.Error, "organization")
}

func (s *gormStore) SaveOrganization(ctx context.Context, o *database.Organization) error {
	result := s.db.WithContext(ctx).Omit(clause.Associations).Save(o)
	return translate(result.Error, "organization "+o.ID.String())
}

func (s *gormStore) CreateNotification(ctx context.Context, n *database.Notification) error {
	return s.db.WithContext(ctx).Create(n).Error
}

func (s *gormStore) ListNotifications(ctx context.Context, userID uuid.UUID) ([]database.Notification, error) {
	var notifications []database.Notification
	result := s.db.WithContext(ctx).Where("receiver_id = ?", userID).Order("created_at DESC").Find(&notifications)
	if result.Error != nil {
		return nil, result.Error
	}
	return notifications, nil
}

func (s *gormStore) CreateJob(ctx context.Context, job *database.WorkerJob) error {
	return outbox.CreateJob(ctx, s.db, job)
}
