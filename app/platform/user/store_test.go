package user_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"ams/app/database"
	"ams/app/database/databasetest"
	"ams/app/platform/reference"
	"ams/app/platform/user"
)

func newGormStore(t *testing.T) (user.Store, *gorm.DB) {
	t.Helper()
	db := databasetest.Open(t)
	_, err := reference.SeedDefaults(context.Background(), db, zap.NewNop())
	require.NoError(t, err)
	return user.NewGormStore(db), db
}

func TestGormStoreUniqueEmail(t *testing.T) {
	store, _ := newGormStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateUser(ctx, &database.User{Email: "a@x.com"}))

	err := store.CreateUser(ctx, &database.User{Email: "a@x.com"})
	require.ErrorIs(t, err, user.ErrConflict)
}

func TestGormStoreUnknownReference(t *testing.T) {
	store, _ := newGormStore(t)

	err := store.CreateUser(context.Background(), &database.User{Email: "a@x.com", TrackID: "basket-weaving"})
	require.ErrorIs(t, err, user.ErrValidation)
}

func TestGormStoreNotFound(t *testing.T) {
	store, _ := newGormStore(t)
	ctx := context.Background()

	require.ErrorIs(t, store.DeleteUser(ctx, uuid.New()), user.ErrNotFound)

	_, err := store.UserByID(ctx, uuid.New(), user.ExpandAll)
	require.ErrorIs(t, err, user.ErrNotFound)

	_, err = store.UserByEmail(ctx, "nobody@x.com")
	require.ErrorIs(t, err, user.ErrNotFound)

	_, err = store.OrganizationByID(ctx, uuid.New(), true)
	require.ErrorIs(t, err, user.ErrNotFound)
}

func TestGormStoreTransactionRollsBack(t *testing.T) {
	store, db := newGormStore(t)
	ctx := context.Background()

	err := store.Transaction(ctx, func(tx user.Store) error {
		if err := tx.CreateOrganization(ctx, &database.Organization{Name: "Acme"}); err != nil {
			return err
		}
		return tx.CreateUser(ctx, &database.User{Email: "a@x.com", CohortID: "no-such-cohort"})
	})
	require.ErrorIs(t, err, user.ErrValidation)

	var orgs int64
	require.NoError(t, db.Model(&database.Organization{}).Count(&orgs).Error)
	require.Zero(t, orgs)
}

func TestServiceWithGormStore(t *testing.T) {
	store, db := newGormStore(t)
	svc := newTestService(t, store, &fakeDispatcher{})
	ctx := context.Background()

	result, err := svc.Create(ctx, createInput("a@x.com", "A"))
	require.NoError(t, err)

	u, err := svc.Get(ctx, result.User.ID, user.ExpandAll)
	require.NoError(t, err)
	require.Equal(t, database.Unspecified, u.ResidentCountryID)
	require.Equal(t, database.NotSpecified, u.Gender.Name)
	require.Equal(t, database.DefaultRole, u.Role.ID)
	require.NotNil(t, u.OrganizationFounded)
	require.Equal(t, database.Unspecified, u.OrganizationFounded.CountryID)
	require.NotNil(t, u.OrganizationEmployed.District)

	notifications, err := svc.Notifications(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	require.False(t, notifications[0].Opened)

	var jobs int64
	require.NoError(t, db.Model(&database.WorkerJob{}).Count(&jobs).Error)
	require.Equal(t, int64(1), jobs)

	require.NoError(t, svc.Delete(ctx, u.ID))

	var remaining int64
	require.NoError(t, db.Model(&database.Notification{}).Where("receiver_id = ?", u.ID).Count(&remaining).Error)
	require.Zero(t, remaining, "notifications are removed with their user")

	var orgs int64
	require.NoError(t, db.Model(&database.Organization{}).Count(&orgs).Error)
	require.Equal(t, int64(2), orgs)
}

func TestGormStoreConcurrentDuplicates(t *testing.T) {
	store, db := newGormStore(t)
	svc := newTestService(t, store, &fakeDispatcher{})

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		created   int
		conflicts int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Create(context.Background(), createInput("same@x.com", "Same"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case errors.Is(err, user.ErrConflict):
				conflicts++
			default:
				t.Errorf("Create() = %v; want nil or user.ErrConflict", err)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, created)
	require.Equal(t, 7, conflicts)

	var users int64
	require.NoError(t, db.Model(&database.User{}).Count(&users).Error)
	require.Equal(t, int64(1), users)
}
