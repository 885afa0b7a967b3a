package user_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ams/app/auth"
	"ams/app/database"
	"ams/app/mail"
	"ams/app/platform/notification"
	"ams/app/platform/outbox"
	"ams/app/platform/user"
	"ams/app/platform/user/usertest"
	"ams/pkg/utils"
)

const testSecret = "test-secret"

type fakeDispatcher struct {
	mu   sync.Mutex
	err  error
	jobs []*database.WorkerJob
}

func (d *fakeDispatcher) Deliver(ctx context.Context, job *database.WorkerJob) (*mail.Receipt, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.jobs = append(d.jobs, job)
	if d.err != nil {
		return nil, d.err
	}
	return &mail.Receipt{ID: "<msg@mg.example.org>", Message: "Queued. Thank you."}, nil
}

func newTestService(t *testing.T, store user.Store, dispatcher user.Dispatcher) *user.Service {
	t.Helper()
	bundle, err := notification.NewBundle()
	require.NoError(t, err)
	composer := notification.NewComposer(bundle, "https://ams.example.org")
	return user.NewService(store, composer, dispatcher, zap.NewNop(), user.Options{
		JWTSecret:       testSecret,
		MaxRetries:      3,
		BulkConcurrency: 4,
	})
}

func createInput(email, firstName string) user.Input {
	return user.Input{User: user.UserInput{Email: email, FirstName: firstName}}
}

func TestCreateAppliesDefaults(t *testing.T) {
	store := usertest.NewMemoryStore()
	dispatcher := &fakeDispatcher{}
	svc := newTestService(t, store, dispatcher)

	result, err := svc.Create(context.Background(), createInput("a@x.com", "A"))
	require.NoError(t, err)

	u := result.User
	require.NotEqual(t, uuid.Nil, u.ID)
	require.Equal(t, "a@x.com", u.Email)
	require.Equal(t, database.Unspecified, u.ResidentCountryID)
	require.Equal(t, database.Unspecified, u.ResidentDistrictID)
	require.Equal(t, database.Unspecified, u.ResidentSectorID)
	require.Equal(t, database.Unspecified, u.CohortID)
	require.Equal(t, database.Unspecified, u.TrackID)
	require.Equal(t, database.NotSpecified, u.GenderName)
	require.Equal(t, database.DefaultProfileImage, u.ProfileImageID)
	require.Equal(t, database.DefaultRole, u.RoleID)
	require.NotNil(t, u.OrganizationFoundedID)
	require.NotNil(t, u.OrganizationEmployedID)
	require.NotEqual(t, *u.OrganizationFoundedID, *u.OrganizationEmployedID)

	users, orgs, notifications, jobs := store.Counts()
	require.Equal(t, 1, users)
	require.Equal(t, 2, orgs)
	require.Equal(t, 1, notifications)
	require.Equal(t, 1, jobs)

	n := store.Notifications()[0]
	require.False(t, n.Opened)
	require.Equal(t, u.ID, n.ReceiverID)
	require.Equal(t, "ACCOUNT: Your new account has been created!", n.Title)

	for _, o := range store.Organizations() {
		require.Equal(t, database.Unspecified, o.CountryID)
		require.Equal(t, database.Unspecified, o.WorkingSectorID)
	}

	email, err := auth.VerifyPasswordSetToken(testSecret, u.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, "a@x.com", email)

	require.Len(t, dispatcher.jobs, 1)
	sent := outbox.EmailFromJob(dispatcher.jobs[0])
	require.Equal(t, []string{"a@x.com"}, sent.To)
	require.Contains(t, sent.Text, "https://ams.example.org/reset-password/"+u.RefreshToken)
	require.Equal(t, 3, dispatcher.jobs[0].MaxRetries)

	require.NotNil(t, result.Email)
	require.Equal(t, "<msg@mg.example.org>", result.Email.ID)
}

func TestCreateKeepsProvidedReferences(t *testing.T) {
	store := usertest.NewMemoryStore()
	svc := newTestService(t, store, &fakeDispatcher{})

	in := user.Input{
		User: user.UserInput{
			Email:             "a@x.com",
			GenderName:        "Female",
			CohortID:          "cohort-3",
			ResidentCountryID: "RW",
			Password:          "correct horse",
		},
		OrganizationFounded: user.OrganizationInput{Name: "Acme", CountryID: "RW"},
	}
	result, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, "Female", result.User.GenderName)
	require.Equal(t, "cohort-3", result.User.CohortID)
	require.Equal(t, "RW", result.User.ResidentCountryID)
	require.True(t, utils.VerifyPassword("correct horse", result.User.PasswordHash))

	founded := store.Organization(*result.User.OrganizationFoundedID)
	require.Equal(t, "Acme", founded.Name)
	require.Equal(t, "RW", founded.CountryID)
	require.Equal(t, database.Unspecified, founded.DistrictID)
}

func TestCreateDuplicateEmail(t *testing.T) {
	store := usertest.NewMemoryStore()
	svc := newTestService(t, store, &fakeDispatcher{})

	_, err := svc.Create(context.Background(), createInput("a@x.com", "A"))
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), createInput(" A@X.com", "Other"))
	require.ErrorIs(t, err, user.ErrConflict)

	users, orgs, notifications, jobs := store.Counts()
	require.Equal(t, 1, users)
	require.Equal(t, 2, orgs)
	require.Equal(t, 1, notifications)
	require.Equal(t, 1, jobs)
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	testCases := []struct {
		name  string
		input user.Input
	}{
		{"missing email", user.Input{User: user.UserInput{FirstName: "A"}}},
		{"blank email", user.Input{User: user.UserInput{Email: "   "}}},
		{"malformed email", user.Input{User: user.UserInput{Email: "not-an-email"}}},
		{"short password", user.Input{User: user.UserInput{Email: "a@x.com", Password: "short"}}},
		{"founded website", user.Input{
			User:                user.UserInput{Email: "a@x.com"},
			OrganizationFounded: user.OrganizationInput{Website: "not a url"},
		}},
		{"employed website", user.Input{
			User:                 user.UserInput{Email: "a@x.com"},
			OrganizationEmployed: user.OrganizationInput{Website: "example"},
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			store := usertest.NewMemoryStore()
			svc := newTestService(t, store, &fakeDispatcher{})

			_, err := svc.Create(context.Background(), tc.input)
			if !errors.Is(err, user.ErrValidation) {
				t.Errorf("Create(%s) = %v; want user.ErrValidation", tc.name, err)
			}
			users, orgs, _, _ := store.Counts()
			require.Zero(t, users)
			require.Zero(t, orgs)
		})
	}
}

func TestCreateDeliveryFailureIsNotFatal(t *testing.T) {
	store := usertest.NewMemoryStore()
	svc := newTestService(t, store, &fakeDispatcher{err: errors.New("mailgun down")})

	result, err := svc.Create(context.Background(), createInput("a@x.com", "A"))
	require.NoError(t, err)
	require.Nil(t, result.Email)

	_, _, _, jobs := store.Counts()
	require.Equal(t, 1, jobs, "the email stays queued for the worker")
}

func TestCreateRollsBackOnNotificationFailure(t *testing.T) {
	store := usertest.NewMemoryStore()
	store.FailNotifications = errors.New("insert failed")
	dispatcher := &fakeDispatcher{}
	svc := newTestService(t, store, dispatcher)

	_, err := svc.Create(context.Background(), createInput("a@x.com", "A"))
	require.Error(t, err)

	users, orgs, notifications, jobs := store.Counts()
	require.Zero(t, users)
	require.Zero(t, orgs)
	require.Zero(t, notifications)
	require.Zero(t, jobs)
	require.Empty(t, dispatcher.jobs)
}

// blindStore skips the email lookup so only the unique constraint guards
// against duplicates.
type blindStore struct {
	*usertest.MemoryStore
}

func (b *blindStore) Transaction(ctx context.Context, fn func(user.Store) error) error {
	return b.MemoryStore.Transaction(ctx, func(user.Store) error { return fn(b) })
}

func (b *blindStore) UserByEmail(ctx context.Context, email string) (*database.User, error) {
	return nil, user.ErrNotFound
}

func TestConcurrentDuplicateCreate(t *testing.T) {
	for _, store := range []user.Store{usertest.NewMemoryStore(), &blindStore{usertest.NewMemoryStore()}} {
		svc := newTestService(t, store, &fakeDispatcher{})

		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			created   int
			conflicts int
		)
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := svc.Create(context.Background(), createInput("race@x.com", "R"))
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
		require.Equal(t, 9, conflicts)
	}
}

func TestBulkCreate(t *testing.T) {
	store := usertest.NewMemoryStore()
	dispatcher := &fakeDispatcher{}
	svc := newTestService(t, store, dispatcher)

	for _, email := range []string{"b@x.com", "d@x.com"} {
		_, err := svc.Create(context.Background(), createInput(email, "Existing"))
		require.NoError(t, err)
	}
	_, orgsBefore, _, jobsBefore := store.Counts()

	payload := []user.UserInput{
		{Email: "a@x.com", FirstName: "A"},
		{Email: "b@x.com", FirstName: "B"},
		{Email: "c@x.com", FirstName: "C", TrackID: "software-engineering"},
		{Email: "D@x.com", FirstName: "D"},
		{Email: "e@x.com", FirstName: "E"},
	}
	result := svc.BulkCreate(context.Background(), payload)

	require.Len(t, result.Outcomes, 5)
	require.Len(t, result.Created, 3)
	require.Equal(t, 2, result.Conflicts)

	expected := []user.OutcomeStatus{user.StatusCreated, user.StatusConflict, user.StatusCreated, user.StatusConflict, user.StatusCreated}
	for i, outcome := range result.Outcomes {
		require.Equal(t, i, outcome.Index)
		require.Equal(t, expected[i], outcome.Status, "entry %d", i)
	}
	require.Equal(t, "d@x.com", result.Outcomes[3].Email)
	require.Equal(t, "software-engineering", result.Outcomes[2].User.TrackID)
	require.Equal(t, database.Unspecified, result.Outcomes[2].User.ResidentCountryID)
	require.Nil(t, result.Outcomes[0].User.OrganizationFoundedID)

	users, orgs, notifications, jobs := store.Counts()
	require.Equal(t, 5, users)
	require.Equal(t, orgsBefore, orgs)
	require.Equal(t, 5, notifications)
	require.Equal(t, jobsBefore, jobs, "bulk creation sends no email")
}

func TestBulkCreateReportsInvalidEntries(t *testing.T) {
	store := usertest.NewMemoryStore()
	svc := newTestService(t, store, &fakeDispatcher{})

	result := svc.BulkCreate(context.Background(), []user.UserInput{
		{FirstName: "No email"},
		{Email: "a@x.com"},
		{Email: "a@x.com"},
	})

	require.Equal(t, user.StatusInvalid, result.Outcomes[0].Status)
	require.NotEmpty(t, result.Outcomes[0].Error)
	require.Len(t, result.Created, 1)
	require.Equal(t, 1, result.Conflicts)

	users, _, _, _ := store.Counts()
	require.Equal(t, 1, users)
}

func TestUpdate(t *testing.T) {
	store := usertest.NewMemoryStore()
	svc := newTestService(t, store, &fakeDispatcher{})

	created, err := svc.Create(context.Background(), createInput("a@x.com", "A"))
	require.NoError(t, err)
	foundedID := *created.User.OrganizationFoundedID

	result, err := svc.Update(context.Background(), created.User.ID, user.Input{
		User: user.UserInput{
			Email:             "a@x.com",
			FirstName:         "Alice",
			ResidentCountryID: "RW",
		},
		OrganizationFounded:  user.OrganizationInput{ID: foundedID.String(), Name: "Acme", Website: "https://acme.example.org"},
		OrganizationEmployed: user.OrganizationInput{ID: uuid.NewString(), Name: "Globex"},
	})
	require.NoError(t, err)
	require.NotNil(t, result.Email)

	u := result.User
	require.Equal(t, "Alice", u.FirstName)
	require.Equal(t, "RW", u.ResidentCountryID)
	require.Equal(t, database.Unspecified, u.ResidentSectorID)
	require.Equal(t, database.DefaultRole, u.RoleID)
	require.Equal(t, foundedID, *u.OrganizationFoundedID)
	require.NotEqual(t, *created.User.OrganizationEmployedID, *u.OrganizationEmployedID)

	require.Equal(t, "Acme", store.Organization(foundedID).Name)
	require.Equal(t, "Globex", store.Organization(*u.OrganizationEmployedID).Name)

	_, orgs, notifications, jobs := store.Counts()
	require.Equal(t, 3, orgs)
	require.Equal(t, 2, notifications)
	require.Equal(t, 2, jobs)
	require.Equal(t, "UPDATED: Your account has been updated!", store.Notifications()[1].Title)
}

func TestUpdateRejectsEmailChange(t *testing.T) {
	store := usertest.NewMemoryStore()
	svc := newTestService(t, store, &fakeDispatcher{})

	created, err := svc.Create(context.Background(), createInput("a@x.com", "A"))
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), created.User.ID, user.Input{
		User:                user.UserInput{Email: "b@x.com", FirstName: "Changed"},
		OrganizationFounded: user.OrganizationInput{Name: "New org"},
	})
	require.ErrorIs(t, err, user.ErrImmutableField)

	stored, err := svc.Get(context.Background(), created.User.ID, user.ExpandNone)
	require.NoError(t, err)
	require.Equal(t, "a@x.com", stored.Email)
	require.Equal(t, "A", stored.FirstName)

	_, orgs, notifications, _ := store.Counts()
	require.Equal(t, 2, orgs, "organization writes roll back with the rejected update")
	require.Equal(t, 1, notifications)
}

func TestUpdateNormalizesEmail(t *testing.T) {
	store := usertest.NewMemoryStore()
	svc := newTestService(t, store, &fakeDispatcher{})

	created, err := svc.Create(context.Background(), createInput("a@x.com", "A"))
	require.NoError(t, err)

	result, err := svc.Update(context.Background(), created.User.ID, user.Input{
		User: user.UserInput{Email: "  A@X.com ", FirstName: "Alice"},
	})
	require.NoError(t, err)
	require.Equal(t, "a@x.com", result.User.Email)
	require.Equal(t, "Alice", result.User.FirstName)
}

func TestUpdateRejectsInvalidOrganization(t *testing.T) {
	store := usertest.NewMemoryStore()
	svc := newTestService(t, store, &fakeDispatcher{})

	created, err := svc.Create(context.Background(), createInput("a@x.com", "A"))
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), created.User.ID, user.Input{
		User:                 user.UserInput{FirstName: "Alice"},
		OrganizationEmployed: user.OrganizationInput{Name: "Globex", Website: "globex"},
	})
	require.ErrorIs(t, err, user.ErrValidation)

	_, orgs, notifications, _ := store.Counts()
	require.Equal(t, 2, orgs)
	require.Equal(t, 1, notifications)
}

func TestUpdateUnknownUser(t *testing.T) {
	store := usertest.NewMemoryStore()
	svc := newTestService(t, store, &fakeDispatcher{})

	_, err := svc.Update(context.Background(), uuid.New(), user.Input{User: user.UserInput{Email: "a@x.com"}})
	require.ErrorIs(t, err, user.ErrNotFound)

	_, orgs, _, _ := store.Counts()
	require.Zero(t, orgs)
}

func TestGetAndList(t *testing.T) {
	store := usertest.NewMemoryStore()
	svc := newTestService(t, store, &fakeDispatcher{})

	created, err := svc.Create(context.Background(), createInput("a@x.com", "A"))
	require.NoError(t, err)

	full, err := svc.Get(context.Background(), created.User.ID, user.ExpandAll)
	require.NoError(t, err)
	require.NotNil(t, full.OrganizationFounded)
	require.NotNil(t, full.Gender)

	bare, err := svc.Get(context.Background(), created.User.ID, user.ExpandNone)
	require.NoError(t, err)
	require.Nil(t, bare.OrganizationFounded)

	_, err = svc.Get(context.Background(), uuid.New(), user.ExpandAll)
	require.ErrorIs(t, err, user.ErrNotFound)

	users, err := svc.List(context.Background(), user.ExpandNone)
	require.NoError(t, err)
	require.Len(t, users, 1)

	orgs, err := svc.ListOrganizations(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, orgs, 2)

	org, err := svc.GetOrganization(context.Background(), *created.User.OrganizationFoundedID, true)
	require.NoError(t, err)
	require.NotNil(t, org.Country)
}

func TestDelete(t *testing.T) {
	store := usertest.NewMemoryStore()
	svc := newTestService(t, store, &fakeDispatcher{})

	err := svc.Delete(context.Background(), uuid.New())
	require.ErrorIs(t, err, user.ErrNotFound)

	created, err := svc.Create(context.Background(), createInput("a@x.com", "A"))
	require.NoError(t, err)

	notifications, err := svc.Notifications(context.Background(), created.User.ID)
	require.NoError(t, err)
	require.Len(t, notifications, 1)

	require.NoError(t, svc.Delete(context.Background(), created.User.ID))

	_, err = svc.Notifications(context.Background(), created.User.ID)
	require.ErrorIs(t, err, user.ErrNotFound)

	users, _, n, _ := store.Counts()
	require.Zero(t, users)
	require.Zero(t, n)
}

func TestSetPassword(t *testing.T) {
	store := usertest.NewMemoryStore()
	svc := newTestService(t, store, &fakeDispatcher{})

	created, err := svc.Create(context.Background(), createInput("a@x.com", "A"))
	require.NoError(t, err)
	token := created.User.RefreshToken

	err = svc.SetPassword(context.Background(), token, "short")
	require.ErrorIs(t, err, user.ErrValidation)

	require.NoError(t, svc.SetPassword(context.Background(), token, "correct horse"))

	stored, err := svc.Get(context.Background(), created.User.ID, user.ExpandNone)
	require.NoError(t, err)
	require.Empty(t, stored.RefreshToken)
	require.True(t, utils.VerifyPassword("correct horse", stored.PasswordHash))

	err = svc.SetPassword(context.Background(), token, "another password")
	require.ErrorIs(t, err, auth.ErrInvalidToken)

	err = svc.SetPassword(context.Background(), "garbage", "another password")
	require.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestParseExpand(t *testing.T) {
	testCases := []struct {
		input    string
		expected user.Expand
		wantErr  bool
	}{
		{"", user.ExpandAll, false},
		{"all", user.ExpandAll, false},
		{"none", user.ExpandNone, false},
		{"organizations", user.Expand{Organizations: true}, false},
		{"gender, residence,track", user.Expand{Gender: true, Residence: true, Track: true}, false},
		{"profileImage,cohort,role", user.Expand{ProfileImage: true, Cohort: true, Role: true}, false},
		{"friends", user.ExpandNone, true},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			actual, err := user.ParseExpand(tc.input)
			if tc.wantErr {
				require.ErrorIs(t, err, user.ErrValidation)
				return
			}
			require.NoError(t, err)
			if actual != tc.expected {
				t.Errorf("user.ParseExpand(%q) = %+v; want %+v", tc.input, actual, tc.expected)
			}
		})
	}
}

func TestPreloads(t *testing.T) {
	require.Empty(t, user.ExpandNone.Preloads())
	require.Equal(t, []string{"Gender", "Track"}, user.Expand{Gender: true, Track: true}.Preloads())

	all := strings.Join(user.ExpandAll.Preloads(), " ")
	for _, path := range []string{"OrganizationFounded.District", "OrganizationEmployed.WorkingSector", "ResidentSector", "ProfileImage", "Cohort", "Role"} {
		require.Contains(t, all, path)
	}
}
