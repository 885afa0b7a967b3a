package usertest

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"ams/app/database"
	"ams/app/platform/user"
)

// MemoryStore is an in-process user.Store. Model hooks run on write, email
// is unique, and a failed transaction restores the previous state.
var _ user.Store = (*MemoryStore)(nil)

type MemoryStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	users         map[uuid.UUID]database.User
	organizations map[uuid.UUID]database.Organization
	notifications []database.Notification
	jobs          []database.WorkerJob

	FailCreateUser    error
	FailNotifications error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:         map[uuid.UUID]database.User{},
		organizations: map[uuid.UUID]database.Organization{},
	}
}

type snapshot struct {
	users         map[uuid.UUID]database.User
	organizations map[uuid.UUID]database.Organization
	notifications []database.Notification
	jobs          []database.WorkerJob
}

func (m *MemoryStore) snapshot() snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := snapshot{
		users:         map[uuid.UUID]database.User{},
		organizations: map[uuid.UUID]database.Organization{},
		notifications: append([]database.Notification(nil), m.notifications...),
		jobs:          append([]database.WorkerJob(nil), m.jobs...),
	}
	for k, v := range m.users {
		s.users[k] = v
	}
	for k, v := range m.organizations {
		s.organizations[k] = v
	}
	return s
}

func (m *MemoryStore) restore(s snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users = s.users
	m.organizations = s.organizations
	m.notifications = s.notifications
	m.jobs = s.jobs
}

func (m *MemoryStore) Transaction(ctx context.Context, fn func(user.Store) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	before := m.snapshot()
	if err := fn(m); err != nil {
		m.restore(before)
		return err
	}
	return nil
}

func (m *MemoryStore) UserByEmail(ctx context.Context, email string) (*database.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", email, user.ErrNotFound)
}

func (m *MemoryStore) UserByID(ctx context.Context, id uuid.UUID, expand user.Expand) (*database.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, user.ErrNotFound)
	}
	m.expandLocked(&u, expand)
	return &u, nil
}

func (m *MemoryStore) expandLocked(u *database.User, expand user.Expand) {
	if expand.Organizations {
		if u.OrganizationFoundedID != nil {
			o := m.organizations[*u.OrganizationFoundedID]
			u.OrganizationFounded = &o
		}
		if u.OrganizationEmployedID != nil {
			o := m.organizations[*u.OrganizationEmployedID]
			u.OrganizationEmployed = &o
		}
	}
	if expand.Gender {
		u.Gender = &database.Gender{ID: u.GenderName, Name: u.GenderName}
	}
}

func (m *MemoryStore) UserByRefreshToken(ctx context.Context, token string) (*database.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if token != "" && u.RefreshToken == token {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user: %w", user.ErrNotFound)
}

func (m *MemoryStore) ListUsers(ctx context.Context, expand user.Expand) ([]database.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make([]database.User, 0, len(m.users))
	for _, u := range m.users {
		m.expandLocked(&u, expand)
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Email < users[j].Email })
	return users, nil
}

func (m *MemoryStore) CreateUser(ctx context.Context, u *database.User) error {
	if m.FailCreateUser != nil {
		return m.FailCreateUser
	}
	_ = u.BeforeSave(nil)
	_ = u.BeforeCreate(nil)

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return fmt.Errorf("user %s: %w", u.Email, user.ErrConflict)
		}
	}
	m.users[u.ID] = *u
	return nil
}

func (m *MemoryStore) SaveUser(ctx context.Context, u *database.User) error {
	_ = u.BeforeSave(nil)

	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *u
	stored.OrganizationFounded, stored.OrganizationEmployed, stored.Gender = nil, nil, nil
	m.users[u.ID] = stored
	return nil
}

func (m *MemoryStore) DeleteUser(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return fmt.Errorf("user %s: %w", id, user.ErrNotFound)
	}
	delete(m.users, id)

	kept := m.notifications[:0]
	for _, n := range m.notifications {
		if n.ReceiverID != id {
			kept = append(kept, n)
		}
	}
	m.notifications = kept
	return nil
}

func (m *MemoryStore) OrganizationByID(ctx context.Context, id uuid.UUID, expand bool) (*database.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.organizations[id]
	if !ok {
		return nil, fmt.Errorf("organization %s: %w", id, user.ErrNotFound)
	}
	if expand {
		o.Country = &database.Country{ID: o.CountryID}
	}
	return &o, nil
}

func (m *MemoryStore) ListOrganizations(ctx context.Context, expand bool) ([]database.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	orgs := make([]database.Organization, 0, len(m.organizations))
	for _, o := range m.organizations {
		orgs = append(orgs, o)
	}
	return orgs, nil
}

func (m *MemoryStore) CreateOrganization(ctx context.Context, o *database.Organization) error {
	_ = o.BeforeSave(nil)
	_ = o.BeforeCreate(nil)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.organizations[o.ID] = *o
	return nil
}

func (m *MemoryStore) SaveOrganization(ctx context.Context, o *database.Organization) error {
	_ = o.BeforeSave(nil)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.organizations[o.ID] = *o
	return nil
}

func (m *MemoryStore) CreateNotification(ctx context.Context, n *database.Notification) error {
	if m.FailNotifications != nil {
		return m.FailNotifications
	}
	_ = n.BeforeCreate(nil)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = append(m.notifications, *n)
	return nil
}

func (m *MemoryStore) ListNotifications(ctx context.Context, userID uuid.UUID) ([]database.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []database.Notification
	for _, n := range m.notifications {
		if n.ReceiverID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *MemoryStore) CreateJob(ctx context.Context, job *database.WorkerJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job.ID = len(m.jobs) + 1
	m.jobs = append(m.jobs, *job)
	return nil
}

// Counts returns the number of stored rows per table.
func (m *MemoryStore) Counts() (users, orgs, notifications, jobs int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users), len(m.organizations), len(m.notifications), len(m.jobs)
}

// Notifications returns a copy of every stored notification in insertion order.
func (m *MemoryStore) Notifications() []database.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]database.Notification(nil), m.notifications...)
}

// Organization returns the stored organization id.
func (m *MemoryStore) Organization(id uuid.UUID) database.Organization {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.organizations[id]
}

// Organizations returns every stored organization.
func (m *MemoryStore) Organizations() []database.Organization {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]database.Organization, 0, len(m.organizations))
	for _, o := range m.organizations {
		out = append(out, o)
	}
	return out
}
