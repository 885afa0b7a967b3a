package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ams/app/auth"
	"ams/app/config"
	"ams/app/database"
	"ams/app/mail"
	"ams/app/platform/notification"
	"ams/app/platform/outbox"
	"ams/pkg/utils"
)

// Dispatcher delivers an outbox job right away. *outbox.Worker implements it.
type Dispatcher interface {
	Deliver(ctx context.Context, job *database.WorkerJob) (*mail.Receipt, error)
}

type Options struct {
	JWTSecret       string
	MaxRetries      int
	BulkConcurrency int
}

type Service struct {
	store      Store
	composer   *notification.Composer
	dispatcher Dispatcher
	log        *zap.Logger
	opts       Options
	now        func() time.Time
}

func NewService(store Store, composer *notification.Composer, dispatcher Dispatcher, log *zap.Logger, opts Options) *Service {
	if opts.BulkConcurrency <= 0 {
		opts.BulkConcurrency = 1
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 5
	}
	return &Service{
		store:      store,
		composer:   composer,
		dispatcher: dispatcher,
		log:        log,
		opts:       opts,
		now:        time.Now,
	}
}

// Result is a written user plus the provider metadata of the inline mail
// attempt. Email is nil when delivery was deferred to the outbox worker.
type Result struct {
	User  *database.User
	Email *mail.Receipt
}

func validateUser(in UserInput) (string, error) {
	email := utils.NormalizeEmail(in.Email)
	if email == "" {
		return "", fmt.Errorf("%w: email is required", ErrValidation)
	}
	in.Email = email
	if err := config.Validate.Struct(in); err != nil {
		return "", fmt.Errorf("%w: %s", ErrValidation, config.ValidationMessage(err))
	}
	return email, nil
}

// validateInput checks the user payload and both organization payloads.
func validateInput(in Input) error {
	for _, v := range []any{in.User, in.OrganizationFounded, in.OrganizationEmployed} {
		if err := config.Validate.Struct(v); err != nil {
			return fmt.Errorf("%w: %s", ErrValidation, config.ValidationMessage(err))
		}
	}
	return nil
}

func (s *Service) ensureEmailFree(ctx context.Context, store Store, email string) error {
	_, err := store.UserByEmail(ctx, email)
	if err == nil {
		return fmt.Errorf("user with email %s: %w", email, ErrConflict)
	}
	if !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}

func (s *Service) notify(ctx context.Context, store Store, event notification.Event, u *database.User, token string) (*database.WorkerJob, error) {
	if err := store.CreateNotification(ctx, s.composer.Notification(event, u)); err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}

	job := outbox.NewEmailJob(s.composer.Email(event, u, token), s.opts.MaxRetries)
	if err := store.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("enqueue email: %w", err)
	}
	return job, nil
}

// dispatch makes one delivery attempt after commit. Failures stay queued.
func (s *Service) dispatch(ctx context.Context, job *database.WorkerJob) *mail.Receipt {
	if s.dispatcher == nil || job == nil {
		return nil
	}
	receipt, err := s.dispatcher.Deliver(ctx, job)
	if err != nil {
		s.log.Warn("email delivery deferred to outbox", zap.Int("job_id", job.ID), zap.Error(err))
		return nil
	}
	return receipt
}

// Create registers a user together with the two organizations of the
// request, a welcome notification and a password-set email.
func (s *Service) Create(ctx context.Context, in Input) (*Result, error) {
	email, err := validateUser(in.User)
	if err != nil {
		return nil, err
	}
	in.User.Email = email
	if err := validateInput(in); err != nil {
		return nil, err
	}

	token, err := auth.NewPasswordSetToken(s.opts.JWTSecret, email, s.now())
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	u := &database.User{Email: email, RefreshToken: token, RoleID: database.DefaultRole}
	in.User.apply(u)
	if in.User.Password != "" {
		if u.PasswordHash, err = utils.HashPassword(in.User.Password); err != nil {
			return nil, err
		}
	}

	var job *database.WorkerJob
	err = s.store.Transaction(ctx, func(tx Store) error {
		if err := s.ensureEmailFree(ctx, tx, email); err != nil {
			return err
		}

		founded := &database.Organization{}
		in.OrganizationFounded.apply(founded)
		if err := tx.CreateOrganization(ctx, founded); err != nil {
			return fmt.Errorf("create founded organization: %w", err)
		}

		employed := &database.Organization{}
		in.OrganizationEmployed.apply(employed)
		if err := tx.CreateOrganization(ctx, employed); err != nil {
			return fmt.Errorf("create employed organization: %w", err)
		}

		u.OrganizationFoundedID = &founded.ID
		u.OrganizationEmployedID = &employed.ID
		if err := tx.CreateUser(ctx, u); err != nil {
			return err
		}

		job, err = s.notify(ctx, tx, notification.AccountCreated, u, token)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("user created", zap.String("user_id", u.ID.String()))
	return &Result{User: u, Email: s.dispatch(ctx, job)}, nil
}

type OutcomeStatus string

const (
	StatusCreated  OutcomeStatus = "created"
	StatusConflict OutcomeStatus = "conflict"
	StatusInvalid  OutcomeStatus = "invalid"
	StatusFailed   OutcomeStatus = "failed"
)

// Outcome reports what happened to one entry of a bulk request.
type Outcome struct {
	Index  int            `json:"index"`
	Email  string         `json:"email"`
	Status OutcomeStatus  `json:"status"`
	User   *database.User `json:"user,omitempty"`
	Error  string         `json:"error,omitempty"`
}

type BulkResult struct {
	Outcomes  []Outcome
	Created   []*database.User
	Conflicts int
}

func (s *Service) createOne(ctx context.Context, in UserInput) (*database.User, error) {
	email, err := validateUser(in)
	if err != nil {
		return nil, err
	}

	u := &database.User{Email: email, RoleID: database.DefaultRole}
	in.apply(u)
	if in.Password != "" {
		if u.PasswordHash, err = utils.HashPassword(in.Password); err != nil {
			return nil, err
		}
	}

	err = s.store.Transaction(ctx, func(tx Store) error {
		if err := s.ensureEmailFree(ctx, tx, email); err != nil {
			return err
		}
		if err := tx.CreateUser(ctx, u); err != nil {
			return err
		}
		return tx.CreateNotification(ctx, s.composer.Notification(notification.AccountCreated, u))
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// BulkCreate creates every entry independently. Entries run concurrently
// and a failing entry never affects the others. Outcomes keep input order.
func (s *Service) BulkCreate(ctx context.Context, users []UserInput) *BulkResult {
	outcomes := make([]Outcome, len(users))

	var g errgroup.Group
	g.SetLimit(s.opts.BulkConcurrency)
	for i, in := range users {
		i, in := i, in
		g.Go(func() error {
			outcome := Outcome{Index: i, Email: utils.NormalizeEmail(in.Email)}
			u, err := s.createOne(ctx, in)
			switch {
			case err == nil:
				outcome.Status = StatusCreated
				outcome.User = u
			case errors.Is(err, ErrConflict):
				outcome.Status = StatusConflict
				outcome.Error = "user with this email already exists"
			case errors.Is(err, ErrValidation):
				outcome.Status = StatusInvalid
				outcome.Error = err.Error()
			default:
				s.log.Error("bulk create entry failed", zap.Int("index", i), zap.Error(err))
				outcome.Status = StatusFailed
				outcome.Error = "internal error"
			}
			outcomes[i] = outcome
			return nil
		})
	}
	_ = g.Wait()

	result := &BulkResult{Outcomes: outcomes, Created: []*database.User{}}
	for _, o := range outcomes {
		switch o.Status {
		case StatusCreated:
			result.Created = append(result.Created, o.User)
		case StatusConflict:
			result.Conflicts++
		}
	}
	return result
}

func (s *Service) upsertOrganization(ctx context.Context, tx Store, in OrganizationInput) (*database.Organization, error) {
	if id, ok := in.id(); ok {
		existing, err := tx.OrganizationByID(ctx, id, false)
		switch {
		case err == nil:
			in.apply(existing)
			if err := tx.SaveOrganization(ctx, existing); err != nil {
				return nil, err
			}
			return existing, nil
		case !errors.Is(err, ErrNotFound):
			return nil, err
		}
	}

	o := &database.Organization{}
	in.apply(o)
	if err := tx.CreateOrganization(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// Update rewrites the profile of user id. Organizations referenced by id are
// updated in place, others are created. Everything happens in one
// transaction, so a rejected update leaves no organization changes behind.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in Input) (*Result, error) {
	in.User.Email = utils.NormalizeEmail(in.User.Email)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	var (
		u   *database.User
		job *database.WorkerJob
	)
	err := s.store.Transaction(ctx, func(tx Store) error {
		founded, err := s.upsertOrganization(ctx, tx, in.OrganizationFounded)
		if err != nil {
			return fmt.Errorf("organization founded: %w", err)
		}
		employed, err := s.upsertOrganization(ctx, tx, in.OrganizationEmployed)
		if err != nil {
			return fmt.Errorf("organization employed: %w", err)
		}

		u, err = tx.UserByID(ctx, id, ExpandNone)
		if err != nil {
			return err
		}

		if email := utils.NormalizeEmail(in.User.Email); email != "" && email != u.Email {
			return fmt.Errorf("email: %w", ErrImmutableField)
		}

		in.User.apply(u)
		u.OrganizationFoundedID = &founded.ID
		u.OrganizationEmployedID = &employed.ID
		if in.User.Password != "" {
			if u.PasswordHash, err = utils.HashPassword(in.User.Password); err != nil {
				return err
			}
		}
		if err := tx.SaveUser(ctx, u); err != nil {
			return err
		}

		job, err = s.notify(ctx, tx, notification.AccountUpdated, u, "")
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("user updated", zap.String("user_id", u.ID.String()))
	return &Result{User: u, Email: s.dispatch(ctx, job)}, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID, expand Expand) (*database.User, error) {
	return s.store.UserByID(ctx, id, expand)
}

func (s *Service) List(ctx context.Context, expand Expand) ([]database.User, error) {
	return s.store.ListUsers(ctx, expand)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.store.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.log.Info("user deleted", zap.String("user_id", id.String()))
	return nil
}

// Notifications lists the notifications addressed to user id, newest first.
func (s *Service) Notifications(ctx context.Context, id uuid.UUID) ([]database.Notification, error) {
	if _, err := s.store.UserByID(ctx, id, ExpandNone); err != nil {
		return nil, err
	}
	return s.store.ListNotifications(ctx, id)
}

// SetPassword redeems a password-set token. Each token works once.
func (s *Service) SetPassword(ctx context.Context, token, password string) error {
	if len(password) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", ErrValidation)
	}

	email, err := auth.VerifyPasswordSetToken(s.opts.JWTSecret, token)
	if err != nil {
		return err
	}

	return s.store.Transaction(ctx, func(tx Store) error {
		u, err := tx.UserByRefreshToken(ctx, token)
		if errors.Is(err, ErrNotFound) {
			return auth.ErrInvalidToken
		}
		if err != nil {
			return err
		}
		if u.Email != email {
			return auth.ErrInvalidToken
		}

		if u.PasswordHash, err = utils.HashPassword(password); err != nil {
			return err
		}
		u.RefreshToken = ""
		return tx.SaveUser(ctx, u)
	})
}

func (s *Service) GetOrganization(ctx context.Context, id uuid.UUID, expand bool) (*database.Organization, error) {
	return s.store.OrganizationByID(ctx, id, expand)
}

func (s *Service) ListOrganizations(ctx context.Context, expand bool) ([]database.Organization, error) {
	return s.store.ListOrganizations(ctx, expand)
}
