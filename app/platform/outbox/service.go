package outbox

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"ams/app/database"
)

var ErrNotCancellable = errors.New("job is not pending")

// RunningLease bounds how long a job may stay running. A worker that stops
// mid-delivery leaves its job running; after the lease it is due again.
const RunningLease = 10 * time.Minute

// Service persists worker jobs.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// GetAllJobsOptions defines options for filtering jobs
type GetAllJobsOptions struct {
	JobType string
	Status  string
	Limit   int
	Offset  int
}

// CreateJob inserts job using db, which may be a transaction.
func CreateJob(ctx context.Context, db *gorm.DB, job *database.WorkerJob) error {
	if job.Status == "" {
		job.Status = database.JobStatusPending
	}
	return db.WithContext(ctx).Create(job).Error
}

func (s *Service) CreateJob(ctx context.Context, job *database.WorkerJob) error {
	return CreateJob(ctx, s.db, job)
}

// GetAllJobs retrieves a list of worker jobs with optional filtering
func (s *Service) GetAllJobs(ctx context.Context, options GetAllJobsOptions) ([]database.WorkerJob, error) {
	var jobs []database.WorkerJob

	query := s.db.WithContext(ctx)
	if options.JobType != "" {
		query = query.Where("job_type = ?", options.JobType)
	}
	if options.Status != "" {
		query = query.Where("status = ?", options.Status)
	}

	limit := options.Limit
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	offset := options.Offset
	if offset < 0 {
		offset = 0
	}

	result := query.Order("priority DESC, created_at ASC").Limit(limit).Offset(offset).Find(&jobs)
	if result.Error != nil {
		return nil, result.Error
	}

	return jobs, nil
}

func (s *Service) GetJobByID(ctx context.Context, jobID int) (*database.WorkerJob, error) {
	var job database.WorkerJob
	result := s.db.WithContext(ctx).First(&job, jobID)
	if result.Error != nil {
		return nil, result.Error
	}

	return &job, nil
}

// CancelJob fails a job that has not been picked up yet.
func (s *Service) CancelJob(ctx context.Context, jobID int) (*database.WorkerJob, error) {
	job, err := s.GetJobByID(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if job.Status != database.JobStatusPending && job.Status != database.JobStatusRetry {
		return nil, ErrNotCancellable
	}

	cancelReason := "Cancelled by admin"
	job.Status = database.JobStatusFailed
	job.LastError = &cancelReason

	if err := s.db.WithContext(ctx).Save(job).Error; err != nil {
		return nil, err
	}

	return job, nil
}

// GetPendingJobs retrieves jobs that are ready to be processed, including
// running jobs whose lease has expired.
func (s *Service) GetPendingJobs(ctx context.Context, limit int) ([]database.WorkerJob, error) {
	var jobs []database.WorkerJob

	if limit <= 0 {
		limit = 10
	}

	now := time.Now()
	result := s.db.WithContext(ctx).
		Where("(status IN ? AND (process_after IS NULL OR process_after <= ?)) OR (status = ? AND updated_at < ?)",
			[]database.JobStatus{database.JobStatusPending, database.JobStatusRetry}, now,
			database.JobStatusRunning, now.Add(-RunningLease)).
		Order("priority DESC, created_at ASC").
		Limit(limit).
		Find(&jobs)

	if result.Error != nil {
		return nil, result.Error
	}

	return jobs, nil
}

// MarkJobAsRunning claims a job. It reports false when another worker got there first.
func (s *Service) MarkJobAsRunning(ctx context.Context, jobID int) (bool, error) {
	now := time.Now()
	result := s.db.WithContext(ctx).Model(&database.WorkerJob{}).
		Where("id = ? AND (status IN ? OR (status = ? AND updated_at < ?))", jobID,
			[]database.JobStatus{database.JobStatusPending, database.JobStatusRetry},
			database.JobStatusRunning, now.Add(-RunningLease)).
		Updates(map[string]interface{}{
			"status":     database.JobStatusRunning,
			"updated_at": now,
		})
	return result.RowsAffected == 1, result.Error
}

func (s *Service) MarkJobAsComplete(ctx context.Context, jobID int) error {
	result := s.db.WithContext(ctx).Model(&database.WorkerJob{}).
		Where("id = ?", jobID).
		Updates(map[string]interface{}{
			"status":     database.JobStatusComplete,
			"last_error": nil,
			"updated_at": time.Now(),
		})
	return result.Error
}

// MarkJobForRetry schedules another attempt no earlier than after.
func (s *Service) MarkJobForRetry(ctx context.Context, jobID int, errorMsg string, after time.Time) error {
	result := s.db.WithContext(ctx).Model(&database.WorkerJob{}).
		Where("id = ?", jobID).
		Updates(map[string]interface{}{
			"status":        database.JobStatusRetry,
			"retry_count":   gorm.Expr("retry_count + 1"),
			"last_error":    errorMsg,
			"process_after": after,
			"updated_at":    time.Now(),
		})
	return result.Error
}

func (s *Service) MarkJobAsFailed(ctx context.Context, jobID int, errorMsg string) error {
	result := s.db.WithContext(ctx).Model(&database.WorkerJob{}).
		Where("id = ?", jobID).
		Updates(map[string]interface{}{
			"status":      database.JobStatusFailed,
			"retry_count": gorm.Expr("retry_count + 1"),
			"last_error":  errorMsg,
			"updated_at":  time.Now(),
		})
	return result.Error
}
