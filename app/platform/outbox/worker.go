package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ams/app/database"
	"ams/app/mail"
)

const (
	baseBackoff = 30 * time.Second
	maxBackoff  = time.Hour
)

var ErrAlreadyClaimed = errors.New("job already claimed")

// Queue is the job storage the worker drives. *Service implements it.
type Queue interface {
	GetPendingJobs(ctx context.Context, limit int) ([]database.WorkerJob, error)
	MarkJobAsRunning(ctx context.Context, jobID int) (bool, error)
	MarkJobAsComplete(ctx context.Context, jobID int) error
	MarkJobForRetry(ctx context.Context, jobID int, errorMsg string, after time.Time) error
	MarkJobAsFailed(ctx context.Context, jobID int, errorMsg string) error
}

type Worker struct {
	queue     Queue
	mailer    mail.Mailer
	log       *zap.Logger
	interval  time.Duration
	batchSize int
	now       func() time.Time
}

func NewWorker(queue Queue, mailer mail.Mailer, log *zap.Logger, interval time.Duration, batchSize int) *Worker {
	return &Worker{
		queue:     queue,
		mailer:    mailer,
		log:       log,
		interval:  interval,
		batchSize: batchSize,
		now:       time.Now,
	}
}

// Backoff returns the delay before attempt retries+1.
func Backoff(retries int) time.Duration {
	d := baseBackoff
	for i := 0; i < retries; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}

// Run polls for due jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Info("outbox worker started", zap.Duration("interval", w.interval))
	for {
		select {
		case <-ctx.Done():
			w.log.Info("outbox worker stopped")
			return nil
		case <-ticker.C:
			if _, err := w.ProcessBatch(ctx); err != nil && ctx.Err() == nil {
				w.log.Error("outbox batch failed", zap.Error(err))
			}
		}
	}
}

// ProcessBatch delivers up to batchSize due jobs and returns how many were delivered.
func (w *Worker) ProcessBatch(ctx context.Context) (int, error) {
	jobs, err := w.queue.GetPendingJobs(ctx, w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("fetch pending jobs: %w", err)
	}

	delivered := 0
	for i := range jobs {
		if ctx.Err() != nil {
			break
		}
		if _, err := w.Deliver(ctx, &jobs[i]); err == nil {
			delivered++
		}
	}
	return delivered, nil
}

// Deliver claims job, sends it and records the outcome. A failed send is
// rescheduled with backoff, or marked failed once retries are exhausted.
func (w *Worker) Deliver(ctx context.Context, job *database.WorkerJob) (*mail.Receipt, error) {
	claimed, err := w.queue.MarkJobAsRunning(ctx, job.ID)
	if err != nil {
		return nil, fmt.Errorf("claim job %d: %w", job.ID, err)
	}
	if !claimed {
		return nil, ErrAlreadyClaimed
	}

	log := w.log.With(zap.Int("job_id", job.ID), zap.String("job_type", job.JobType))

	var receipt *mail.Receipt
	switch job.JobType {
	case JobTypeEmail:
		receipt, err = w.mailer.Send(ctx, EmailFromJob(job))
	default:
		err = fmt.Errorf("unknown job type %q", job.JobType)
	}

	// Bookkeeping must land even when shutdown cancelled ctx mid-send.
	bg := context.WithoutCancel(ctx)

	if err != nil {
		attempts := job.RetryCount + 1
		switch {
		case ctx.Err() != nil:
			log.Warn("delivery interrupted, requeueing", zap.Error(err))
			if markErr := w.queue.MarkJobForRetry(bg, job.ID, err.Error(), w.now()); markErr != nil {
				log.Error("failed to requeue job", zap.Error(markErr))
			}
		case attempts >= job.MaxRetries:
			log.Error("job failed permanently", zap.Int("attempts", attempts), zap.Error(err))
			if markErr := w.queue.MarkJobAsFailed(bg, job.ID, err.Error()); markErr != nil {
				log.Error("failed to mark job as failed", zap.Error(markErr))
			}
		default:
			after := w.now().Add(Backoff(job.RetryCount))
			log.Warn("job failed, will retry", zap.Int("attempts", attempts), zap.Time("process_after", after), zap.Error(err))
			if markErr := w.queue.MarkJobForRetry(bg, job.ID, err.Error(), after); markErr != nil {
				log.Error("failed to reschedule job", zap.Error(markErr))
			}
		}
		return nil, err
	}

	if err := w.queue.MarkJobAsComplete(bg, job.ID); err != nil {
		log.Error("failed to mark job as complete", zap.Error(err))
	}
	log.Debug("job delivered", zap.String("message_id", receipt.ID))
	return receipt, nil
}
