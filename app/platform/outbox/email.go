package outbox

import (
	"strings"

	"ams/app/database"
	"ams/app/mail"
)

const JobTypeEmail = "email"

// NewEmailJob wraps e in a pending outbox job.
func NewEmailJob(e *mail.Email, maxRetries int) *database.WorkerJob {
	return &database.WorkerJob{
		JobType: JobTypeEmail,
		Payload: database.JSONObject{
			"to":      strings.Join(e.To, ","),
			"name":    e.Name,
			"subject": e.Subject,
			"html":    e.HTML,
			"text":    e.Text,
		},
		Status:     database.JobStatusPending,
		MaxRetries: maxRetries,
	}
}

// EmailFromJob restores the message stored by NewEmailJob.
func EmailFromJob(job *database.WorkerJob) *mail.Email {
	var to []string
	if s := job.Payload.String("to"); s != "" {
		to = strings.Split(s, ",")
	}
	return &mail.Email{
		Subject: job.Payload.String("subject"),
		Name:    job.Payload.String("name"),
		HTML:    job.Payload.String("html"),
		Text:    job.Payload.String("text"),
		To:      to,
	}
}
